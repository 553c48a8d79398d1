package models

// SearchResult is one normalized hit from a web search source.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
}
