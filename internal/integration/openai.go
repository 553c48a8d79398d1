package integration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/valter-silva-au/kiya/internal/core"
	"github.com/valter-silva-au/kiya/pkg/models"
)

// AssistantPersona is the system prompt placed ahead of every conversation
// sent to the language model.
const AssistantPersona = `You are KIYA, a human-like AI assistant with a warm, empathetic personality.
When communicating:
- Use conversational language with natural variations in sentence structure
- Express emotions and reactions appropriately (like "I'm excited to help with that!" or "That's a tough situation")
- Use occasional filler words and casual phrases like a human would ("Well...", "You know", "I mean")
- Ask clarifying questions when needed, showing genuine curiosity
- Remember details from earlier in the conversation and refer back to them
- Share thoughtful perspectives as if you're thinking through problems together
- Admit when you don't know something instead of making up answers
- Use appropriate humor when the situation allows for it
- Respect the user's emotions and respond with empathy to personal concerns

Your goal is to be helpful while creating a natural, flowing conversation that feels like talking to a knowledgeable friend.`

// Sampling parameters sent with every completion request.
const (
	completionTemperature      = 0.8
	completionMaxTokens        = 1500
	completionTopP             = 0.95
	completionPresencePenalty  = 0.6
	completionFrequencyPenalty = 0.5
)

// OpenAIChatConfig configures the chat completion adapter.
type OpenAIChatConfig struct {
	Model   string
	BaseURL string
	Timeout time.Duration
	// Persona overrides AssistantPersona when set.
	Persona string
}

// OpenAIChat implements core.LanguageModel on the OpenAI chat completions
// API. A client is built per call because the credential can change between
// messages.
type OpenAIChat struct {
	cfg        OpenAIChatConfig
	httpClient *http.Client
}

var _ core.LanguageModel = (*OpenAIChat)(nil)

// NewOpenAIChat creates the adapter. Empty fields fall back to gpt-4o on
// the public endpoint with a one minute timeout.
func NewOpenAIChat(cfg OpenAIChatConfig) *OpenAIChat {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Persona == "" {
		cfg.Persona = AssistantPersona
	}
	return &OpenAIChat{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

// Complete sends the persona followed by turns and returns the first
// choice's content.
func (c *OpenAIChat) Complete(ctx context.Context, turns []models.ChatTurn, credential string) (string, error) {
	if strings.TrimSpace(credential) == "" {
		return "", &core.AuthError{Op: "chat completion"}
	}

	clientCfg := openai.DefaultConfig(credential)
	if c.cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(c.cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(clientCfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            c.cfg.Model,
		Messages:         c.buildMessages(turns),
		Temperature:      completionTemperature,
		MaxTokens:        completionMaxTokens,
		TopP:             completionTopP,
		PresencePenalty:  completionPresencePenalty,
		FrequencyPenalty: completionFrequencyPenalty,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &core.UpstreamError{Op: "chat completion", Err: errors.New("response contained no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIChat) buildMessages(turns []models.ChatTurn) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.cfg.Persona})
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		switch t.Role {
		case models.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case models.RoleSystem:
			role = openai.ChatMessageRoleSystem
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	return out
}

// classifyOpenAIError maps rejected credentials to AuthError and everything
// else to UpstreamError.
func classifyOpenAIError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &core.AuthError{Op: "chat completion", Err: fmt.Errorf("status %d: %w", status, err)}
	}
	return &core.UpstreamError{Op: "chat completion", StatusCode: status, Err: err}
}
