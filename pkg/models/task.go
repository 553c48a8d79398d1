package models

import "time"

// Task is a to-do item created and completed through chat commands.
type Task struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Completed bool      `json:"completed" yaml:"completed"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}
