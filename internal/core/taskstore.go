package core

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/kiya/pkg/models"
)

// TaskStore holds the session's task list in creation order.
type TaskStore interface {
	// AddTask appends a new incomplete task. A blank title is rejected
	// with a ValidationError and the store is left unchanged.
	AddTask(title string) (models.Task, error)
	// ListTasks returns a copy of all tasks in creation order.
	ListTasks() []models.Task
	// CompleteByIndex marks the task at the 1-based index complete.
	CompleteByIndex(i int) (models.Task, error)
	// CompleteByTitleSubstring marks the first task whose title contains s,
	// ignoring case, complete. A blank s matches nothing and returns a
	// NotFoundError rather than completing the first task.
	CompleteByTitleSubstring(s string) (models.Task, error)
}

// memoryTaskStore implements TaskStore in process memory. Tasks live for the
// lifetime of the store.
type memoryTaskStore struct {
	mu    sync.Mutex
	tasks []models.Task
	now   Clock
	newID func() string
}

// NewTaskStore creates an empty in-memory TaskStore. A nil clock uses
// time.Now.
func NewTaskStore(now Clock) TaskStore {
	if now == nil {
		now = time.Now
	}
	return &memoryTaskStore{now: now, newID: uuid.NewString}
}

func (s *memoryTaskStore) AddTask(title string) (models.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Task{}, &ValidationError{Field: "task title", Reason: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := models.Task{
		ID:        s.newID(),
		Title:     title,
		Completed: false,
		CreatedAt: s.now().UTC(),
	}
	s.tasks = append(s.tasks, task)
	return task, nil
}

func (s *memoryTaskStore) ListTasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *memoryTaskStore) CompleteByIndex(i int) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 1 || i > len(s.tasks) {
		return models.Task{}, &NotFoundError{Kind: "task index", Key: strconv.Itoa(i)}
	}
	s.tasks[i-1].Completed = true
	return s.tasks[i-1], nil
}

func (s *memoryTaskStore) CompleteByTitleSubstring(sub string) (models.Task, error) {
	needle := strings.ToLower(strings.TrimSpace(sub))
	if needle == "" {
		return models.Task{}, &NotFoundError{Kind: "task", Key: sub}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if strings.Contains(strings.ToLower(s.tasks[i].Title), needle) {
			s.tasks[i].Completed = true
			return s.tasks[i], nil
		}
	}
	return models.Task{}, &NotFoundError{Kind: "task", Key: sub}
}
