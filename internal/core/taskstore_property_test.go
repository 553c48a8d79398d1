package core

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// Property: tasks are listed in creation order with their titles trimmed
// and every new task incomplete.
func TestProperty_TaskStoreOrderPreserved(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewTaskStore(nil)
		titles := rapid.SliceOfN(rapid.StringMatching(`[A-Za-z][A-Za-z ]{0,19}`), 1, 20).Draw(t, "titles")

		for _, title := range titles {
			if _, err := s.AddTask(title); err != nil {
				t.Fatalf("AddTask(%q): %v", title, err)
			}
		}

		tasks := s.ListTasks()
		if len(tasks) != len(titles) {
			t.Fatalf("len = %d, want %d", len(tasks), len(titles))
		}
		for i, task := range tasks {
			if task.Title != strings.TrimSpace(titles[i]) {
				t.Fatalf("tasks[%d].Title = %q, want %q", i, task.Title, strings.TrimSpace(titles[i]))
			}
			if task.Completed {
				t.Fatalf("tasks[%d] completed on creation", i)
			}
		}
	})
}

// Property: completing by a valid index flips exactly that task and leaves
// order and other tasks untouched.
func TestProperty_CompleteByIndexTouchesOneTask(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewTaskStore(nil)
		n := rapid.IntRange(1, 15).Draw(t, "n")
		for i := 0; i < n; i++ {
			_, _ = s.AddTask(rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "title"))
		}
		before := s.ListTasks()
		idx := rapid.IntRange(1, n).Draw(t, "idx")

		if _, err := s.CompleteByIndex(idx); err != nil {
			t.Fatalf("CompleteByIndex(%d): %v", idx, err)
		}

		after := s.ListTasks()
		for i := range after {
			if after[i].ID != before[i].ID {
				t.Fatalf("order changed at %d", i)
			}
			want := before[i].Completed || i == idx-1
			if after[i].Completed != want {
				t.Fatalf("tasks[%d].Completed = %v, want %v", i, after[i].Completed, want)
			}
		}
	})
}
