package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/valter-silva-au/kiya/internal/observability"
	"github.com/valter-silva-au/kiya/pkg/models"
)

func TestDashboardModel_Init(t *testing.T) {
	m := newDashboardModel()

	if m.activePanel != panelStages {
		t.Errorf("expected activePanel = %d, got %d", panelStages, m.activePanel)
	}
	if !m.loading {
		t.Error("expected loading = true on init")
	}
	if m.Init() == nil {
		t.Error("expected Init to return a non-nil command")
	}
}

func TestDashboardModel_PanelNavigation(t *testing.T) {
	var model tea.Model = newDashboardModel()

	for i := 1; i <= panelCount; i++ {
		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyTab})
		if got := model.(dashboardModel).activePanel; got != i%panelCount {
			t.Errorf("after %d tabs activePanel = %d", i, got)
		}
	}

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if got := model.(dashboardModel).activePanel; got != panelCount-1 {
		t.Errorf("shift+tab from first panel = %d, want %d", got, panelCount-1)
	}
}

func TestDashboardModel_QuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := newDashboardModel().Update(key)
		if cmd == nil {
			t.Errorf("%s should quit", key)
			continue
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s did not return tea.Quit", key)
		}
	}
}

func TestDashboardModel_ViewRendersData(t *testing.T) {
	var model tea.Model = newDashboardModel()
	model, _ = model.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	model, _ = model.Update(dataLoadedMsg{
		stageCounts: map[string]int{string(models.StageModelSuccess): 5},
		metrics:     &metricsSnapshot{messages: 5},
		tasks:       []models.Task{{Title: "buy milk"}, {Title: "call mum", Completed: true}},
		alerts:      []alertSnapshot{{severity: "medium", message: "fallback rate 60%"}},
	})

	view := model.View()
	for _, want := range []string{"Dashboard", string(models.StageModelSuccess), "1. [ ] buy milk", "2. [x] call mum", "Done: 1/2", "[MEDIUM] fallback rate 60%"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestDashboardModel_ViewError(t *testing.T) {
	var model tea.Model = newDashboardModel()
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(dataLoadedMsg{err: errors.New("event log unreadable")})

	if !strings.Contains(model.View(), "event log unreadable") {
		t.Error("view should show load error")
	}
}

func TestLoadData(t *testing.T) {
	useTestServices(t, false)
	_, _ = Tasks.AddTask("buy milk")
	MetricsCalc = &metricsMock{calcFn: func(time.Time) (*observability.Metrics, error) { return sampleMetrics(), nil }}
	AlertEngine = &alertsMock{alerts: []observability.Alert{
		{Severity: observability.SeverityLow, Message: "low"},
		{Severity: observability.SeverityHigh, Message: "high"},
	}}

	msg := loadData().(dataLoadedMsg)
	if msg.err != nil {
		t.Fatalf("loadData: %v", msg.err)
	}
	if len(msg.tasks) != 1 {
		t.Errorf("tasks = %d, want 1", len(msg.tasks))
	}
	if msg.metrics == nil || msg.metrics.messages != 12 {
		t.Errorf("metrics = %+v", msg.metrics)
	}
	if msg.stageCounts["model-success"] != 8 {
		t.Errorf("stage counts = %v", msg.stageCounts)
	}
	if len(msg.alerts) != 2 || msg.alerts[0].severity != "high" {
		t.Errorf("alerts should be sorted high first: %+v", msg.alerts)
	}
}

func TestLoadData_MetricsError(t *testing.T) {
	useTestServices(t, false)
	MetricsCalc = &metricsMock{calcFn: func(time.Time) (*observability.Metrics, error) { return nil, errors.New("nope") }}

	msg := loadData().(dataLoadedMsg)
	if msg.err == nil || !strings.Contains(msg.err.Error(), "loading metrics") {
		t.Errorf("err = %v", msg.err)
	}
}
