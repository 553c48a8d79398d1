package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/kiya/pkg/models"
)

// Dashboard panel indices.
const (
	panelStages = iota
	panelTasks
	panelAlerts
	panelCount
)

// stageOrder lists escalation stages from cheapest to last resort.
var stageOrder = []models.Stage{
	models.StageMatchedTask,
	models.StageMatchedKnowledge,
	models.StageModelSuccess,
	models.StageSearchSuccess,
	models.StageAllFailed,
}

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	stageCounts map[string]int
	metricsData *metricsSnapshot
	tasks       []models.Task
	alerts      []alertSnapshot

	loading bool
	err     error
}

type metricsSnapshot struct {
	messages     int
	fallbackRate float64
	avgLatencyMs float64
	authFailures int
}

type alertSnapshot struct {
	severity string
	message  string
	time     string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	stageCounts map[string]int
	metrics     *metricsSnapshot
	tasks       []models.Task
	alerts      []alertSnapshot
	err         error
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	statusDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusBlocked = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusPending = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelStages,
		loading:     true,
		stageCounts: make(map[string]int),
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.stageCounts = msg.stageCounts
		m.metricsData = msg.metrics
		m.tasks = msg.tasks
		m.alerts = msg.alerts
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" " + assistantName() + " Dashboard ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	stagesPanel := m.renderStagesPanel()
	tasksPanel := m.renderTasksPanel()
	alertsPanel := m.renderAlertsPanel()

	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		stagesPanel = m.applyPanelStyle(panelStages, stagesPanel, colWidth-4)
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, stagesPanel, tasksPanel, alertsPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		stagesPanel = m.applyPanelStyle(panelStages, stagesPanel, panelWidth)
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, stagesPanel, tasksPanel, alertsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderStagesPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Escalation (7d)"))
	b.WriteString("\n")

	if m.metricsData == nil || m.metricsData.messages == 0 {
		b.WriteString("  No messages processed.")
		return b.String()
	}

	for _, stage := range stageOrder {
		count := m.stageCounts[string(stage)]
		label := fmt.Sprintf("  %-28s %d", stage, count)
		b.WriteString(styleForStage(stage).Render(label))
		b.WriteString("\n")
	}

	md := m.metricsData
	b.WriteString(fmt.Sprintf("\n  %-14s %d\n", "Messages", md.messages))
	b.WriteString(fmt.Sprintf("  %-14s %.0f%%\n", "Fallback", md.fallbackRate*100))
	b.WriteString(fmt.Sprintf("  %-14s %.0fms\n", "Latency", md.avgLatencyMs))
	b.WriteString(fmt.Sprintf("  %-14s %d", "Auth failures", md.authFailures))

	return b.String()
}

func (m dashboardModel) renderTasksPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Tasks"))
	b.WriteString("\n")

	if len(m.tasks) == 0 {
		b.WriteString("  No tasks in this session.")
		return b.String()
	}

	done := 0
	for i, t := range m.tasks {
		style, mark := statusPending, " "
		if t.Completed {
			style, mark = statusDone, "x"
			done++
		}
		b.WriteString(style.Render(fmt.Sprintf("  %d. [%s] %s", i+1, mark, t.Title)))
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("\n  Done: %d/%d", done, len(m.tasks)))

	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))

	return b.String()
}

func styleForStage(stage models.Stage) lipgloss.Style {
	switch stage {
	case models.StageMatchedTask, models.StageMatchedKnowledge:
		return statusMuted
	case models.StageModelSuccess:
		return statusDone
	case models.StageSearchSuccess:
		return statusPending
	case models.StageAllFailed:
		return statusBlocked
	default:
		return lipgloss.NewStyle()
	}
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func loadData() tea.Msg {
	result := dataLoadedMsg{
		stageCounts: make(map[string]int),
	}

	if Tasks != nil {
		result.tasks = Tasks.ListTasks()
	}

	if MetricsCalc != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		for stage, n := range metrics.ByStage {
			result.stageCounts[stage] = n
		}
		result.metrics = &metricsSnapshot{
			messages:     metrics.MessagesProcessed,
			fallbackRate: metrics.FallbackRate,
			avgLatencyMs: metrics.AvgLatencyMs,
			authFailures: metrics.AuthFailures,
		}
	}

	if AlertEngine != nil {
		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			result.err = fmt.Errorf("loading alerts: %w", err)
			return result
		}
		result.alerts = make([]alertSnapshot, 0, len(alerts))

		// High severity first.
		sort.SliceStable(alerts, func(i, j int) bool {
			return severityRank(string(alerts[i].Severity)) < severityRank(string(alerts[j].Severity))
		})

		for _, a := range alerts {
			result.alerts = append(result.alerts, alertSnapshot{
				severity: string(a.Severity),
				message:  a.Message,
				time:     a.TriggeredAt.Format("2006-01-02 15:04 UTC"),
			})
		}
	}

	return result
}

func severityRank(s string) int {
	switch s {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for escalation metrics and alerts",
	Long: `Launch an interactive terminal dashboard showing how messages were resolved,
the session task list and active alerts.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
