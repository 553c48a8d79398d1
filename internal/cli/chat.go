package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/kiya/internal/core"
	"github.com/valter-silva-au/kiya/pkg/models"
)

// chromeHeight is the number of rows taken by the title, status, input and
// help lines around the transcript viewport.
const chromeHeight = 7

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	timeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type chatModel struct {
	ctx  context.Context
	conv *core.Conversation
	name string

	input    textinput.Model
	spin     spinner.Model
	view     viewport.Model
	ready    bool
	width    int
	pending  string
	working  bool
	lastErr  error
	lastStep models.Stage
}

// replyMsg carries a finished exchange back to the model.
type replyMsg struct {
	exchange core.Exchange
	err      error
}

func newChatModel(ctx context.Context, conv *core.Conversation, name string) chatModel {
	in := textinput.New()
	in.Placeholder = "Ask " + name + " anything..."
	in.Prompt = "> "
	in.CharLimit = 2000
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))

	return chatModel{ctx: ctx, conv: conv, name: name, input: in, spin: sp}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+s":
			if sp := m.conv.Speech(); sp != nil {
				sp.Stop()
			}
			return m, nil
		case "ctrl+t":
			if sp := m.conv.Speech(); sp != nil {
				sp.ToggleMute()
			}
			return m, nil
		case "ctrl+l":
			if m.working {
				return m, nil
			}
			m.conv.StartNew()
			m.lastErr = nil
			m.refresh()
			return m, nil
		case "enter":
			if m.working {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			m.input.Blur()
			m.working = true
			m.pending = text
			m.lastErr = nil
			m.refresh()
			return m, tea.Batch(m.spin.Tick, submit(m.ctx, m.conv, text))
		}
		if m.working {
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		h := msg.Height - chromeHeight
		if h < 3 {
			h = 3
		}
		if !m.ready {
			m.view = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = h
		}
		m.input.Width = msg.Width - 4
		m.refresh()
		return m, nil

	case replyMsg:
		m.working = false
		m.pending = ""
		m.lastErr = msg.err
		if msg.err == nil {
			m.lastStep = msg.exchange.Outcome.Stage
		}
		m.refresh()
		return m, m.input.Focus()

	case spinner.TickMsg:
		if !m.working {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.ready {
		m.view, cmd = m.view.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (m *chatModel) refresh() {
	if !m.ready {
		return
	}
	m.view.SetContent(renderTranscript(m.conv.History().Messages(), m.pending, m.name, m.width))
	m.view.GotoBottom()
}

func (m chatModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := titleStyle.Render(" " + m.name + " ")
	status := helpStyle.Render(m.statusLine())
	help := helpStyle.Render("enter: send | ctrl+s: stop speech | ctrl+t: mute | ctrl+l: new chat | esc: quit")

	var line string
	switch {
	case m.working:
		line = m.spin.View() + " " + m.name + " is thinking..."
	case m.lastErr != nil:
		line = errorStyle.Render("Error: " + m.lastErr.Error())
	default:
		line = m.input.View()
	}

	return fmt.Sprintf("%s %s\n\n%s\n\n%s\n%s", title, status, m.view.View(), line, help)
}

func (m chatModel) statusLine() string {
	parts := []string{}
	if sp := m.conv.Speech(); sp != nil {
		if sp.IsMuted() {
			parts = append(parts, "muted")
		} else {
			parts = append(parts, "speech: "+sp.State().String())
		}
	}
	if m.lastStep != "" {
		parts = append(parts, "last: "+string(m.lastStep))
	}
	return strings.Join(parts, " | ")
}

func submit(ctx context.Context, conv *core.Conversation, text string) tea.Cmd {
	return func() tea.Msg {
		ex, err := conv.Submit(ctx, text)
		return replyMsg{exchange: ex, err: err}
	}
}

// renderTranscript formats messages oldest first, followed by a pending user
// message that has not been answered yet.
func renderTranscript(msgs []models.Message, pending, name string, width int) string {
	if len(msgs) == 0 && pending == "" {
		return helpStyle.Render("  Say hello, or try \"add task buy milk\".")
	}

	wrap := lipgloss.NewStyle()
	if width > 4 {
		wrap = wrap.Width(width - 2)
	}

	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString(renderMessage(msg.Role, msg.Content, timeStyle.Render(msg.Timestamp.Local().Format("15:04")), name, wrap))
	}
	if pending != "" {
		b.WriteString(renderMessage(models.RoleUser, pending, "", name, wrap))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderMessage(role models.Role, content, stamp, name string, wrap lipgloss.Style) string {
	label := userStyle.Render("You")
	if role == models.RoleAssistant {
		label = assistantStyle.Render(name)
	}
	header := label
	if stamp != "" {
		header += " " + stamp
	}
	return header + "\n" + wrap.Render(content) + "\n\n"
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat terminal",
	Long: `Open a full-screen chat with the assistant.

The transcript is restored from the previous session. While a reply is being
resolved the input is disabled. ctrl+s stops speech, ctrl+t toggles mute and
ctrl+l starts a new conversation.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Conversation == nil {
			return fmt.Errorf("conversation not initialized")
		}
		p := tea.NewProgram(newChatModel(commandContext(cmd), Conversation, assistantName()), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

// assistantName returns the configured display name.
func assistantName() string {
	if Config != nil && Config.AssistantName != "" {
		return Config.AssistantName
	}
	return "KIYA"
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
