// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/signtutor/internal/model"
	"github.com/verte-zerg/signtutor/internal/session"
)

const (
	overlayWidth  = 32
	overlayHeight = 12
)

// Session is the command/event surface of a running practice session.
type Session interface {
	Dispatch(ctx context.Context, cmd session.Command) error
	Events() <-chan model.Event
}

type eventMsg struct {
	event model.Event
}

type eventsClosedMsg struct{}

type commandErrMsg struct {
	cmd session.Command
	err error
}

type keyMap struct {
	Camera key.Binding
	Stop   key.Binding
	Check  key.Binding
	Skip   key.Binding
	End    key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Camera, k.Stop, k.Check, k.Skip, k.End}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Quit}}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Camera: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "camera on")),
		Stop:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "camera off")),
		Check:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "check")),
		Skip:   key.NewBinding(key.WithKeys("s", "right"), key.WithHelp("s", "skip")),
		End:    key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "end session")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// Model implements the Bubble Tea practice UI.
type Model struct {
	ctx     context.Context
	session Session
	title   string
	overlay bool

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	width  int
	height int

	target      model.Target
	targetIndex int
	targetCount int

	attempts int
	correct  int

	verdict    model.Verdict
	hasVerdict bool

	detection    model.ClassificationResult
	hasDetection bool

	cameraOn  bool
	errMsg    string
	ended     bool
	completed bool
}

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	targetStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true).Padding(0, 2).Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#4A4A4A"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	overlayStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#40A9FF")).Border(lipgloss.NormalBorder(), true).BorderForeground(lipgloss.Color("#4A4A4A"))
)

// NewModel constructs a practice TUI bound to a started session.
func NewModel(ctx context.Context, s Session, title string, overlay bool) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = pendingStyle
	return &Model{
		ctx:     ctx,
		session: s,
		title:   title,
		overlay: overlay,
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: sp,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.session.Events()), m.spinner.Tick)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case eventMsg:
		m.applyEvent(msg.event)
		return m, waitForEvent(m.session.Events())
	case eventsClosedMsg:
		m.ended = true
		return m, nil
	case commandErrMsg:
		m.errMsg = fmt.Sprintf("%s: %v", msg.cmd, msg.err)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ended {
		return m, tea.Quit
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Sequence(m.dispatch(session.CmdEndSession), tea.Quit)
	case key.Matches(msg, m.keys.Camera):
		m.errMsg = ""
		return m, m.dispatch(session.CmdStartCamera)
	case key.Matches(msg, m.keys.Stop):
		return m, m.dispatch(session.CmdStopCamera)
	case key.Matches(msg, m.keys.Check):
		m.errMsg = ""
		return m, m.dispatch(session.CmdCheckNow)
	case key.Matches(msg, m.keys.Skip):
		return m, m.dispatch(session.CmdSkipTarget)
	case key.Matches(msg, m.keys.End):
		return m, m.dispatch(session.CmdEndSession)
	default:
		return m, nil
	}
}

func (m *Model) applyEvent(ev model.Event) {
	switch ev.Kind {
	case model.EventTargetChanged:
		m.target = ev.Target
		m.targetIndex = ev.TargetIndex
		m.targetCount = ev.TargetCount
		m.hasVerdict = false
	case model.EventVerdictDisplayed:
		m.verdict = ev.Verdict
		m.hasVerdict = true
	case model.EventVerdictCleared:
		m.hasVerdict = false
	case model.EventStatsUpdated:
		m.attempts = ev.Attempts
		m.correct = ev.Correct
	case model.EventDetectionUpdated:
		m.detection = ev.Detection
		m.hasDetection = true
	case model.EventCameraStateChanged:
		m.cameraOn = ev.CameraOn
		if !ev.CameraOn {
			m.hasDetection = false
		}
	case model.EventError:
		if ev.Err != nil {
			m.errMsg = ev.Err.Error()
		}
	case model.EventSessionEnded:
		m.ended = true
		m.completed = ev.Completed
		m.attempts = ev.Attempts
		m.correct = ev.Correct
		m.cameraOn = false
		m.hasVerdict = false
	}
}

func (m *Model) dispatch(cmd session.Command) tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		if err := s.Dispatch(ctx, cmd); err != nil {
			return commandErrMsg{cmd: cmd, err: err}
		}
		return nil
	}
}

func waitForEvent(ch <-chan model.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: ev}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	if m.ended {
		content = m.renderSummary()
	} else {
		content = m.renderPractice()
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - lipgloss.Height(footer)
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.PlaceHorizontal(m.width, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 60
	}
	w := int(float64(m.width) * 0.70)
	if w < 1 {
		w = 1
	}
	return w
}

func (m *Model) renderPractice() string {
	width := m.contentWidth()
	lines := []string{titleStyle.Render(m.title)}
	if m.targetCount > 0 {
		lines = append(lines, pendingStyle.Render(fmt.Sprintf("Sign %d of %d", m.targetIndex+1, m.targetCount)))
	}
	lines = append(lines, "", targetStyle.Render(m.target.Label))
	if m.target.Hint != "" {
		for _, line := range wrapText(m.target.Hint, width) {
			lines = append(lines, hintStyle.Render(line))
		}
	}
	if m.target.DisplayAsset != "" {
		lines = append(lines, pendingStyle.Render("Reference: "+m.target.DisplayAsset))
	}
	lines = append(lines, "", m.renderFeedback(width), m.renderDetection())
	if m.overlay && m.hasDetection && len(m.detection.Landmarks) > 0 {
		lines = append(lines, overlayStyle.Render(renderLandmarks(m.detection.Landmarks, overlayWidth, overlayHeight)))
	}
	if m.errMsg != "" {
		for _, line := range wrapText(m.errMsg, width) {
			lines = append(lines, incorrectStyle.Render(line))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderFeedback(width int) string {
	if m.hasVerdict {
		style := incorrectStyle
		mark := "✗"
		if m.verdict.IsCorrect {
			style = correctStyle
			mark = "✓"
		}
		return style.Render(mark + " " + strings.Join(wrapText(m.verdict.Message, width), "\n"))
	}
	if !m.cameraOn {
		return pendingStyle.Render("Camera off. Press c to start.")
	}
	return m.spinner.View() + pendingStyle.Render(" Show the sign to the camera")
}

func (m *Model) renderDetection() string {
	if !m.hasDetection || !m.detection.HandsDetected {
		return pendingStyle.Render("Hands: 0 · Confidence: 0% · Prediction: -")
	}
	prediction := m.detection.PredictedLabel
	if prediction == "" {
		prediction = "-"
	}
	return pendingStyle.Render(fmt.Sprintf("Hands: %d · Confidence: %.0f%% · Prediction: %s",
		m.detection.NumHands, m.detection.Confidence*100, prediction))
}

func (m *Model) renderSummary() string {
	heading := "Session ended"
	if m.completed {
		heading = "Module complete!"
	}
	lines := []string{
		titleStyle.Render(heading),
		"",
		fmt.Sprintf("Attempts: %d", m.attempts),
		fmt.Sprintf("Correct: %d", m.correct),
		fmt.Sprintf("Accuracy: %d%%", model.AccuracyPct(m.correct, m.attempts)),
		"",
		pendingStyle.Render("Press any key to exit."),
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderFooter() string {
	segments := []string{
		fmt.Sprintf("Attempts %d", m.attempts),
		fmt.Sprintf("Correct %d", m.correct),
		fmt.Sprintf("Accuracy %d%%", model.AccuracyPct(m.correct, m.attempts)),
	}
	stats := footerStyle.Render(strings.Join(segments, " · "))
	if m.ended {
		return stats
	}
	return stats + "\n" + m.help.View(m.keys)
}
