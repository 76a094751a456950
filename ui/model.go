package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mbocsi/rosteleop/bridge"
	"github.com/mbocsi/rosteleop/broker"
	"github.com/mbocsi/rosteleop/services"
	"github.com/mbocsi/rosteleop/teleop"
)

const (
	angleStep      = 15.0
	recentMessages = 8
	previewWidth   = 48
)

// Streams is satisfied by *bridge.Manager.
type Streams interface {
	Events() *broker.Subscription[bridge.ConnectionEvent]
	Messages(buffer int) *broker.Subscription[bridge.ReceivedMessage]
}

type Model struct {
	services *services.ServiceContainer
	events   *broker.Subscription[bridge.ConnectionEvent]
	messages *broker.Subscription[bridge.ReceivedMessage]
	poses    *broker.Subscription[teleop.Position]
	tracker  *teleop.PoseTracker

	state     bridge.ConnectionState
	lastError string
	pose      teleop.Position
	hasPose   bool
	recent    []services.MessageInfo
	angle     float64
	feedback  FeedbackMsg

	keys    keyMap
	help    help.Model
	editing bool
	input   textinput.Model
}

// NewModel subscribes to the bridge streams. Call Close once the program
// has exited.
func NewModel(svc *services.ServiceContainer, streams Streams, pose *teleop.PoseTracker) Model {
	ti := textinput.New()
	ti.Placeholder = "ws://192.168.8.161:9090"
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		services: svc,
		events:   streams.Events(),
		messages: streams.Messages(0),
		keys:     defaultKeyMap(),
		help:     help.New(),
		input:    ti,
	}
	if pose != nil {
		m.tracker = pose
		m.poses = pose.Subscribe()
	}
	return m
}

// Close cancels the stream subscriptions
func (m Model) Close() {
	m.events.Cancel()
	m.messages.Cancel()
	if m.poses != nil {
		m.poses.Cancel()
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		listen(m.events, func(ev bridge.ConnectionEvent) tea.Msg { return EventMsg(ev) }),
		listen(m.messages, func(msg bridge.ReceivedMessage) tea.Msg { return MessageMsg(msg) }),
	}
	if m.poses != nil {
		cmds = append(cmds, listen(m.poses, func(p teleop.Position) tea.Msg { return PoseMsg(p) }))
	}
	return tea.Batch(cmds...)
}

// listen waits for the next value on sub
func listen[T any](sub *broker.Subscription[T], wrap func(T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-sub.C
		if !ok {
			return streamClosedMsg{}
		}
		return wrap(v)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EventMsg:
		m.state = msg.ConnectionState
		if msg.Kind == bridge.StateError {
			m.lastError = msg.Message
		}
		return m, listen(m.events, func(ev bridge.ConnectionEvent) tea.Msg { return EventMsg(ev) })

	case MessageMsg:
		m.recent = append(m.recent, services.MessageInfo{
			Topic:      msg.Event.Topic,
			Type:       msg.Event.Type,
			Msg:        msg.Event.Msg,
			ReceivedAt: bridge.ReceivedMessage(msg).ReceivedAtMillis(),
		})
		if len(m.recent) > recentMessages {
			m.recent = m.recent[len(m.recent)-recentMessages:]
		}
		return m, listen(m.messages, func(rm bridge.ReceivedMessage) tea.Msg { return MessageMsg(rm) })

	case PoseMsg:
		// The subscription is primed with the zero position before any
		// pose has arrived.
		if _, seen := m.tracker.Current(); seen {
			m.pose = teleop.Position(msg)
			m.hasPose = true
		}
		return m, listen(m.poses, func(p teleop.Position) tea.Msg { return PoseMsg(p) })

	case FeedbackMsg:
		m.feedback = msg
		return m, nil

	case streamClosedMsg:
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		return m, m.dpad(teleop.DirUp)
	case key.Matches(msg, m.keys.Down):
		return m, m.dpad(teleop.DirDown)
	case key.Matches(msg, m.keys.Left):
		return m, m.dpad(teleop.DirLeft)
	case key.Matches(msg, m.keys.Right):
		return m, m.dpad(teleop.DirRight)
	case key.Matches(msg, m.keys.Center):
		return m, m.dpad(teleop.DirCenter)
	case key.Matches(msg, m.keys.AngleUp):
		m.angle = wrapAngle(m.angle + angleStep)
		return m, m.sendAngle(m.angle)
	case key.Matches(msg, m.keys.AngleDown):
		m.angle = wrapAngle(m.angle - angleStep)
		return m, m.sendAngle(m.angle)
	case key.Matches(msg, m.keys.Reconnect):
		return m, m.connect("")
	case key.Matches(msg, m.keys.Clear):
		m.services.Teleop.ClearMessages()
		m.recent = nil
		m.feedback = FeedbackMsg{Text: "Cleared messages"}
		return m, nil
	case key.Matches(msg, m.keys.Endpoint):
		m.editing = true
		m.input.SetValue(m.services.Status.GetStatus().Endpoint)
		m.input.CursorEnd()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.editing = false
		m.input.Blur()
		return m, m.connect(strings.TrimSpace(m.input.Value()))
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) dpad(d teleop.Direction) tea.Cmd {
	teleopSvc := m.services.Teleop
	return func() tea.Msg {
		if err := teleopSvc.SendDPad(string(d)); err != nil {
			return FeedbackMsg{Err: err}
		}
		return FeedbackMsg{Text: "Sent " + string(d)}
	}
}

func (m Model) sendAngle(deg float64) tea.Cmd {
	teleopSvc := m.services.Teleop
	return func() tea.Msg {
		if err := teleopSvc.SetAngle(deg); err != nil {
			return FeedbackMsg{Err: err}
		}
		return FeedbackMsg{Text: fmt.Sprintf("Angle %.0f°", deg)}
	}
}

func (m Model) connect(endpoint string) tea.Cmd {
	status := m.services.Status
	return func() tea.Msg {
		if err := status.Connect(endpoint); err != nil {
			return FeedbackMsg{Err: err}
		}
		return FeedbackMsg{Text: "Connecting to " + status.GetStatus().Endpoint}
	}
}

func wrapAngle(deg float64) float64 {
	for deg < 0 {
		deg += 360
	}
	for deg >= 360 {
		deg -= 360
	}
	return deg
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("rosteleop"))
	b.WriteString("\n")

	status := m.services.Status.GetStatus()
	indicator := stateStyle(status.Connected, m.state.Kind == bridge.StateError).Render("● " + m.state.String())
	b.WriteString(row("Status", indicator))
	if m.editing {
		b.WriteString(row("Endpoint", m.input.View()))
	} else {
		b.WriteString(row("Endpoint", ValueStyle.Render(status.Endpoint)))
	}
	if m.lastError != "" {
		b.WriteString(row("Error", ErrorStyle.Render(m.lastError)))
	}

	pose := "waiting for pose"
	if m.hasPose {
		pose = fmt.Sprintf("x=%.2f  y=%.2f  θ=%.1f°", m.pose.X, m.pose.Y, m.pose.ThetaDeg)
	}
	b.WriteString(row("Pose", ValueStyle.Render(pose)))
	b.WriteString(row("Angle", ValueStyle.Render(fmt.Sprintf("%.0f°", m.angle))))

	var msgs strings.Builder
	if len(m.recent) == 0 {
		msgs.WriteString(FeedbackStyle.Render("no messages yet"))
	}
	for i, info := range m.recent {
		if i > 0 {
			msgs.WriteString("\n")
		}
		msgs.WriteString(TopicStyle.Render(info.Topic) + " " + preview(string(info.Msg)))
	}
	b.WriteString(SectionStyle.Render(msgs.String()))
	b.WriteString("\n")

	switch {
	case m.feedback.Err != nil:
		b.WriteString(ErrorStyle.Render(feedbackError(m.feedback.Err)))
	case m.feedback.Text != "":
		b.WriteString(FeedbackStyle.Render(m.feedback.Text))
	}

	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	return AppStyle.Render(b.String())
}

func row(label, value string) string {
	return LabelStyle.Render(label) + value + "\n"
}

func preview(s string) string {
	if len(s) > previewWidth {
		return s[:previewWidth-1] + "…"
	}
	return s
}

func feedbackError(err error) string {
	var serviceErr services.ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code + ": " + serviceErr.Error()
	}
	return err.Error()
}
