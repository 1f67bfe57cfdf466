package tui

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/ClimateViz-integrator/climateviz-app/internal/app"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const chatWelcome = "¡Hola! Soy ClimateBot, tu asistente en predicción del clima. " +
	"Dime el nombre de la ciudad y el número de días para los cuales necesitas el pronóstico, " +
	"o pídeme un reporte de los datos climáticos."

type chatDoneMsg struct {
	result app.SendResult
	err    error
}

type chatSpinMsg struct{}

// ChatModel is the assistant conversation pane. The transcript lives in the
// AssistantChannel; this model renders it and owns the transient pieces: the
// typing indicator while a send is pending and the dismissible failure
// banner.
type ChatModel struct {
	app   *app.Application
	theme Theme

	input textarea.Model
	vp    viewport.Model
	ready bool

	width  int
	height int

	sending    bool
	spinnerPos int
	banner     string

	// disposed marks the model as unmounted; late results are discarded
	// instead of applied.
	disposed bool

	// openViewer hands a written temp file to the OS viewer. Swappable in
	// tests.
	openViewer func(path string) error
}

func NewChatModel(application *app.Application, theme Theme) *ChatModel {
	ta := textarea.New()
	ta.Placeholder = "Escribe un mensaje…"
	ta.Focus()
	ta.CharLimit = 2000
	ta.SetHeight(1)
	ta.Prompt = " "
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()

	return &ChatModel{app: application, theme: theme, input: ta, openViewer: openWithViewer}
}

func (m *ChatModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m *ChatModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	vpHeight := height - 5
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.vp = viewport.New(width-4, vpHeight)
		m.ready = true
	} else {
		m.vp.Width = width - 4
		m.vp.Height = vpHeight
	}
	m.input.SetWidth(maxInt(10, width-6))
	m.refresh()
}

// Dispose marks the pane unmounted so an in-flight send cannot touch it.
func (m *ChatModel) Dispose() { m.disposed = true }

func (m *ChatModel) Update(msg tea.Msg) (*ChatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			return m, m.onEnter()
		case "esc":
			// The banner clears independently of the transcript.
			m.banner = ""
			return m, nil
		case "ctrl+s":
			m.saveLastAttachment()
			return m, nil
		case "ctrl+o":
			m.openLastAttachment()
			return m, nil
		case "up":
			m.vp.LineUp(1)
			return m, nil
		case "down":
			m.vp.LineDown(1)
			return m, nil
		case "pgup":
			m.vp.ViewUp()
			return m, nil
		case "pgdown":
			m.vp.ViewDown()
			return m, nil
		}

	case chatDoneMsg:
		if m.disposed {
			return m, nil
		}
		m.sending = false
		if msg.err != nil {
			m.banner = failureText(msg.err)
		}
		m.refresh()
		m.vp.GotoBottom()
		return m, nil

	case chatSpinMsg:
		m.spinnerPos = (m.spinnerPos + 1) % len(spinnerFrames)
		if m.sending {
			m.refresh()
			return m, spinTick()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *ChatModel) onEnter() tea.Cmd {
	if m.sending {
		// Submit stays disabled while a send is pending.
		return nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	m.input.Reset()
	m.banner = ""
	m.sending = true
	m.spinnerPos = 0

	send := func() tea.Msg {
		res, err := m.app.Chat.Send(context.Background(), text)
		return chatDoneMsg{result: res, err: err}
	}
	// Send appends the user message before dispatch, so refresh right away.
	m.refresh()
	m.vp.GotoBottom()
	return tea.Batch(send, spinTick())
}

func (m *ChatModel) saveLastAttachment() {
	att := m.lastAttachment()
	if att == nil {
		return
	}
	if err := att.SaveTo(att.Filename); err != nil {
		m.banner = "No se pudo guardar el archivo: " + err.Error()
		return
	}
	m.banner = ""
	m.refresh()
}

func (m *ChatModel) openLastAttachment() {
	att := m.lastAttachment()
	if att == nil {
		return
	}
	path, err := att.Open(0)
	if err != nil {
		m.banner = "No se pudo abrir el archivo: " + err.Error()
		return
	}
	if err := m.openViewer(path); err != nil {
		// The file is already on disk; point the user at it.
		m.banner = "No se pudo abrir el visor. Archivo en: " + path
		m.refresh()
		return
	}
	m.banner = "Abriendo " + path
	m.refresh()
}

func (m *ChatModel) lastAttachment() *app.Attachment {
	msgs := m.app.Chat.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Attachment != nil {
			return msgs[i].Attachment
		}
	}
	return nil
}

func (m *ChatModel) refresh() {
	if !m.ready {
		return
	}
	width := m.vp.Width
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	msgs := m.app.Chat.Messages()
	if len(msgs) == 0 {
		b.WriteString(m.theme.RoleSys.Width(width).Render(chatWelcome))
		b.WriteString("\n\n")
	}
	for _, msg := range msgs {
		b.WriteString(m.renderMessage(msg, width))
		b.WriteString("\n\n")
	}
	// The typing indicator always occupies the tail position; it disappears
	// exactly when the next bot message is appended.
	if m.sending {
		b.WriteString(m.theme.Spinner.Render(spinnerFrames[m.spinnerPos] + " escribiendo…"))
	}
	m.vp.SetContent(strings.TrimRight(b.String(), "\n"))
}

func (m *ChatModel) renderMessage(msg app.AssistantMessage, width int) string {
	var head string
	switch {
	case msg.Sender == app.SenderUser:
		head = m.theme.RoleYou.Render("TÚ")
	case msg.Refusal:
		head = m.theme.RoleSys.Render("BOT")
	default:
		head = m.theme.RoleBot.Render("BOT")
	}
	header := head + " " + m.theme.TopBarMeta.Render(msg.Time.Format("15:04"))

	style := lipgloss.NewStyle().Foreground(m.theme.TextPrimary)
	if msg.Refusal {
		style = m.theme.Notice
	}
	body := style.Width(width).Render(msg.Text)

	if msg.Attachment != nil {
		status := "Ctrl+S guardar  Ctrl+O abrir"
		if msg.Attachment.Released() {
			status = "abierto"
		}
		body += "\n" + m.theme.Attachment.Render(fmt.Sprintf("📄 %s  (%s)", msg.Attachment.Filename, status))
	}
	return header + "\n" + body
}

func (m *ChatModel) View() string {
	if !m.ready {
		return "…"
	}
	var parts []string
	parts = append(parts, m.theme.PaneTitle.Render("ClimateBot"))
	parts = append(parts, m.vp.View())
	if m.banner != "" {
		parts = append(parts, m.theme.Banner.Render(m.banner+"  (Esc para cerrar)"))
	}
	box := m.theme.InputBox
	if !m.sending {
		box = m.theme.InputBoxF
	}
	parts = append(parts, box.Width(maxInt(10, m.width-4)).Render(m.input.View()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// openWithViewer launches the platform file opener detached; the viewer owns
// the file from here.
func openWithViewer(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func spinTick() tea.Cmd {
	return tea.Tick(90*time.Millisecond, func(time.Time) tea.Msg { return chatSpinMsg{} })
}

// failureText maps the error taxonomy to what the banner shows: domain
// rejections verbatim, transport problems as a generic retry-later line.
func failureText(err error) string {
	var reqErr *app.RequestError
	if errors.As(err, &reqErr) && reqErr.Kind == app.OutcomeDomainError {
		return reqErr.Message
	}
	return "Error al enviar el mensaje. Intenta de nuevo más tarde."
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
