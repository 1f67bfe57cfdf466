package tui

import (
	"fmt"
	"strings"

	"github.com/ClimateViz-integrator/climateviz-app/internal/app"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type pane int

const (
	paneChat pane = iota
	paneForecast
)

type keyMap struct {
	Quit       key.Binding
	SwitchPane key.Binding
	Login      key.Binding
	Register   key.Binding
	Forgot     key.Binding
	Logout     key.Binding
	Help       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "salir"),
		),
		SwitchPane: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "cambiar panel"),
		),
		Login: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "iniciar sesión"),
		),
		Register: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "crear cuenta"),
		),
		Forgot: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("ctrl+f", "recuperar contraseña"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "cerrar sesión"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "ayuda"),
		),
	}
}

// MainModel composes the two panes and the auth modal. While the modal is
// open it captures everything except quit.
type MainModel struct {
	app   *app.Application
	theme Theme
	keys  keyMap

	chat     *ChatModel
	forecast *ForecastModel
	auth     *AuthModel

	active   pane
	showHelp bool

	width  int
	height int
}

func NewMainModel(application *app.Application) *MainModel {
	theme := NewTheme()
	return &MainModel{
		app:      application,
		theme:    theme,
		keys:     defaultKeyMap(),
		chat:     NewChatModel(application, theme),
		forecast: NewForecastModel(application, theme),
		auth:     NewAuthModel(application, theme),
		active:   paneChat,
		width:    100,
		height:   30,
	}
}

func (m *MainModel) Init() tea.Cmd {
	return m.chat.Init()
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		inner := msg.Height - 4
		m.chat.SetSize(msg.Width, inner)
		m.forecast.SetSize(msg.Width, inner)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.chat.Dispose()
			return m, tea.Quit
		}
		if m.auth.Active() {
			var cmd tea.Cmd
			m.auth, cmd = m.auth.Update(msg)
			return m, cmd
		}
		switch {
		case key.Matches(msg, m.keys.SwitchPane):
			if m.active == paneChat {
				m.active = paneForecast
			} else {
				m.active = paneChat
			}
			return m, nil
		case key.Matches(msg, m.keys.Login):
			m.auth.Open(AuthLoginOpen)
			return m, nil
		case key.Matches(msg, m.keys.Register):
			m.auth.Open(AuthRegisterOpen)
			return m, nil
		case key.Matches(msg, m.keys.Forgot):
			m.auth.Open(AuthForgotOpen)
			return m, nil
		case key.Matches(msg, m.keys.Logout):
			m.app.Auth.Logout()
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		}

	case authDoneMsg:
		var cmd tea.Cmd
		m.auth, cmd = m.auth.Update(msg)
		return m, cmd

	case chatDoneMsg, chatSpinMsg:
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd

	case forecastDoneMsg:
		var cmd tea.Cmd
		m.forecast, cmd = m.forecast.Update(msg)
		return m, cmd
	}

	if m.auth.Active() {
		var cmd tea.Cmd
		m.auth, cmd = m.auth.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	if m.active == paneChat {
		m.chat, cmd = m.chat.Update(msg)
	} else {
		m.forecast, cmd = m.forecast.Update(msg)
	}
	return m, cmd
}

func (m *MainModel) View() string {
	var body string
	switch {
	case m.auth.Active():
		body = lipgloss.Place(m.width, m.height-3, lipgloss.Center, lipgloss.Center, m.auth.View())
	case m.showHelp:
		body = m.helpView()
	case m.active == paneChat:
		body = m.chat.View()
	default:
		body = m.forecast.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.topBar(), body, m.footer())
}

func (m *MainModel) topBar() string {
	badge := m.theme.TopBarMeta.Render("anónimo")
	if m.app.Session.IsAuthenticated() {
		badge = m.theme.TopBarBadge.Render(m.app.Session.Current().Profile.Username)
	}
	paneName := "chat"
	if m.active == paneForecast {
		paneName = "pronóstico"
	}
	left := m.theme.TopBarTitle.Render("ClimaViz") + "  " + m.theme.TopBar.Render(paneName)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(badge) - 2
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + badge
}

func (m *MainModel) footer() string {
	bindings := []key.Binding{m.keys.SwitchPane, m.keys.Login, m.keys.Help, m.keys.Quit}
	if m.app.Session.IsAuthenticated() {
		bindings[1] = m.keys.Logout
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, fmt.Sprintf("%s %s", b.Help().Key, b.Help().Desc))
	}
	return m.theme.Footer.Render(strings.Join(parts, " · "))
}

func (m *MainModel) helpView() string {
	var b strings.Builder
	b.WriteString(m.theme.PaneTitle.Render("ayuda"))
	b.WriteString("\n\n")
	for _, binding := range []key.Binding{
		m.keys.SwitchPane, m.keys.Login, m.keys.Register,
		m.keys.Forgot, m.keys.Logout, m.keys.Help, m.keys.Quit,
	} {
		fmt.Fprintf(&b, "  %s  %s\n",
			m.theme.TopBarBadge.Render(binding.Help().Key), binding.Help().Desc)
	}
	b.WriteString("\n")
	b.WriteString(m.theme.TopBarMeta.Render("  en el chat: Enter envía, Ctrl+S guarda el reporte, Ctrl+O lo abre"))
	b.WriteString("\n")
	b.WriteString(m.theme.TopBarMeta.Render("  en pronóstico: ←/→ hora, [/] día, Enter consulta"))
	return b.String()
}

// Run starts the interactive UI and blocks until the user quits.
func Run(application *app.Application) error {
	p := tea.NewProgram(NewMainModel(application), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
