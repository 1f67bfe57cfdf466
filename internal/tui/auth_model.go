package tui

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/ClimateViz-integrator/climateviz-app/internal/app"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// AuthView is the single modal selector. Exactly one view is open at a time;
// opening another replaces it.
type AuthView int

const (
	AuthNone AuthView = iota
	AuthLoginOpen
	AuthRegisterOpen
	AuthForgotOpen
)

type authDoneMsg struct {
	view    AuthView
	message string
	err     error
}

// AuthModel hosts the login, register and forgot-password forms. The parent
// model routes all key input here while view != AuthNone.
type AuthModel struct {
	app   *app.Application
	theme Theme

	view   AuthView
	inputs []textinput.Model
	focus  int

	remember bool
	terms    bool

	busy      bool
	banner    string
	info      string
	fieldErrs app.ValidationErrors
}

func NewAuthModel(application *app.Application, theme Theme) *AuthModel {
	return &AuthModel{app: application, theme: theme}
}

func (m *AuthModel) Open(view AuthView) {
	m.view = view
	m.focus = 0
	m.busy = false
	m.banner = ""
	m.info = ""
	m.fieldErrs = nil
	m.remember = false
	m.terms = false

	switch view {
	case AuthLoginOpen:
		m.inputs = newInputs("Correo", "Contraseña")
	case AuthRegisterOpen:
		m.inputs = newInputs("Correo", "Usuario", "Contraseña", "Confirmar contraseña")
	case AuthForgotOpen:
		m.inputs = newInputs("Correo")
	default:
		m.inputs = nil
	}
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
}

func newInputs(placeholders ...string) []textinput.Model {
	inputs := make([]textinput.Model, len(placeholders))
	for i, p := range placeholders {
		in := textinput.New()
		in.Placeholder = p
		in.CharLimit = 120
		in.Width = 32
		if strings.HasPrefix(p, "Contraseña") || strings.HasPrefix(p, "Confirmar") {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		inputs[i] = in
	}
	return inputs
}

func (m *AuthModel) Close() {
	m.view = AuthNone
	m.inputs = nil
}

func (m *AuthModel) Active() bool { return m.view != AuthNone }

func (m *AuthModel) Update(msg tea.Msg) (*AuthModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.Close()
			return m, nil
		case "tab", "down":
			m.cycleFocus(1)
			return m, nil
		case "shift+tab", "up":
			m.cycleFocus(-1)
			return m, nil
		case "ctrl+r":
			if m.view == AuthLoginOpen {
				m.remember = !m.remember
			}
			return m, nil
		case "ctrl+t":
			if m.view == AuthRegisterOpen {
				m.terms = !m.terms
			}
			return m, nil
		case "enter":
			return m, m.onSubmit()
		}

	case authDoneMsg:
		if msg.view != m.view {
			// A result for a form that was since replaced or closed.
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.applyFailure(msg.err)
			return m, nil
		}
		if m.view == AuthLoginOpen {
			m.Close()
			return m, nil
		}
		// Register and forgot-password leave a confirmation behind.
		m.info = msg.message
		return m, nil
	}

	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *AuthModel) cycleFocus(delta int) {
	if len(m.inputs) == 0 {
		return
	}
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
}

func (m *AuthModel) onSubmit() tea.Cmd {
	if m.busy {
		return nil
	}
	m.banner = ""
	m.fieldErrs = nil

	switch m.view {
	case AuthLoginOpen:
		email := strings.TrimSpace(m.inputs[0].Value())
		password := m.inputs[1].Value()
		if errs := app.ValidateLogin(email, password); len(errs) > 0 {
			m.fieldErrs = errs
			return nil
		}
		m.busy = true
		view, remember := m.view, m.remember
		return func() tea.Msg {
			_, err := m.app.Auth.Login(context.Background(), email, password, remember)
			return authDoneMsg{view: view, err: err}
		}

	case AuthRegisterOpen:
		email := strings.TrimSpace(m.inputs[0].Value())
		username := strings.TrimSpace(m.inputs[1].Value())
		password := m.inputs[2].Value()
		confirm := m.inputs[3].Value()
		if errs := app.ValidateRegistration(email, username, password, confirm, m.terms); len(errs) > 0 {
			m.fieldErrs = errs
			return nil
		}
		m.busy = true
		view, terms := m.view, m.terms
		return func() tea.Msg {
			res, err := m.app.Auth.Register(context.Background(), email, username, password, confirm, terms)
			return authDoneMsg{view: view, message: res.Message, err: err}
		}

	case AuthForgotOpen:
		email := strings.TrimSpace(m.inputs[0].Value())
		if email == "" {
			m.fieldErrs = app.ValidationErrors{"email": "El correo es obligatorio"}
			return nil
		}
		m.busy = true
		view := m.view
		return func() tea.Msg {
			err := m.app.Auth.ForgotPassword(context.Background(), email)
			return authDoneMsg{view: view, message: "Revisa tu correo para restablecer la contraseña.", err: err}
		}
	}
	return nil
}

// applyFailure renders a settled rejection. Server rejection text shows
// verbatim; only a login credential refusal gets the stock line, since the
// backend's 401 there describes the tier, not the mistake.
func (m *AuthModel) applyFailure(err error) {
	var fieldErrs app.ValidationErrors
	if errors.As(err, &fieldErrs) {
		m.fieldErrs = fieldErrs
		return
	}
	var reqErr *app.RequestError
	if errors.As(err, &reqErr) {
		if m.view == AuthLoginOpen && reqErr.Kind == app.OutcomeAuthRequired {
			m.banner = "Correo o contraseña incorrectos."
			return
		}
		if reqErr.Message != "" {
			m.banner = reqErr.Message
			return
		}
	}
	m.banner = "No se pudo completar la operación. Intenta de nuevo más tarde."
}

func (m *AuthModel) View() string {
	if m.view == AuthNone {
		return ""
	}
	var parts []string
	parts = append(parts, m.theme.TopBarTitle.Render(m.title()))
	for _, in := range m.inputs {
		parts = append(parts, in.View())
	}

	switch m.view {
	case AuthLoginOpen:
		parts = append(parts, m.theme.TopBarMeta.Render(checkbox(m.remember)+" Recordarme (Ctrl+R)"))
	case AuthRegisterOpen:
		parts = append(parts, m.theme.TopBarMeta.Render(checkbox(m.terms)+" Acepto los términos (Ctrl+T)"))
	}

	if len(m.fieldErrs) > 0 {
		fields := make([]string, 0, len(m.fieldErrs))
		for f := range m.fieldErrs {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			parts = append(parts, m.theme.Banner.Render("• "+m.fieldErrs[f]))
		}
	}
	if m.banner != "" {
		parts = append(parts, m.theme.Banner.Render(m.banner))
	}
	if m.info != "" {
		parts = append(parts, m.theme.Attachment.Render(m.info))
	}
	if m.busy {
		parts = append(parts, m.theme.Spinner.Render("enviando…"))
	}
	parts = append(parts, m.theme.Footer.Render("Enter enviar · Tab campo · Esc cerrar"))

	body := lipgloss.JoinVertical(lipgloss.Left, parts...)
	return m.theme.PaneFocused.Render(body)
}

func (m *AuthModel) title() string {
	switch m.view {
	case AuthLoginOpen:
		return "Iniciar sesión"
	case AuthRegisterOpen:
		return "Crear cuenta"
	case AuthForgotOpen:
		return "Recuperar contraseña"
	}
	return ""
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}
