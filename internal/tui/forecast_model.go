package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ClimateViz-integrator/climateviz-app/internal/app"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type forecastDoneMsg struct {
	forecast app.Forecast
	err      error
}

const (
	focusCity = iota
	focusDays
)

// ForecastModel is the prediction pane: a small city/days form on top, and
// once a forecast arrives, day tabs plus an hour cursor over the selected
// day's readings.
type ForecastModel struct {
	app   *app.Application
	theme Theme

	cityInput textinput.Model
	daysInput textinput.Model
	focus     int

	loading bool
	banner  string
	notice  string

	forecast *app.Forecast
	groups   []app.DayGroup
	dayIdx   int

	width  int
	height int
}

func NewForecastModel(application *app.Application, theme Theme) *ForecastModel {
	city := textinput.New()
	city.Placeholder = "Ciudad"
	city.CharLimit = 80
	city.Width = 24
	city.Focus()
	if application.Config.DefaultCity != "" {
		city.SetValue(application.Config.DefaultCity)
	}

	days := textinput.New()
	days.Placeholder = "Días"
	days.CharLimit = 2
	days.Width = 4
	days.SetValue("1")

	return &ForecastModel{app: application, theme: theme, cityInput: city, daysInput: days}
}

func (m *ForecastModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *ForecastModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *ForecastModel) Update(msg tea.Msg) (*ForecastModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "shift+tab":
			m.toggleFocus()
			return m, nil
		case "enter":
			return m, m.onSubmit()
		case "esc":
			m.banner = ""
			m.notice = ""
			return m, nil
		case "left":
			m.moveCursor(-1)
			return m, nil
		case "right":
			m.moveCursor(1)
			return m, nil
		case "[", "shift+left":
			m.switchDay(-1)
			return m, nil
		case "]", "shift+right":
			m.switchDay(1)
			return m, nil
		}

	case forecastDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.applyFailure(msg.err)
			return m, nil
		}
		f := msg.forecast
		m.forecast = &f
		m.groups = app.GroupByDay(f.Hours)
		m.dayIdx = 0
		m.banner = ""
		m.notice = ""
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == focusCity {
		m.cityInput, cmd = m.cityInput.Update(msg)
	} else {
		m.daysInput, cmd = m.daysInput.Update(msg)
	}
	return m, cmd
}

func (m *ForecastModel) toggleFocus() {
	if m.focus == focusCity {
		m.focus = focusDays
		m.cityInput.Blur()
		m.daysInput.Focus()
	} else {
		m.focus = focusCity
		m.daysInput.Blur()
		m.cityInput.Focus()
	}
}

func (m *ForecastModel) onSubmit() tea.Cmd {
	if m.loading {
		return nil
	}
	city := strings.TrimSpace(m.cityInput.Value())
	if city == "" {
		m.banner = "Ingresa el nombre de una ciudad."
		return nil
	}
	days, err := strconv.Atoi(strings.TrimSpace(m.daysInput.Value()))
	if err != nil || days < 1 {
		m.banner = "El número de días debe ser un entero positivo."
		return nil
	}
	m.loading = true
	m.banner = ""
	m.notice = ""
	return func() tea.Msg {
		f, err := m.app.Forecast.Predict(context.Background(), city, days)
		return forecastDoneMsg{forecast: f, err: err}
	}
}

// applyFailure splits the taxonomy: auth refusals become a notice inviting
// sign-in, quota and domain rejections surface verbatim, transport problems
// get the generic line. An existing forecast stays on screen throughout.
func (m *ForecastModel) applyFailure(err error) {
	var quota *app.ErrQuotaExceeded
	if errors.As(err, &quota) {
		// The sign-in invitation only makes sense below the signed-in ceiling.
		if quota.Max >= app.MaxDaysAuthenticated {
			m.notice = fmt.Sprintf("Solo puedes consultar hasta %d días de pronóstico.", quota.Max)
		} else {
			m.notice = fmt.Sprintf(
				"Solo puedes consultar hasta %d días. Inicia sesión para consultar hasta %d.",
				quota.Max, app.MaxDaysAuthenticated)
		}
		return
	}
	if app.IsAuthRequired(err) {
		m.notice = "Debes iniciar sesión para consultar más días de pronóstico."
		return
	}
	var reqErr *app.RequestError
	if errors.As(err, &reqErr) && reqErr.Kind == app.OutcomeDomainError {
		m.banner = reqErr.Message
		return
	}
	m.banner = "No se pudo obtener el pronóstico. Intenta de nuevo más tarde."
}

func (m *ForecastModel) moveCursor(delta int) {
	if m.forecast == nil {
		return
	}
	f := app.SelectHour(*m.forecast, m.forecast.SelectedHour+delta)
	m.forecast = &f
	m.dayIdx = m.dayOfCursor()
}

func (m *ForecastModel) switchDay(delta int) {
	if m.forecast == nil || len(m.groups) == 0 {
		return
	}
	next := m.dayIdx + delta
	if next < 0 || next >= len(m.groups) {
		return
	}
	m.dayIdx = next
	f := app.SetDay(*m.forecast, m.groups, next)
	m.forecast = &f
}

// dayOfCursor finds the day group the selected hour falls in, so arrowing
// across a midnight boundary moves the highlighted tab too.
func (m *ForecastModel) dayOfCursor() int {
	for i := len(m.groups) - 1; i >= 0; i-- {
		if m.forecast.SelectedHour >= m.groups[i].StartIndex {
			return i
		}
	}
	return 0
}

func (m *ForecastModel) View() string {
	var parts []string
	parts = append(parts, m.theme.PaneTitle.Render("Pronóstico"))
	parts = append(parts, m.renderForm())

	if m.banner != "" {
		parts = append(parts, m.theme.Banner.Render(m.banner+"  (Esc para cerrar)"))
	}
	if m.notice != "" {
		parts = append(parts, m.theme.Notice.Render(m.notice))
	}
	if m.loading {
		parts = append(parts, m.theme.Spinner.Render("consultando…"))
	}
	if m.forecast != nil {
		parts = append(parts, "", m.renderDayTabs(), "", m.renderDetail(), "", m.renderHourStrip())
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *ForecastModel) renderForm() string {
	quota := m.app.Session.MaxForecastDays()
	hint := m.theme.TopBarMeta.Render(fmt.Sprintf("máx. %d días", quota))
	return lipgloss.JoinHorizontal(lipgloss.Center,
		m.cityInput.View(), "  ", m.daysInput.View(), "  ", hint)
}

func (m *ForecastModel) renderDayTabs() string {
	tabs := make([]string, 0, len(m.groups))
	for i, g := range m.groups {
		style := m.theme.DayTab
		if i == m.dayIdx {
			style = m.theme.DayTabSel
		}
		tabs = append(tabs, style.Render(g.Label))
	}
	return strings.Join(tabs, "   ")
}

func (m *ForecastModel) renderDetail() string {
	f := m.forecast
	if len(f.Hours) == 0 {
		return m.theme.RoleSys.Render("Sin datos para esta consulta.")
	}
	h := f.Hours[f.SelectedHour]

	title := m.theme.TopBarTitle.Render(f.Location.Name)
	place := m.theme.TopBarMeta.Render(f.Location.Region + ", " + f.Location.Country)
	cond := fmt.Sprintf("%s %s", weatherIcon(h.TempC, h.Humidity, h.CloudCover),
		weatherCondition(h.TempC, h.Humidity, h.CloudCover))

	detail := fmt.Sprintf("%s  %.0f°C   💧 %.0f%%   💨 %.1f km/h   UV %.1f   ☁ %.0f%%",
		h.Time.Format("15:04"), h.TempC, h.Humidity, h.WindKPH, h.UVIndex, h.CloudCover)

	return lipgloss.JoinVertical(lipgloss.Left, title+"  "+place, cond, detail)
}

func (m *ForecastModel) renderHourStrip() string {
	if len(m.groups) == 0 || m.dayIdx >= len(m.groups) {
		return ""
	}
	g := m.groups[m.dayIdx]
	cells := make([]string, 0, len(g.Hours))
	for i, h := range g.Hours {
		cell := fmt.Sprintf("%s %.0f°", h.Time.Format("15:04"), h.TempC)
		if g.StartIndex+i == m.forecast.SelectedHour {
			cell = m.theme.HourCursor.Render("[" + cell + "]")
		} else {
			cell = m.theme.DayTab.Render(" " + cell + " ")
		}
		cells = append(cells, cell)
	}
	return strings.Join(cells, " ")
}

func weatherCondition(temp, humidity, cloud float64) string {
	switch {
	case temp < 5 && cloud > 80 && humidity > 70:
		return "Nieve o aguanieve"
	case temp > 30 && humidity > 60:
		return "Clima muy caluroso y húmedo"
	case cloud > 80 && humidity > 70:
		return "Tormentas eléctricas"
	case humidity > 70:
		return "Lluvia moderada"
	case temp < 10 && humidity > 80:
		return "Niebla densa"
	case cloud > 50:
		return "Parcialmente nublado"
	case temp > 35 && humidity < 40:
		return "Calor seco extremo"
	default:
		return "Despejado"
	}
}

func weatherIcon(temp, humidity, cloud float64) string {
	switch {
	case temp < 5 && cloud > 80 && humidity > 70:
		return "🌨️"
	case temp > 30 && humidity > 60:
		return "🥵"
	case cloud > 80 && humidity > 70:
		return "⛈️"
	case cloud > 80:
		return "🌩️"
	case humidity > 70:
		return "🌧️"
	case temp < 10 && humidity > 80:
		return "🌫️"
	case cloud > 50:
		return "⛅"
	case temp > 35 && humidity < 40:
		return "🔥"
	default:
		return "☀️"
	}
}
