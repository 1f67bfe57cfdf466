package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/ClimateViz-integrator/climateviz-app/internal/app"
)

func sampleForecast(t *testing.T) app.Forecast {
	t.Helper()
	parse := func(s string) time.Time {
		ts, err := time.Parse("2006-01-02T15:04:05", s)
		if err != nil {
			t.Fatal(err)
		}
		return ts
	}
	return app.Forecast{
		City: "Bogotá",
		Location: app.Location{
			Name: "Bogotá", Region: "Cundinamarca", Country: "Colombia",
		},
		Hours: []app.HourlyReading{
			{Time: parse("2026-01-05T22:00:00"), TempC: 14, Humidity: 80, CloudCover: 75},
			{Time: parse("2026-01-05T23:00:00"), TempC: 13, Humidity: 82, CloudCover: 80},
			{Time: parse("2026-01-06T00:00:00"), TempC: 12, Humidity: 85, CloudCover: 85},
		},
	}
}

func newTestForecastModel(t *testing.T) *ForecastModel {
	t.Helper()
	m := NewForecastModel(testApplication(t), NewTheme())
	m.SetSize(100, 30)
	return m
}

func TestForecastModel_ResultResetsCursorAndDay(t *testing.T) {
	m := newTestForecastModel(t)
	m.dayIdx = 3

	m, _ = m.Update(forecastDoneMsg{forecast: sampleForecast(t)})

	if m.forecast == nil || m.forecast.SelectedHour != 0 || m.dayIdx != 0 {
		t.Fatalf("result did not reset cursor: %+v dayIdx=%d", m.forecast, m.dayIdx)
	}
	if len(m.groups) != 2 {
		t.Fatalf("got %d day groups, want 2", len(m.groups))
	}
}

func TestForecastModel_CursorCrossesMidnight(t *testing.T) {
	m := newTestForecastModel(t)
	m, _ = m.Update(forecastDoneMsg{forecast: sampleForecast(t)})

	m.moveCursor(1)
	m.moveCursor(1)
	if m.forecast.SelectedHour != 2 {
		t.Fatalf("SelectedHour = %d, want 2", m.forecast.SelectedHour)
	}
	if m.dayIdx != 1 {
		t.Fatalf("day tab did not follow the cursor across midnight: dayIdx = %d", m.dayIdx)
	}

	// Clamped at the end.
	m.moveCursor(5)
	if m.forecast.SelectedHour != 2 {
		t.Fatalf("cursor escaped the range: %d", m.forecast.SelectedHour)
	}
}

func TestForecastModel_SwitchDayLandsOnFirstHour(t *testing.T) {
	m := newTestForecastModel(t)
	m, _ = m.Update(forecastDoneMsg{forecast: sampleForecast(t)})
	m.moveCursor(1)

	m.switchDay(1)
	if m.dayIdx != 1 || m.forecast.SelectedHour != 2 {
		t.Fatalf("switchDay(1): dayIdx=%d SelectedHour=%d", m.dayIdx, m.forecast.SelectedHour)
	}

	m.switchDay(1) // past the end, no-op
	if m.dayIdx != 1 {
		t.Fatalf("switchDay past the end moved the tab")
	}

	m.switchDay(-1)
	if m.dayIdx != 0 || m.forecast.SelectedHour != 0 {
		t.Fatalf("switchDay(-1): dayIdx=%d SelectedHour=%d", m.dayIdx, m.forecast.SelectedHour)
	}
}

func TestForecastModel_QuotaFailureKeepsForecast(t *testing.T) {
	m := newTestForecastModel(t)
	m, _ = m.Update(forecastDoneMsg{forecast: sampleForecast(t)})

	m.loading = true
	quota := &app.ErrQuotaExceeded{Requested: 5, Max: app.MaxDaysAnonymous}
	m, _ = m.Update(forecastDoneMsg{err: quota})

	if m.forecast == nil {
		t.Fatalf("failure discarded the previous forecast")
	}
	if m.notice == "" || !strings.Contains(m.notice, "Inicia sesión") {
		t.Fatalf("quota notice = %q", m.notice)
	}
	if m.banner != "" {
		t.Fatalf("quota refusal landed in the error banner")
	}
}

func TestForecastModel_QuotaNoticeAtSignedInCeiling(t *testing.T) {
	m := newTestForecastModel(t)
	m.loading = true
	quota := &app.ErrQuotaExceeded{Requested: 9, Max: app.MaxDaysAuthenticated}
	m, _ = m.Update(forecastDoneMsg{err: quota})

	// Already at the top tier: inviting a sign-in would be nonsense.
	if strings.Contains(m.notice, "Inicia sesión") {
		t.Fatalf("signed-in quota notice still invites a login: %q", m.notice)
	}
	if !strings.Contains(m.notice, "7") {
		t.Fatalf("quota notice missing the ceiling: %q", m.notice)
	}
}

func TestForecastModel_ConditionLabels(t *testing.T) {
	tests := []struct {
		name     string
		temp     float64
		humidity float64
		cloud    float64
		want     string
	}{
		{"snow", 2, 75, 85, "Nieve o aguanieve"},
		{"hot and humid", 32, 65, 10, "Clima muy caluroso y húmedo"},
		{"storm", 20, 75, 85, "Tormentas eléctricas"},
		{"rain", 20, 75, 40, "Lluvia moderada"},
		{"fog", 8, 85, 20, "Niebla densa"},
		{"partly cloudy", 20, 50, 60, "Parcialmente nublado"},
		{"dry heat", 38, 30, 10, "Calor seco extremo"},
		{"clear", 22, 40, 20, "Despejado"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := weatherCondition(tc.temp, tc.humidity, tc.cloud)
			if got != tc.want {
				t.Fatalf("weatherCondition(%v, %v, %v) = %q, want %q", tc.temp, tc.humidity, tc.cloud, got, tc.want)
			}
		})
	}
}
