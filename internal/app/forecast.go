package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Location describes where a forecast applies, as the backend reports it.
type Location struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Timezone  string  `json:"tz_id"`
	Localtime string  `json:"localtime"`
}

// HourlyReading is one predicted hour. Immutable once received.
type HourlyReading struct {
	Time       time.Time
	TempC      float64
	Humidity   float64
	WindKPH    float64
	UVIndex    float64
	CloudCover float64
}

// Forecast is the reconciled multi-day result of one query. Hours spans all
// returned days in chronological order; SelectedHour cursors into it.
type Forecast struct {
	City         string
	Location     Location
	Hours        []HourlyReading
	SelectedHour int
}

// DayGroup is a contiguous run of hours sharing one calendar date, derived
// from Forecast.Hours and never stored.
type DayGroup struct {
	Date       string // YYYY-MM-DD
	Label      string // display form, e.g. "lunes, 2 de enero"
	Hours      []HourlyReading
	StartIndex int
}

var (
	spanishDays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

	spanishMonths = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio",
		"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

func dayLabel(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s", spanishDays[t.Weekday()], t.Day(), spanishMonths[t.Month()-1])
}

// GroupByDay partitions hours into runs of equal calendar date, scanning
// once. It is a pure function: same input, same groups, no hidden cache. The
// concatenation of all groups' hours reproduces the input exactly.
func GroupByDay(hours []HourlyReading) []DayGroup {
	var groups []DayGroup
	for i, hour := range hours {
		date := hour.Time.Format("2006-01-02")
		if len(groups) == 0 || groups[len(groups)-1].Date != date {
			groups = append(groups, DayGroup{
				Date:       date,
				Label:      dayLabel(hour.Time),
				StartIndex: i,
			})
		}
		last := len(groups) - 1
		groups[last].Hours = append(groups[last].Hours, hour)
	}
	return groups
}

// SelectHour returns the forecast with the cursor moved to index, clamped
// into the valid range. With no hours the cursor stays at zero and is
// meaningless.
func SelectHour(f Forecast, index int) Forecast {
	if len(f.Hours) == 0 {
		f.SelectedHour = 0
		return f
	}
	if index < 0 {
		index = 0
	}
	if index >= len(f.Hours) {
		index = len(f.Hours) - 1
	}
	f.SelectedHour = index
	return f
}

// SetDay moves the cursor to the first hour of the chosen day. Switching
// days always lands on that day's first hour.
func SetDay(f Forecast, groups []DayGroup, dayIndex int) Forecast {
	if dayIndex < 0 || dayIndex >= len(groups) {
		return f
	}
	return SelectHour(f, groups[dayIndex].StartIndex)
}

// Wire shapes for weather/predict. Hours arrive with predicted fields named
// after the model outputs.
type hourPayload struct {
	DateTime string  `json:"date_time"`
	TempPred float64 `json:"temp_pred"`
	HumPred  float64 `json:"humidity_pred"`
	WindKPH  float64 `json:"wind_kph"`
	UV       float64 `json:"uv"`
	Cloud    float64 `json:"cloud"`
}

type dayPayload struct {
	City     string        `json:"city"`
	Location Location      `json:"location"`
	Hours    []hourPayload `json:"hours"`
}

type predictResponse struct {
	Data []dayPayload `json:"data"`
}

// hourTimeLayouts covers the timestamp spellings the backend has produced.
var hourTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseHourTime(s string) (time.Time, error) {
	for _, layout := range hourTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FlattenDays concatenates each day's hours in the order received. The
// backend promises chronological order for both days and hours; no re-sort
// happens here.
func FlattenDays(days []dayPayload) ([]HourlyReading, error) {
	var hours []HourlyReading
	for _, day := range days {
		for _, h := range day.Hours {
			t, err := parseHourTime(h.DateTime)
			if err != nil {
				return nil, err
			}
			hours = append(hours, HourlyReading{
				Time:       t,
				TempC:      h.TempPred,
				Humidity:   h.HumPred,
				WindKPH:    h.WindKPH,
				UVIndex:    h.UV,
				CloudCover: h.Cloud,
			})
		}
	}
	return hours, nil
}

// ErrQuotaExceeded is the client-side ceiling on the forecast horizon.
type ErrQuotaExceeded struct {
	Requested int
	Max       int
}

func (e *ErrQuotaExceeded) Error() string {
	if e.Max >= MaxDaysAuthenticated {
		return fmt.Sprintf("forecast horizon of %d days exceeds the %d-day limit", e.Requested, e.Max)
	}
	return fmt.Sprintf("forecast horizon of %d days exceeds the %d-day limit for this session; log in for up to %d days",
		e.Requested, e.Max, MaxDaysAuthenticated)
}

// ForecastService fetches and reconciles forecasts.
type ForecastService struct {
	dispatcher *Dispatcher
	session    *SessionManager
	logger     *Logger
}

func NewForecastService(dispatcher *Dispatcher, session *SessionManager, logger *Logger) *ForecastService {
	return &ForecastService{
		dispatcher: dispatcher,
		session:    session,
		logger:     logger.With("forecast"),
	}
}

// Predict asks the backend for a multi-day forecast and flattens it into one
// Forecast. The day ceiling is checked before dispatch; the server's own
// AuthRequired answer still wins if the mirror has drifted.
func (s *ForecastService) Predict(ctx context.Context, city string, days int) (Forecast, error) {
	if strings.TrimSpace(city) == "" {
		return Forecast{}, fmt.Errorf("city is required")
	}
	if days < 1 {
		return Forecast{}, fmt.Errorf("days must be at least 1")
	}
	if max := s.session.MaxForecastDays(); days > max {
		return Forecast{}, &ErrQuotaExceeded{Requested: days, Max: max}
	}

	form := url.Values{}
	form.Set("city", city)
	form.Set("days", strconv.Itoa(days))
	out := s.dispatcher.Do(ctx, http.MethodPost, "weather/predict",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", AcceptJSON)
	if err := out.AsError(); err != nil {
		return Forecast{}, err
	}

	var resp predictResponse
	if err := json.Unmarshal(out.JSON, &resp); err != nil {
		return Forecast{}, &RequestError{Kind: OutcomeTransportError, Err: fmt.Errorf("malformed forecast payload: %w", err)}
	}
	if len(resp.Data) == 0 {
		return Forecast{}, &RequestError{Kind: OutcomeDomainError, Message: "no data for city " + city}
	}

	hours, err := FlattenDays(resp.Data)
	if err != nil {
		return Forecast{}, &RequestError{Kind: OutcomeTransportError, Err: err}
	}

	s.logger.Info("forecast", map[string]interface{}{"city": resp.Data[0].City, "days": days, "hours": len(hours)})
	return Forecast{
		City:     resp.Data[0].City,
		Location: resp.Data[0].Location,
		Hours:    hours,
	}, nil
}
