package tui

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ClimateViz-integrator/climateviz-app/internal/app"

	tea "github.com/charmbracelet/bubbletea"
)

func testApplication(t *testing.T) *app.Application {
	t.Helper()
	return testApplicationAt(t, "")
}

func testApplicationAt(t *testing.T, baseURL string) *app.Application {
	t.Helper()
	base := t.TempDir()
	store := &app.CredentialStore{
		DurableDir: filepath.Join(base, "durable"),
		SessionDir: filepath.Join(base, "session"),
	}
	logger := app.NewLogger(io.Discard)
	session := app.NewSessionManager(store)
	cfg := app.DefaultConfig()
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	dispatcher := app.NewDispatcher(cfg, session, logger)

	return &app.Application{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Session:    session,
		Dispatcher: dispatcher,
		Auth:       app.NewAuthService(dispatcher, session, logger),
		Forecast:   app.NewForecastService(dispatcher, session, logger),
		Chat:       app.NewAssistantChannel(dispatcher, logger),
	}
}

func newTestChatModel(t *testing.T) *ChatModel {
	t.Helper()
	m := NewChatModel(testApplication(t), NewTheme())
	m.SetSize(100, 30)
	return m
}

func TestChatModel_SubmitDisabledWhilePending(t *testing.T) {
	m := newTestChatModel(t)
	m.sending = true
	m.input.SetValue("segundo mensaje")

	if cmd := m.onEnter(); cmd != nil {
		t.Fatalf("onEnter() returned a command while a send is pending")
	}
	if got := m.input.Value(); got != "segundo mensaje" {
		t.Fatalf("input was consumed while pending: %q", got)
	}
}

func TestChatModel_TypingIndicatorOccupiesTail(t *testing.T) {
	m := newTestChatModel(t)
	m.sending = true
	m.refresh()

	if !strings.Contains(m.vp.View(), "escribiendo") {
		t.Fatalf("transcript tail missing the typing indicator")
	}

	m, _ = m.Update(chatDoneMsg{result: app.ResultAnswered})
	if strings.Contains(m.vp.View(), "escribiendo") {
		t.Fatalf("typing indicator survived the send settling")
	}
}

func TestChatModel_FailureBannerIsDismissible(t *testing.T) {
	m := newTestChatModel(t)
	m.sending = true

	reqErr := &app.RequestError{Kind: app.OutcomeDomainError, Message: "Ciudad no encontrada"}
	m, _ = m.Update(chatDoneMsg{result: app.ResultFailed, err: reqErr})

	if m.banner != "Ciudad no encontrada" {
		t.Fatalf("banner = %q, want the domain message", m.banner)
	}
	if !strings.Contains(m.View(), "Ciudad no encontrada") {
		t.Fatalf("banner not rendered")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.banner != "" {
		t.Fatalf("banner survived Esc")
	}
}

func TestChatModel_TransportFailureGetsGenericBanner(t *testing.T) {
	m := newTestChatModel(t)
	m.sending = true

	m, _ = m.Update(chatDoneMsg{result: app.ResultFailed, err: errors.New("connection refused")})

	if strings.Contains(m.banner, "connection refused") {
		t.Fatalf("raw transport error leaked into the banner: %q", m.banner)
	}
	if m.banner == "" {
		t.Fatalf("transport failure produced no banner")
	}
}

func newAttachmentChatModel(t *testing.T) *ChatModel {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", app.ContentTypeXLSX)
		_, _ = w.Write([]byte{0x50, 0x4b, 0x03, 0x04})
	}))
	t.Cleanup(srv.Close)

	m := NewChatModel(testApplicationAt(t, srv.URL), NewTheme())
	m.SetSize(100, 30)
	if _, err := m.app.Chat.Send(context.Background(), "dame un reporte"); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestChatModel_OpenAttachmentLaunchesViewer(t *testing.T) {
	m := newAttachmentChatModel(t)

	var opened string
	m.openViewer = func(path string) error {
		opened = path
		return nil
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	if opened == "" {
		t.Fatalf("viewer was not handed the report")
	}
	if !strings.HasSuffix(opened, ".xlsx") {
		t.Fatalf("viewer path = %q, want an .xlsx temp file", opened)
	}
	if _, err := os.Stat(opened); err != nil {
		t.Fatalf("report not on disk at %q: %v", opened, err)
	}
	if !strings.Contains(m.banner, opened) {
		t.Fatalf("banner %q does not surface the opened path", m.banner)
	}
}

func TestChatModel_ViewerFailureStillSurfacesPath(t *testing.T) {
	m := newAttachmentChatModel(t)
	m.openViewer = func(string) error { return errors.New("no viewer") }

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	if !strings.Contains(m.banner, ".xlsx") {
		t.Fatalf("banner %q does not point at the written file", m.banner)
	}
}

func TestChatModel_DisposedDiscardsLateResults(t *testing.T) {
	m := newTestChatModel(t)
	m.sending = true
	m.Dispose()

	m, _ = m.Update(chatDoneMsg{result: app.ResultFailed, err: errors.New("late")})
	if m.banner != "" {
		t.Fatalf("disposed model applied a late result")
	}
}
