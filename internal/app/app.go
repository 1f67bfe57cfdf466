package app

import (
	"io"
	"os"
)

// Application wires the client together: one session manager created at
// startup and passed down explicitly, one dispatcher, and the services on
// top of it.
type Application struct {
	Config     Config
	Logger     *Logger
	Store      *CredentialStore
	Session    *SessionManager
	Dispatcher *Dispatcher
	Auth       *AuthService
	Forecast   *ForecastService
	Chat       *AssistantChannel
}

func NewApplication(cfg Config) (*Application, error) {
	var out io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		out = f
	}
	logger := NewLogger(out)

	store := NewCredentialStore()
	session := NewSessionManager(store)
	dispatcher := NewDispatcher(cfg, session, logger)

	return &Application{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Session:    session,
		Dispatcher: dispatcher,
		Auth:       NewAuthService(dispatcher, session, logger),
		Forecast:   NewForecastService(dispatcher, session, logger),
		Chat:       NewAssistantChannel(dispatcher, logger),
	}, nil
}
