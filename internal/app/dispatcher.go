package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// ContentTypeXLSX is the only binary payload the backend produces: the
// generated spreadsheet report.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Accept declares what a caller is prepared to receive.
type Accept int

const (
	AcceptJSON Accept = iota
	AcceptJSONOrBinary
)

// OutcomeKind tags the result of one HTTP exchange. Downstream code switches
// on the tag instead of re-inspecting headers.
type OutcomeKind int

const (
	OutcomeJSON OutcomeKind = iota
	OutcomeBinary
	OutcomeAuthRequired
	OutcomeDomainError
	OutcomeTransportError
)

// Outcome is the classified result of Dispatcher.Do.
type Outcome struct {
	Kind OutcomeKind

	JSON        json.RawMessage // OutcomeJSON
	Binary      []byte          // OutcomeBinary
	ContentType string          // OutcomeBinary

	Message string // OutcomeAuthRequired / OutcomeDomainError
	Err     error  // OutcomeTransportError
}

// errorEnvelope is the backend's structured rejection shape. The Spring layer
// answers {"error": ...}, the FastAPI layer {"detail": ...}; requiresAuth is
// set when the caller's tier is the problem.
type errorEnvelope struct {
	Error        string `json:"error"`
	Detail       string `json:"detail"`
	RequiresAuth bool   `json:"requiresAuth"`
}

func (e errorEnvelope) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Detail
}

// The backend signals tier problems with Spanish login/registration hints,
// sometimes inside a 200 envelope without the requiresAuth flag.
var authRequiredPattern = regexp.MustCompile(`(?i)(inici[ea]r? sesi[oó]n|debe estar autenticado|no esta registrado|reg[ií]strese)`)

// Dispatcher performs one HTTP exchange against the backend, attaching the
// bearer token when a session holds one, and classifies the response. It
// never mutates session state; callers decide what AuthRequired means for
// them.
type Dispatcher struct {
	baseURL string
	session *SessionManager
	http    *http.Client
	logger  *Logger
}

func NewDispatcher(cfg Config, session *SessionManager, logger *Logger) *Dispatcher {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		session: session,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With("dispatcher"),
	}
}

// Do sends one request. body may be nil; contentType describes the body.
func (d *Dispatcher) Do(ctx context.Context, method, path string, body io.Reader, contentType string, accept Accept) Outcome {
	url := d.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept == AcceptJSONOrBinary {
		req.Header.Set("Accept", "application/json, "+ContentTypeXLSX)
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if token := d.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		d.logger.Error("request failed", map[string]interface{}{"method": method, "path": path, "error": err.Error()})
		return Outcome{Kind: OutcomeTransportError, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, Err: fmt.Errorf("read response: %w", err)}
	}

	return d.classify(resp.StatusCode, resp.Header.Get("Content-Type"), payload, accept)
}

func (d *Dispatcher) classify(status int, declaredType string, payload []byte, accept Accept) Outcome {
	isBinary := strings.Contains(declaredType, ContentTypeXLSX)

	// A binary-typed success is final: never attempt a JSON parse on it.
	if accept == AcceptJSONOrBinary && isBinary && status < 300 {
		return Outcome{Kind: OutcomeBinary, Binary: payload, ContentType: ContentTypeXLSX}
	}

	// Anything else is text. An error can arrive as a binary-typed blob;
	// converting to text first makes it parse like any other envelope.
	var env errorEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return Outcome{Kind: OutcomeAuthRequired, Message: http.StatusText(status)}
		}
		return Outcome{Kind: OutcomeTransportError, Err: fmt.Errorf("malformed response (status %d): %w", status, err)}
	}

	msg := env.message()
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Outcome{Kind: OutcomeAuthRequired, Message: msg}
	case env.RequiresAuth:
		return Outcome{Kind: OutcomeAuthRequired, Message: msg}
	case msg != "" && authRequiredPattern.MatchString(msg):
		// Some endpoints whisper the refusal inside a 200 envelope.
		return Outcome{Kind: OutcomeAuthRequired, Message: msg}
	case msg != "":
		return Outcome{Kind: OutcomeDomainError, Message: msg}
	case status >= 300:
		return Outcome{Kind: OutcomeTransportError, Err: fmt.Errorf("unexpected status %d", status)}
	}

	return Outcome{Kind: OutcomeJSON, JSON: json.RawMessage(payload)}
}

// RequestError is a failed Outcome as an error, preserving the taxonomy so
// call sites can render each kind differently.
type RequestError struct {
	Kind    OutcomeKind
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case OutcomeAuthRequired:
		if e.Message != "" {
			return e.Message
		}
		return "authentication required"
	case OutcomeDomainError:
		return e.Message
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "request failed"
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

// AsError converts a non-success Outcome into a *RequestError, nil otherwise.
func (o Outcome) AsError() error {
	switch o.Kind {
	case OutcomeJSON, OutcomeBinary:
		return nil
	}
	return &RequestError{Kind: o.Kind, Message: o.Message, Err: o.Err}
}

// IsAuthRequired reports whether err is an auth-required outcome.
func IsAuthRequired(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Kind == OutcomeAuthRequired
}
