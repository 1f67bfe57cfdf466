package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sender distinguishes the two sides of the transcript.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Attachment is a binary report the assistant produced instead of a text
// answer. The payload is held in memory until released; Open schedules a
// release once the viewer owns the rendering.
type Attachment struct {
	ID       string
	Filename string
	Kind     string

	mu   sync.Mutex
	data []byte
}

const AttachmentKindExcel = "excel"

// defaultReleaseDelay matches the grace the original UI gave the second
// surface before revoking the object URL.
const defaultReleaseDelay = time.Second

// SaveTo writes the report to path.
func (a *Attachment) SaveTo(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data == nil {
		return errors.New("attachment already released")
	}
	return os.WriteFile(path, a.data, 0o644)
}

// Open writes the report to a temp file for an external viewer and releases
// the in-memory payload after delay. Returns the temp path.
func (a *Attachment) Open(delay time.Duration) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data == nil {
		return "", errors.New("attachment already released")
	}
	path := filepath.Join(os.TempDir(), a.Filename)
	if err := os.WriteFile(path, a.data, 0o644); err != nil {
		return "", err
	}
	if delay <= 0 {
		delay = defaultReleaseDelay
	}
	time.AfterFunc(delay, a.Release)
	return path, nil
}

// Release drops the payload. Safe to call more than once.
func (a *Attachment) Release() {
	a.mu.Lock()
	a.data = nil
	a.mu.Unlock()
}

// Released reports whether the payload has been dropped.
func (a *Attachment) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.data == nil
}

// AssistantMessage is one transcript entry. Entries are appended, never
// mutated.
type AssistantMessage struct {
	ID         string
	Sender     Sender
	Text       string
	Time       time.Time
	Refusal    bool
	Attachment *Attachment
}

// SendResult tags how a send settled.
type SendResult int

const (
	ResultAnswered SendResult = iota
	ResultAttachmentReady
	ResultRefused
	ResultFailed
)

// attachmentNotice is the bot line accompanying a generated report.
const attachmentNotice = "He generado tu reporte de clima. Puedes descargarlo o abrirlo directamente."

// AssistantChannel sends utterances to the backend assistant and maintains
// the append-only transcript. One send is in flight at a time; callers
// disable the submit affordance while pending.
type AssistantChannel struct {
	dispatcher *Dispatcher
	logger     *Logger

	mu       sync.Mutex
	messages []AssistantMessage
	pending  bool

	releaseDelay time.Duration
	now          func() time.Time
}

func NewAssistantChannel(dispatcher *Dispatcher, logger *Logger) *AssistantChannel {
	return &AssistantChannel{
		dispatcher:   dispatcher,
		logger:       logger.With("chat"),
		releaseDelay: defaultReleaseDelay,
		now:          time.Now,
	}
}

// Messages returns a copy of the transcript in append order.
func (c *AssistantChannel) Messages() []AssistantMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]AssistantMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Pending reports whether a send is in flight.
func (c *AssistantChannel) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

var ErrSendInFlight = errors.New("a message is already in flight")

// Send posts one utterance. The user message is appended before dispatch and
// never rolled back; a refusal or answer lands as a bot message, a failure
// is returned for the caller to surface transiently.
func (c *AssistantChannel) Send(ctx context.Context, text string) (SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ResultFailed, errors.New("empty message")
	}

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return ResultFailed, ErrSendInFlight
	}
	c.pending = true
	c.messages = append(c.messages, AssistantMessage{
		ID:     uuid.New().String(),
		Sender: SenderUser,
		Text:   text,
		Time:   c.now(),
	})
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.pending = false
		c.mu.Unlock()
	}()

	body, _ := json.Marshal(map[string]string{"message": text})
	out := c.dispatcher.Do(ctx, http.MethodPost, "chat/send", bytes.NewReader(body), "application/json", AcceptJSONOrBinary)

	switch out.Kind {
	case OutcomeBinary:
		att := &Attachment{
			ID:       uuid.New().String(),
			Filename: reportFilename(c.now()),
			Kind:     AttachmentKindExcel,
			data:     out.Binary,
		}
		c.appendBot(AssistantMessage{Text: attachmentNotice, Attachment: att})
		return ResultAttachmentReady, nil

	case OutcomeJSON:
		var resp struct {
			Response string `json:"response"`
		}
		if err := json.Unmarshal(out.JSON, &resp); err != nil {
			return ResultFailed, &RequestError{Kind: OutcomeTransportError, Err: fmt.Errorf("malformed chat payload: %w", err)}
		}
		reply := resp.Response
		if reply == "" {
			reply = "Respuesta recibida"
		}
		c.appendBot(AssistantMessage{Text: reply})
		return ResultAnswered, nil

	case OutcomeAuthRequired:
		// A capability boundary, not an error. Not retried.
		c.appendBot(AssistantMessage{Text: out.Message, Refusal: true})
		return ResultRefused, nil

	default:
		c.logger.Error("send failed", map[string]interface{}{"kind": int(out.Kind), "error": fmt.Sprint(out.AsError())})
		return ResultFailed, out.AsError()
	}
}

func (c *AssistantChannel) appendBot(msg AssistantMessage) {
	msg.ID = uuid.New().String()
	msg.Sender = SenderBot
	msg.Time = c.now()
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
}

func reportFilename(t time.Time) string {
	return "reporte_clima_" + t.UTC().Format("2006-01-02T15-04-05") + ".xlsx"
}
