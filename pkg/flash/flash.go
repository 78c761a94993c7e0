package flash

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JamesRaphaelJRC/guildme/pkg/log"
	"github.com/JamesRaphaelJRC/guildme/pkg/metrics"
	"github.com/JamesRaphaelJRC/guildme/pkg/push"
)

// DismissAfter is how long a transient message stays visible.
const DismissAfter = 3 * time.Second

// Severity of a transient message.
type Severity string

const (
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

// Message is one transient user-visible line.
type Message struct {
	ID       string
	Severity Severity
	Text     string
}

// Sink renders transient messages. The daemon installs a console sink;
// tests install recorders.
type Sink interface {
	Show(msg Message)
	Hide(id string)
}

// Notifier is the narrow interface engines use to surface one-line
// failures and confirmations. All user-visible failures funnel through it
// rather than per-feature UI.
type Notifier interface {
	Error(text string)
	Success(text string)
}

// Surface is the single transient-message surface shared by every engine.
// Messages auto-dismiss after DismissAfter.
type Surface struct {
	sink Sink

	mu     sync.Mutex
	timers map[string]*time.Timer
	ttl    time.Duration
}

// NewSurface creates a surface rendering through sink.
func NewSurface(sink Sink) *Surface {
	return NewSurfaceWithDismiss(sink, DismissAfter)
}

// NewSurfaceWithDismiss creates a surface with a custom dismiss interval.
func NewSurfaceWithDismiss(sink Sink, ttl time.Duration) *Surface {
	return &Surface{
		sink:   sink,
		timers: make(map[string]*time.Timer),
		ttl:    ttl,
	}
}

// Error shows a red one-liner.
func (s *Surface) Error(text string) {
	s.show(Message{ID: uuid.NewString(), Severity: SeverityError, Text: text})
}

// Success shows a green one-liner.
func (s *Surface) Success(text string) {
	s.show(Message{ID: uuid.NewString(), Severity: SeveritySuccess, Text: text})
}

func (s *Surface) show(msg Message) {
	metrics.FlashMessagesTotal.WithLabelValues(string(msg.Severity)).Inc()
	s.sink.Show(msg)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[msg.ID] = time.AfterFunc(s.ttl, func() {
		s.sink.Hide(msg.ID)
		s.mu.Lock()
		delete(s.timers, msg.ID)
		s.mu.Unlock()
	})
}

// Attach routes the backend's error and success push events onto the
// surface.
func (s *Surface) Attach(ch *push.Channel) {
	ch.Handle(push.EventError, func(data json.RawMessage) {
		if text, ok := decodeText(data); ok {
			s.Error(text)
		}
	})
	ch.Handle(push.EventSuccess, func(data json.RawMessage) {
		if text, ok := decodeText(data); ok {
			s.Success(text)
		}
	})
}

func decodeText(data json.RawMessage) (string, bool) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		logger := log.WithComponent("flash")
		logger.Warn().Err(err).Msg("malformed flash payload")
		return "", false
	}
	return payload.Message, true
}
