// Package notify delivers user-visible messages about quote operations.
package notify

import (
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Level is the kind of notification, as shown by the form's toasts.
type Level string

const (
	Success Level = "success"
	Error   Level = "error"
	Warning Level = "warning"
	Info    Level = "info"
)

// Notification is one message for the user.
type Notification struct {
	Level     Level     `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier receives notifications. Implementations must not block for long.
type Notifier interface {
	Notify(n Notification)
}

// Log writes notifications to the structured log.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log.With(zap.String("component", "notify"))}
}

func (l *Log) Notify(n Notification) {
	fields := []zap.Field{zap.String("level", string(n.Level)), zap.String("message", n.Message)}
	switch n.Level {
	case Error:
		l.log.Error("notification", fields...)
	case Warning:
		l.log.Warn("notification", fields...)
	default:
		l.log.Info("notification", fields...)
	}
}

// Desktop raises an OS notification for every message.
type Desktop struct {
	title string
	log   *zap.Logger
	send  func(title, message string) error
}

func NewDesktop(title string, log *zap.Logger) *Desktop {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Devis"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Desktop{title: title, log: log, send: func(title, message string) error {
		return beeep.Notify(title, message, "")
	}}
}

func (d *Desktop) Notify(n Notification) {
	message := strings.TrimSpace(n.Message)
	if message == "" {
		message = string(n.Level)
	}
	if r := []rune(message); len(r) > 800 {
		message = string(r[:800]) + "..."
	}
	if err := d.send(d.title, message); err != nil {
		d.log.Debug("desktop notification failed", zap.Error(err))
	}
}

// Recorder keeps the most recent notifications so the form can poll them.
type Recorder struct {
	mu    sync.Mutex
	max   int
	items []Notification
}

func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 50
	}
	return &Recorder{max: limit}
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	if len(r.items) > r.max {
		r.items = r.items[len(r.items)-r.max:]
	}
}

// Drain returns the recorded notifications, oldest first, and forgets them.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, x := range m {
		if x != nil {
			x.Notify(n)
		}
	}
}
