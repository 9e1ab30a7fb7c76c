// Package notify is the publish/subscribe channel for user-visible messages.
// Gateways, services and the reconciliation controller publish; the CLI (or
// any other front end) subscribes and renders them.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	ImageID string    `json:"image_id,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher is what producers depend on.
type Publisher interface {
	Publish(Notice)
}

type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Notice
	nextID int
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{subs: make(map[int]chan Notice), logger: logger}
}

// Publish fans n out to every subscriber without blocking. A subscriber whose
// buffer is full misses the notice; that is logged.
func (b *Bus) Publish(n Notice) {
	if n.At.IsZero() {
		n.At = time.Now()
	}

	// Subscribers render notices; the log only keeps a debug trail.
	attrs := []any{"level", string(n.Level), "message", n.Message}
	if n.ImageID != "" {
		attrs = append(attrs, "image_id", n.ImageID)
	}
	b.logger.Debug("notice published", attrs...)

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- n:
		default:
			b.logger.Warn("notice dropped for slow subscriber", "subscriber", id, "message", n.Message)
		}
	}
}

// Subscribe returns a channel of notices and a cancel func that closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Notice, func()) {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan Notice, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func Success(msg string) Notice { return Notice{Level: LevelSuccess, Message: msg} }
func Error(msg string) Notice   { return Notice{Level: LevelError, Message: msg} }
func Info(msg string) Notice    { return Notice{Level: LevelInfo, Message: msg} }
func Warning(msg string) Notice { return Notice{Level: LevelWarning, Message: msg} }
