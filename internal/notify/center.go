// Package notify queues the transient toast messages of a seller session
// until the front-end collects them.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Notification struct {
	ID        uuid.UUID `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultCapacity bounds the queue; the oldest entries are dropped first.
const DefaultCapacity = 50

type Center struct {
	logger   *zap.Logger
	capacity int
	now      func() time.Time

	mu    sync.Mutex
	queue []Notification
}

func New(capacity int, logger *zap.Logger) *Center {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Center{logger: logger, capacity: capacity, now: time.Now}
}

func (c *Center) Success(msg string) { c.push(LevelSuccess, msg) }
func (c *Center) Error(msg string)   { c.push(LevelError, msg) }
func (c *Center) Info(msg string)    { c.push(LevelInfo, msg) }

func (c *Center) push(level Level, msg string) {
	n := Notification{ID: uuid.New(), Level: level, Message: msg, CreatedAt: c.now()}

	c.mu.Lock()
	c.queue = append(c.queue, n)
	if over := len(c.queue) - c.capacity; over > 0 {
		c.queue = append([]Notification(nil), c.queue[over:]...)
	}
	c.mu.Unlock()

	c.logger.Debug("notification queued", zap.String("level", string(level)), zap.String("message", msg))
}

// Drain returns the queued notifications, oldest first, and empties the
// queue.
func (c *Center) Drain() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.queue
	c.queue = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

func (c *Center) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
