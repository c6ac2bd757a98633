package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"github.com/google/uuid"
)

// Level classifies a notification.
type Level string

const (
	LevelError Level = "error"
)

// Notification is a user-facing message raised outside the request that caused it.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Level     Level     `json:"level"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier delivers error notifications to the buyer.
type Notifier interface {
	NotifyError(ctx context.Context, title, message string) error
}

// LogNotifier writes every notification to the structured log.
type LogNotifier struct {
	logg *logger.Logger
}

// NewLogNotifier returns a notifier backed by logg.
func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) NotifyError(ctx context.Context, title, message string) error {
	if n == nil {
		return nil
	}
	ctx = n.logg.WithFields(ctx, map[string]any{
		"notification_title": title,
		"notification_level": string(LevelError),
	})
	n.logg.Warn(ctx, message)
	return nil
}

// Fanout delivers to every wrapped notifier and returns the first error.
type Fanout []Notifier

func (f Fanout) NotifyError(ctx context.Context, title, message string) error {
	var first error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.NotifyError(ctx, title, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func newNotification(level Level, title, message string, now time.Time) Notification {
	return Notification{
		ID:        uuid.New(),
		Level:     level,
		Title:     strings.TrimSpace(title),
		Message:   strings.TrimSpace(message),
		CreatedAt: now.UTC(),
	}
}
