package notifications

import (
	"context"
	"sync"
	"time"
)

const defaultInboxLimit = 20

// Inbox buffers the most recent notifications per buyer until they are drained.
type Inbox struct {
	mu      sync.Mutex
	limit   int
	now     func() time.Time
	entries map[string][]Notification
}

// NewInbox returns an inbox keeping at most limit notifications per buyer.
func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	return &Inbox{
		limit:   limit,
		now:     time.Now,
		entries: make(map[string][]Notification),
	}
}

// For returns a notifier that files notifications under buyerID.
func (i *Inbox) For(buyerID string) Notifier {
	return buyerNotifier{inbox: i, buyerID: buyerID}
}

// Push files a notification for buyerID, evicting the oldest once the limit is reached.
func (i *Inbox) Push(buyerID string, n Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()

	queue := append(i.entries[buyerID], n)
	if overflow := len(queue) - i.limit; overflow > 0 {
		queue = append([]Notification(nil), queue[overflow:]...)
	}
	i.entries[buyerID] = queue
}

// Drain returns and clears the buyer's pending notifications, oldest first.
func (i *Inbox) Drain(buyerID string) []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()

	queue := i.entries[buyerID]
	delete(i.entries, buyerID)
	if queue == nil {
		return []Notification{}
	}
	return queue
}

// Pending reports how many notifications wait for buyerID.
func (i *Inbox) Pending(buyerID string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.entries[buyerID])
}

type buyerNotifier struct {
	inbox   *Inbox
	buyerID string
}

func (b buyerNotifier) NotifyError(_ context.Context, title, message string) error {
	b.inbox.Push(b.buyerID, newNotification(LevelError, title, message, b.inbox.now()))
	return nil
}
