package capture

import (
	"errors"
	"sync"
)

// Level is the severity of a user notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notification is a non-blocking message shown to the user.
type Notification struct {
	Level       Level  `json:"level"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// Notifier delivers notifications to whoever renders them.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Inbox queues notifications until the page collects them.
type Inbox struct {
	mu    sync.Mutex
	queue []Notification
}

func (i *Inbox) Notify(n Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.queue = append(i.queue, n)
}

// Drain returns and removes every queued notification.
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.queue
	i.queue = nil
	return out
}

const readFailureMessage = "We couldn't read that photo. Please try again."

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotImage):
		return "Please choose an image file."
	case errors.Is(err, ErrTooLarge):
		return "That photo is too large. Please choose one under 20 MB."
	default:
		return readFailureMessage
	}
}

// NotificationFor converts a capture error into the message shown to the user.
func NotificationFor(err error) Notification {
	return Notification{Level: LevelError, Message: rejectionMessage(err), Dismissible: true}
}
