package controller

import (
	"sync"
	"time"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Notification is a transient feedback message.
type Notification struct {
	Message string
	Level   Level
}

// Notifier holds at most one pending notification and dismisses it after a
// fixed TTL. Showing a new notification replaces the pending one and
// reschedules the dismissal timer.
type Notifier struct {
	mu       sync.Mutex
	ttl      time.Duration
	timer    *time.Timer
	current  *Notification
	onChange func(*Notification)
}

// NewNotifier constructs a notifier with the given auto-dismiss TTL.
func NewNotifier(ttl time.Duration) *Notifier {
	return &Notifier{ttl: ttl}
}

// OnChange registers a hook invoked whenever the pending notification
// changes, including when it is dismissed (with nil).
func (n *Notifier) OnChange(fn func(*Notification)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onChange = fn
}

// Success shows a success message.
func (n *Notifier) Success(message string) { n.show(LevelSuccess, message) }

// Error shows an error message.
func (n *Notifier) Error(message string) { n.show(LevelError, message) }

// Warning shows a warning message.
func (n *Notifier) Warning(message string) { n.show(LevelWarning, message) }

func (n *Notifier) show(level Level, message string) {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.current = &Notification{Message: message, Level: level}
	n.timer = time.AfterFunc(n.ttl, n.Dismiss)
	hook := n.onChange
	current := n.current
	n.mu.Unlock()

	if hook != nil {
		hook(current)
	}
}

// Dismiss clears the pending notification and cancels its timer.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	dismissed := n.current != nil
	n.current = nil
	hook := n.onChange
	n.mu.Unlock()

	if dismissed && hook != nil {
		hook(nil)
	}
}

// Current returns the pending notification, or nil when none is showing.
func (n *Notifier) Current() *Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}
