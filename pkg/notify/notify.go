package notify

import "fmt"

// Tone classifies a notification for display purposes
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
	ToneInfo    Tone = "info"
)

// Notification is a fire-and-forget user-facing message. There is no
// acknowledgment; senders must not depend on delivery.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Tone        Tone   `json:"tone"`
}

// Notifier is the sink components report outcomes through. It is passed in
// explicitly wherever it is needed instead of living on a global bus.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a plain function to the Notifier interface.
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Discard returns a Notifier that drops everything.
func Discard() Notifier {
	return Func(func(Notification) {})
}

// Log returns a Notifier that prints to stdout, for servers and dev tooling.
func Log() Notifier {
	return Func(func(n Notification) {
		if n.Description != "" {
			fmt.Printf("[notify] %s: %s (%s)\n", n.Title, n.Description, n.Tone)
			return
		}
		fmt.Printf("[notify] %s (%s)\n", n.Title, n.Tone)
	})
}
