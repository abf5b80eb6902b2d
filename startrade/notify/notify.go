// Package notify delivers trade messages to participants and correlates their
// replies. The engine hands over card names and ids only; how they are dressed
// up is this package's problem.
package notify

import "context"

// Ref is the opaque handle to one delivered notification. The engine stores it
// on the trade side it was sent to and uses it to match incoming responses.
type Ref string

// Payload is the semantic content of a notification.
type Payload struct {
	Title   string
	Body    string
	TradeID string
	Accent  int
	Buttons []Button
}

// Button is one action a recipient can take. An Update with no buttons strips
// the actions from the original message.
type Button struct {
	Label    string
	CustomID string
	Danger   bool
}

type Notifier interface {
	// Notify delivers a payload to a user and returns the reference to the
	// created message.
	Notify(ctx context.Context, userID string, p Payload) (Ref, error)

	// Update rewrites a previously delivered notification in place.
	Update(ctx context.Context, ref Ref, p Payload) error
}

// Accent colors shared by all notification surfaces.
const (
	AccentNeutral  = 0x2b2d31
	AccentAccepted = 0x00FF00
	AccentDeclined = 0xFF0000
	AccentWarning  = 0xFF6600
)
