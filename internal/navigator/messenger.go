package navigator

import "context"

// MessageRef identifies a message the bot has sent.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Button is an inline button carrying opaque callback data.
type Button struct {
	Label string
	Data  string
}

// Keyboard is an inline keyboard attached to a message.
type Keyboard struct {
	Rows [][]Button
}

// Messenger is the outward messaging transport.
type Messenger interface {
	// SendText sends a new message to chatID. kb may be nil.
	SendText(ctx context.Context, chatID int64, text string, kb *Keyboard) (MessageRef, error)

	// EditText replaces the text and keyboard of an existing message. A nil
	// kb removes the keyboard.
	EditText(ctx context.Context, ref MessageRef, text string, kb *Keyboard) error

	// DeleteMessage removes a message.
	DeleteMessage(ctx context.Context, ref MessageRef) error
}
