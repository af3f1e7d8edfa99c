// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// Messenger is the outbound side of the bot used by use cases. Methods that
// create a message return its id.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]InlineButton) (int, error)
	// Publish posts to a side channel (links or database channel); failures
	// trip a circuit breaker rather than block the caller.
	Publish(ctx context.Context, channelID int64, text string) (int, error)
	PinMessage(ctx context.Context, chatID int64, messageID int) error
	ForwardMessage(ctx context.Context, toChat, fromChat int64, messageID int) (int, error)
	// CopyMessage copies without a forward header; an empty caption keeps the original.
	CopyMessage(ctx context.Context, toChat, fromChat int64, messageID int, caption string, protect bool) (int, error)
	// IsMember reports whether userID is a member, administrator or creator of chatID.
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
	BotUsername() string
}
