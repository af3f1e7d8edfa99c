package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"telegram-file-vault/internal/domain/ports/adapter"
)

var _ adapter.Messenger = (*Messenger)(nil)

// Messenger implements adapter.Messenger on top of the Bot API. Every call
// waits on a shared token bucket so bursts stay under Telegram's flood
// limits. Channel posts additionally go through a circuit breaker.
type Messenger struct {
	client   botClient
	username string
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	log      *zerolog.Logger
}

func NewMessenger(client botClient, username string, perSecond float64, burst int, logger *zerolog.Logger) *Messenger {
	l := logger.With().Str("component", "telegram_messenger").Logger()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "telegram-channel-posts",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return &Messenger{
		client:   client,
		username: username,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		breaker:  breaker,
		log:      &l,
	}
}

func (m *Messenger) BotUsername() string { return m.username }

// Tokens reports how many sends the outbound bucket allows right now.
func (m *Messenger) Tokens() float64 { return m.limiter.Tokens() }

func (m *Messenger) send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	return m.client.Send(c)
}

func (m *Messenger) request(ctx context.Context, c tgbotapi.Chattable) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := m.client.Request(c)
	return err
}

func (m *Messenger) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	msg, err := m.send(ctx, tgbotapi.NewMessage(chatID, text))
	return msg.MessageID, err
}

// keyboard builds inline rows.
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else the text is used as callback data
func keyboard(rows [][]adapter.InlineButton) tgbotapi.InlineKeyboardMarkup {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(label, absoluteURL(btn.URL)))
			case btn.Data != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, r)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...)
}

// absoluteURL adds a scheme to t.me links; the Bot API rejects bare hosts.
func absoluteURL(u string) string {
	if strings.HasPrefix(u, "t.me/") {
		return "https://" + u
	}
	return u
}

func (m *Messenger) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(rows) > 0 {
		msg.ReplyMarkup = keyboard(rows)
	}
	sent, err := m.send(ctx, msg)
	return sent.MessageID, err
}

// EditButtons replaces the text and keyboard of a menu message.
func (m *Messenger) EditButtons(ctx context.Context, chatID int64, messageID int, text string, rows [][]adapter.InlineButton) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if len(rows) > 0 {
		kb := keyboard(rows)
		edit.ReplyMarkup = &kb
	}
	return m.request(ctx, edit)
}

// Publish posts to a side channel behind the circuit breaker.
func (m *Messenger) Publish(ctx context.Context, channelID int64, text string) (int, error) {
	res, err := m.breaker.Execute(func() (any, error) {
		return m.SendMessage(ctx, channelID, text)
	})
	if err != nil {
		return 0, fmt.Errorf("publish to %d: %w", channelID, err)
	}
	return res.(int), nil
}

func (m *Messenger) PinMessage(ctx context.Context, chatID int64, messageID int) error {
	return m.request(ctx, tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	})
}

func (m *Messenger) ForwardMessage(ctx context.Context, toChat, fromChat int64, messageID int) (int, error) {
	msg, err := m.send(ctx, tgbotapi.NewForward(toChat, fromChat, messageID))
	return msg.MessageID, err
}

// CopyMessage copies without the "forwarded from" header. The request is
// built by hand because CopyMessageConfig has no protect_content field.
func (m *Messenger) CopyMessage(ctx context.Context, toChat, fromChat int64, messageID int, caption string, protect bool) (int, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", toChat)
	params.AddNonZero64("from_chat_id", fromChat)
	params.AddNonZero("message_id", messageID)
	params.AddNonEmpty("caption", caption)
	params.AddBool("protect_content", protect)
	resp, err := m.client.MakeRequest("copyMessage", params)
	if err != nil {
		return 0, err
	}
	var id tgbotapi.MessageID
	if err := json.Unmarshal(resp.Result, &id); err != nil {
		return 0, fmt.Errorf("decode copyMessage result: %w", err)
	}
	return id.MessageID, nil
}

// IsMember reports whether userID is a member, administrator or creator of chatID.
func (m *Messenger) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return false, err
	}
	member, err := m.client.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return false, err
	}
	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	}
	return false, nil
}

// AnswerCallback stops the client-side spinner of a pressed button.
func (m *Messenger) AnswerCallback(ctx context.Context, queryID string) error {
	return m.request(ctx, tgbotapi.NewCallback(queryID, ""))
}
