package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/EgoistMa/tokomo-app/internal/service"
	"github.com/EgoistMa/tokomo-app/internal/view"
)

const msgPrivateOnly = "🔒 为保护账号安全，请私聊机器人使用"

// PrivateChatMiddleware drops updates from groups and channels. Credentials
// and download secrets only ever travel through private chats.
func PrivateChatMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()

			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type != tele.ChatPrivate {
				log.Debug().
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type)).
					Msg("Ignoring update from non-private chat")
				if isCommand(c.Text()) {
					return c.Reply(msgPrivateOnly)
				}
				return nil
			}

			return next(c)
		}
	}
}

func isCommand(text string) bool {
	return len(text) > 1 && text[0] == '/'
}

// Authorizer decides whether a Telegram user may run admin commands.
type Authorizer interface {
	Authorize(ctx context.Context, telegramID int64) (string, error)
}

var _ Authorizer = (*service.AdminService)(nil)

// AdminMiddleware creates a middleware that checks the backend admin flag of
// the logged in account.
func AdminMiddleware(auth Authorizer) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if _, err := auth.Authorize(ctx, sender.ID); err != nil {
				log.Warn().
					Err(err).
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Admin command rejected")
				msg, _ := view.ErrorReply(err)
				return c.Reply(msg)
			}

			return next(c)
		}
	}
}

// LoggingMiddleware creates a middleware that logs all incoming updates.
// Command arguments are not logged since they may carry passwords.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("command", commandOf(c.Text())).
				Msg("Received update")

			return next(c)
		}
	}
}

// commandOf returns the command word of text, or "" for plain text.
func commandOf(text string) string {
	if !isCommand(text) {
		return ""
	}
	for i, r := range text {
		if r == ' ' || r == '\n' || r == '@' {
			return text[:i]
		}
	}
	return text
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					err = c.Send(view.MsgSystemError)
				}
			}()
			return next(c)
		}
	}
}
