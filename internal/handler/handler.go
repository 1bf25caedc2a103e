// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/EgoistMa/tokomo-app/internal/view"
)

// requestTimeout bounds the backend calls of one update.
const requestTimeout = 30 * time.Second

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// replyError sends the user-facing text for err. Unexpected errors are logged.
func replyError(c tele.Context, operation string, err error) error {
	msg, expected := view.ErrorReply(err)
	if !expected {
		evt := log.Error().Err(err).Str("operation", operation)
		if sender := c.Sender(); sender != nil {
			evt = evt.Int64("telegram_id", sender.ID)
		}
		evt.Msg("Handler failed")
	}
	return c.Send(msg)
}

// respondError answers a callback with the user-facing text for err.
func respondError(c tele.Context, operation string, err error) error {
	msg, expected := view.ErrorReply(err)
	if !expected {
		log.Error().Err(err).Str("operation", operation).Msg("Callback failed")
	}
	_ = c.Respond(&tele.CallbackResponse{Text: msg, ShowAlert: true})
	return nil
}

// forgetCredentials removes a message that carried a password.
func forgetCredentials(c tele.Context) {
	if err := c.Delete(); err != nil {
		log.Debug().Err(err).Msg("Could not delete credential message")
	}
}
