// Package view renders storefront data as Telegram messages and keyboards.
package view

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/EgoistMa/tokomo-app/internal/model"
)

// Callback data prefixes
const (
	CallbackUnlock         = "unlock:"  // unlock:<game id>
	CallbackResults        = "results:" // results:mario
	CallbackDepositConfirm = "deposit_confirm"
	CallbackDepositCancel  = "deposit_cancel"
)

// Telegram rejects callback data longer than 64 bytes.
const maxCallbackData = 64

// maxResultButtons caps the result panel; longer result lists are truncated.
const maxResultButtons = 20

// BuildResultsPanel creates one unlock button per game, two per row. Games
// whose id does not fit into callback data get no button.
func BuildResultsPanel(games []model.Game) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	if len(games) == 0 {
		return markup
	}
	if len(games) > maxResultButtons {
		games = games[:maxResultButtons]
	}

	var rows []tele.Row
	var currentRow []tele.Btn
	for _, g := range games {
		data, ok := UnlockData(g.ID)
		if !ok {
			continue
		}
		currentRow = append(currentRow, markup.Data("🔓 "+truncate(g.GameName, 24), data))
		if len(currentRow) == 2 {
			rows = append(rows, markup.Row(currentRow...))
			currentRow = nil
		}
	}
	if len(currentRow) > 0 {
		rows = append(rows, markup.Row(currentRow...))
	}

	markup.Inline(rows...)
	return markup
}

// BuildReshowPanel offers to show the results of keyword again.
func BuildReshowPanel(keyword string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	data, ok := ResultsData(keyword)
	if !ok {
		return markup
	}
	markup.Inline(markup.Row(markup.Data("🔁 再看一次结果", data)))
	return markup
}

// UnlockData builds the unlock:<id> payload, reporting false for blank ids
// and ids that do not fit into callback data.
func UnlockData(gameID string) (string, bool) {
	if strings.TrimSpace(gameID) == "" {
		return "", false
	}
	data := CallbackUnlock + gameID
	if len(data) > maxCallbackData {
		return "", false
	}
	return data, true
}

// ResultsData builds the results:<keyword> payload, reporting false when
// the keyword does not fit into callback data.
func ResultsData(keyword string) (string, bool) {
	data := CallbackResults + keyword
	if len(data) > maxCallbackData {
		return "", false
	}
	return data, true
}

// BuildDepositPanel creates the confirm/cancel buttons under a payment QR code.
func BuildDepositPanel() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	confirmBtn := markup.Data("✅ 我已支付", CallbackDepositConfirm)
	cancelBtn := markup.Data("❌ 取消", CallbackDepositCancel)

	markup.Inline(
		markup.Row(confirmBtn, cancelBtn),
	)
	return markup
}

// ParseUnlockData extracts the game id from unlock:<id>.
func ParseUnlockData(data string) (string, bool) {
	id, ok := strings.CutPrefix(data, CallbackUnlock)
	if !ok || strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}

// ParseResultsData extracts the keyword from results:<keyword>.
func ParseResultsData(data string) (string, bool) {
	kw, ok := strings.CutPrefix(data, CallbackResults)
	if !ok || strings.TrimSpace(kw) == "" {
		return "", false
	}
	return kw, true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatID[T ~string | ~int64](id T) string {
	return fmt.Sprintf("#%v", id)
}
