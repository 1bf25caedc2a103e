package view

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/EgoistMa/tokomo-app/internal/api"
	"github.com/EgoistMa/tokomo-app/internal/model"
	"github.com/EgoistMa/tokomo-app/internal/pkg/lock"
	"github.com/EgoistMa/tokomo-app/internal/service"
)

func TestBuildResultsPanel(t *testing.T) {
	games := []model.Game{
		{ID: "1", GameName: "Mario Bros"},
		{ID: "2", GameName: "Zelda"},
		{ID: "g-3", GameName: "Metroid"},
	}
	markup := BuildResultsPanel(games)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	assert.Len(t, markup.InlineKeyboard[1], 1)

	id, ok := ParseUnlockData(markup.InlineKeyboard[1][0].Unique)
	require.True(t, ok)
	assert.Equal(t, "g-3", id)

	assert.Empty(t, BuildResultsPanel(nil).InlineKeyboard)
}

func TestBuildResultsPanel_Capped(t *testing.T) {
	games := make([]model.Game, 50)
	for i := range games {
		games[i] = model.Game{ID: fmt.Sprint(i + 1), GameName: fmt.Sprintf("Game %d", i)}
	}
	markup := BuildResultsPanel(games)
	buttons := 0
	for _, row := range markup.InlineKeyboard {
		buttons += len(row)
	}
	assert.Equal(t, maxResultButtons, buttons)
	assert.Contains(t, FormatResults("game", games), "其余 30 个结果")
}

func TestBuildResultsPanel_SkipsOversizedIDs(t *testing.T) {
	games := []model.Game{
		{ID: "1", GameName: "Mario Bros"},
		{ID: strings.Repeat("x", maxCallbackData), GameName: "Too Long"},
		{ID: "3", GameName: "Metroid"},
	}
	markup := BuildResultsPanel(games)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, "unlock:3", markup.InlineKeyboard[0][1].Unique)
}

// TestUnlockDataRoundTrip: every id that fits survives the callback payload.
func TestUnlockDataRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.StringMatching(`[0-9a-zA-Z_-]{1,40}`).Draw(t, "id")
		data, ok := UnlockData(id)
		if !ok {
			t.Fatalf("id %q rejected", id)
		}
		got, ok := ParseUnlockData(data)
		if !ok || got != id {
			t.Fatalf("round trip of %q gave %q, %v", id, got, ok)
		}
	})
}

func TestUnlockData_Rejects(t *testing.T) {
	for _, id := range []string{"", "  ", strings.Repeat("9", maxCallbackData)} {
		_, ok := UnlockData(id)
		assert.False(t, ok, id)
	}
	for _, data := range []string{"", "unlock:", "unlock:  ", "results:1"} {
		_, ok := ParseUnlockData(data)
		assert.False(t, ok, data)
	}
}

func TestResultsData(t *testing.T) {
	data, ok := ResultsData("mario")
	require.True(t, ok)
	kw, ok := ParseResultsData(data)
	require.True(t, ok)
	assert.Equal(t, "mario", kw)

	_, ok = ResultsData(strings.Repeat("x", maxCallbackData))
	assert.False(t, ok)
	assert.Empty(t, BuildReshowPanel(strings.Repeat("x", maxCallbackData)).InlineKeyboard)

	_, ok = ParseResultsData("results:  ")
	assert.False(t, ok)
}

func TestFormatProfile(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.Local)
	p := &model.Profile{Username: "neo", Points: 120}
	msg := FormatProfile(p, now)
	assert.Contains(t, msg, "积分: 120")
	assert.Contains(t, msg, "VIP: 未开通")

	p.VIPExpireDate = &model.Timestamp{Time: now.Add(48 * time.Hour)}
	assert.Contains(t, FormatProfile(p, now), "VIP 到期: 2026-01-03 00:00")
}

func TestFormatUnlock(t *testing.T) {
	detail := model.GameDetail{
		Game:            model.Game{GameName: "Zelda", DownloadURL: "https://dl/zelda", Password: "pw"},
		RemainingPoints: 20,
	}
	msg := FormatUnlock(detail, false)
	assert.Contains(t, msg, "https://dl/zelda")
	assert.Contains(t, msg, "解压密码: -")
	assert.NotContains(t, msg, "剩余积分")

	assert.Contains(t, FormatUnlock(detail, true), "剩余积分: 20")
}

func TestFormatInsufficientPoints(t *testing.T) {
	assert.Contains(t, FormatInsufficientPoints(80, 10), "所需积分: 80")
	assert.NotContains(t, FormatInsufficientPoints(0, 10), "所需积分")
}

func TestSiteTexts(t *testing.T) {
	cfg := model.DefaultSiteConfig()
	assert.NotContains(t, FormatHelp(cfg), "💬", "no contact block without details")
	assert.Equal(t, "🛒 暂无购买指南", FormatGuide(cfg))

	cfg.CustomerService.QQ.Number = "12345"
	cfg.Banners.Left.Text = "新游上架"
	cfg.PurchaseGuide.Platforms = []model.Platform{{ID: "tb", Name: "淘宝"}}
	cfg.PurchaseGuide.Steps["tb"] = []model.GuideStep{{Title: "下单", Description: "选择套餐"}}

	assert.Contains(t, FormatHelp(cfg), "QQ: 12345")
	assert.Contains(t, FormatWelcome(cfg, false), "📢 新游上架")
	assert.Contains(t, FormatWelcome(cfg, false), "/login")
	assert.Contains(t, FormatWelcome(cfg, true), "/me")
	assert.Contains(t, FormatGuide(cfg), "1. 下单 - 选择套餐")
}

func TestErrorReply(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
		expected bool
	}{
		{"validation", &service.ValidationError{Field: "amount", Reason: "必须大于 0"}, "⚠️ amount", true},
		{"not logged in", service.ErrNotLoggedIn, "/login", true},
		{"session invalid", fmt.Errorf("%w: 401", service.ErrSessionInvalid), "/login", true},
		{"busy", lock.ErrBusy, "尚未完成", true},
		{"business 400", &api.Error{StatusCode: 400, Message: "Code already used"}, "Code already used", true},
		{"business 500", &api.Error{StatusCode: 500, Message: "Error purchasing game: Game not found"}, "Game not found", true},
		{"bare status", &api.Error{StatusCode: 502, Message: "Bad Gateway"}, MsgSystemError, false},
		{"transport", fmt.Errorf("%w: dial", api.ErrTransport), MsgSystemError, false},
		{"unknown", errors.New("boom"), MsgSystemError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := ErrorReply(tt.err)
			assert.Contains(t, msg, tt.contains)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestFormatUploadResult(t *testing.T) {
	msg := FormatUploadResult(&api.UploadResult{Count: 5, Duplicates: 2})
	assert.Contains(t, msg, "导入: 5")
	assert.Contains(t, msg, "重复: 2")
	assert.NotContains(t, msg, "跳过")
}

func TestFormatAdminCodes(t *testing.T) {
	msg := FormatAdminCodes([]model.Code{
		{Code: "V1", Type: model.CodeTypeVIP, Days: 30},
		{Code: "P1", Type: model.CodeTypePayment, Points: 50, Used: true, UsedBy: "neo"},
	})
	assert.Contains(t, msg, "V1 VIP 30天 未使用")
	assert.Contains(t, msg, "P1 PAYMENT 50积分 已使用 neo")
}
