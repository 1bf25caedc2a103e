package view

import (
	"errors"
	"net/http"

	"github.com/EgoistMa/tokomo-app/internal/api"
	"github.com/EgoistMa/tokomo-app/internal/pkg/lock"
	"github.com/EgoistMa/tokomo-app/internal/service"
)

// MsgSystemError is shown for transport and unknown errors.
const MsgSystemError = "❌ 系统错误，请稍后重试"

// MsgLoginRequired is shown whenever a session is missing or was dropped.
const MsgLoginRequired = "🔐 请先登录: /login <用户名> <密码>"

// ErrorReply maps a service error to the text shown to the user. ok is false
// when the error is unexpected and should be logged by the caller.
func ErrorReply(err error) (msg string, ok bool) {
	var ve *service.ValidationError
	var apiErr *api.Error

	switch {
	case err == nil:
		return "", true
	case errors.As(err, &ve):
		return "⚠️ " + ve.Error(), true
	case service.IsAuthError(err):
		return MsgLoginRequired, true
	case errors.Is(err, lock.ErrBusy):
		return "⏳ 上一个操作尚未完成，请稍候", true
	case errors.Is(err, service.ErrInvalidCredentials):
		return "❌ 用户名或密码错误", true
	case errors.Is(err, service.ErrMissingToken):
		return "❌ 登录失败，请稍后重试", true
	case errors.Is(err, service.ErrUsernameTaken):
		return "❌ 用户名已被占用", true
	case errors.Is(err, service.ErrEmptyKeyword):
		return "⚠️ 请输入搜索关键词: /search <关键词>", true
	case errors.Is(err, service.ErrEmptyCode):
		return "⚠️ 请输入兑换码", true
	case errors.Is(err, service.ErrNotAdmin):
		return "❌ 权限不足：需要管理员权限", true
	case errors.Is(err, service.ErrGameOwned):
		return "❌ 该游戏已有用户购买，无法删除", true
	case errors.Is(err, service.ErrNoPendingDeposit):
		return "⚠️ 没有待支付的订单，请先 /deposit <金额>", true
	case errors.Is(err, service.ErrDepositNotCompleted):
		return "❌ 支付未完成，请稍后再试", true
	case errors.As(err, &apiErr) && businessMessage(apiErr):
		return "❌ " + apiErr.Message, true
	}
	return MsgSystemError, false
}

// businessMessage reports whether the backend explained the rejection itself,
// as opposed to a bare HTTP status.
func businessMessage(e *api.Error) bool {
	return e.Message != "" && e.Message != http.StatusText(e.StatusCode)
}
