package handler

import (
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/EgoistMa/tokomo-app/internal/service"
	"github.com/EgoistMa/tokomo-app/internal/siteconfig"
	"github.com/EgoistMa/tokomo-app/internal/view"
)

// AccountHandler handles login, profile and password commands.
type AccountHandler struct {
	sessions *service.SessionService
	profiles *service.ProfileService
	password *service.PasswordService
	site     *siteconfig.Provider
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(
	sessions *service.SessionService,
	profiles *service.ProfileService,
	password *service.PasswordService,
	site *siteconfig.Provider,
) *AccountHandler {
	return &AccountHandler{
		sessions: sessions,
		profiles: profiles,
		password: password,
		site:     site,
	}
}

// HandleStart handles /start.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	_, err := h.sessions.Session(ctx, sender.ID)
	return c.Send(view.FormatWelcome(h.site.Get(), err == nil))
}

// HandleHelp handles /help.
func (h *AccountHandler) HandleHelp(c tele.Context) error {
	return c.Send(view.FormatHelp(h.site.Get()))
}

// HandleGuide handles /guide.
func (h *AccountHandler) HandleGuide(c tele.Context) error {
	return c.Send(view.FormatGuide(h.site.Get()))
}

// HandleLogin handles /login <username> <password>.
func (h *AccountHandler) HandleLogin(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	forgetCredentials(c)
	if len(args) != 2 {
		return c.Send(usageLogin)
	}

	if _, err := h.sessions.Login(ctx, sender.ID, args[0], args[1]); err != nil {
		return replyError(c, "login", err)
	}
	return h.sendProfile(c, "✅ 登录成功\n\n")
}

// HandleRegister handles /register <username> <password> <question> <answer> [invite].
func (h *AccountHandler) HandleRegister(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	in, err := parseRegisterArgs(c.Args())
	forgetCredentials(c)
	if err != nil {
		return c.Send(usageRegister)
	}

	if _, err := h.sessions.Register(ctx, sender.ID, in); err != nil {
		return replyError(c, "register", err)
	}
	return h.sendProfile(c, "🎉 注册成功，已自动登录\n\n")
}

// HandleLogout handles /logout.
func (h *AccountHandler) HandleLogout(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if err := h.sessions.Logout(ctx, sender.ID); err != nil {
		return replyError(c, "logout", err)
	}
	return c.Send("👋 已退出登录")
}

// HandleMe handles /me. It always shows a freshly fetched profile.
func (h *AccountHandler) HandleMe(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if _, err := h.profiles.Refresh(ctx, sender.ID); err != nil {
		return replyError(c, "profile", err)
	}
	return h.sendProfile(c, "")
}

func (h *AccountHandler) sendProfile(c tele.Context, prefix string) error {
	profile := h.profiles.Cached(c.Sender().ID)
	if profile == nil {
		return c.Send(view.MsgLoginRequired)
	}
	return c.Send(prefix + view.FormatProfile(profile, time.Now()))
}

// HandleForgot handles /forgot <username> by showing the security question.
func (h *AccountHandler) HandleForgot(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	args := c.Args()
	if len(args) != 1 {
		return c.Send(usageForgot)
	}

	question, err := h.password.SecurityQuestion(ctx, args[0])
	if err != nil {
		return replyError(c, "security_question", err)
	}
	return c.Send(fmt.Sprintf("🔐 密保问题: %s\n\n回答后发送: /reset %s <答案> <新密码>", question, args[0]))
}

// HandleReset handles /reset <username> <answer> <new password>.
func (h *AccountHandler) HandleReset(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	args := c.Args()
	forgetCredentials(c)
	if len(args) != 3 {
		return c.Send(usageReset)
	}

	if err := h.password.Reset(ctx, args[0], args[1], args[2]); err != nil {
		return replyError(c, "reset_password", err)
	}
	return c.Send("✅ 密码已重置，请使用 /login 重新登录")
}
