package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/EgoistMa/tokomo-app/internal/model"
)

const divider = "━━━━━━━━━━━━━━━\n"

// FormatProfile renders the account panel.
func FormatProfile(p *model.Profile, now time.Time) string {
	msg := fmt.Sprintf("👤 %s\n", p.Username)
	msg += divider
	msg += fmt.Sprintf("💎 积分: %d\n", p.Points)
	if p.IsVIP(now) {
		msg += fmt.Sprintf("👑 VIP 到期: %s\n", model.FormatTime(p.VIPExpireDate))
	} else {
		msg += "👑 VIP: 未开通\n"
	}
	if p.InviteCode != "" {
		msg += fmt.Sprintf("🎟 邀请码: %s\n", p.InviteCode)
	}
	if p.IsAdmin {
		msg += "🛡 管理员\n"
	}
	msg += divider
	msg += "/search 搜索游戏 · /library 已购游戏"
	return msg
}

// FormatResults renders a search result list.
func FormatResults(keyword string, games []model.Game) string {
	if len(games) == 0 {
		return fmt.Sprintf("🔍 没有找到与「%s」相关的游戏", keyword)
	}
	msg := fmt.Sprintf("🔍 「%s」共 %d 个结果\n", keyword, len(games))
	msg += divider
	for i, g := range games {
		if i == maxResultButtons {
			msg += fmt.Sprintf("…其余 %d 个结果请细化关键词\n", len(games)-maxResultButtons)
			break
		}
		msg += fmt.Sprintf("%d. %s", i+1, g.GameName)
		if g.GameType != "" {
			msg += fmt.Sprintf(" [%s]", g.GameType)
		}
		msg += "\n"
	}
	msg += divider
	msg += "点击下方按钮解锁游戏："
	return msg
}

// FormatGameDetail renders an unlocked game with its download secrets.
func FormatGameDetail(g model.Game) string {
	msg := fmt.Sprintf("🎮 %s\n", g.GameName)
	msg += divider
	if g.GameType != "" {
		msg += fmt.Sprintf("🏷 类型: %s\n", g.GameType)
	}
	msg += fmt.Sprintf("🔗 下载地址: %s\n", orDash(g.DownloadURL))
	msg += fmt.Sprintf("🔑 提取码: %s\n", orDash(g.Password))
	msg += fmt.Sprintf("📦 解压密码: %s\n", orDash(g.ExtractPassword))
	if g.Note != "" {
		msg += fmt.Sprintf("📝 备注: %s\n", g.Note)
	}
	return msg
}

// FormatUnlock renders the unlock result, noting whether points were spent.
func FormatUnlock(detail model.GameDetail, charged bool) string {
	msg := FormatGameDetail(detail.Game)
	if charged {
		msg += divider
		msg += fmt.Sprintf("✅ 购买成功，剩余积分: %d", detail.RemainingPoints)
	}
	return msg
}

// FormatInsufficientPoints renders the unlock shortfall.
func FormatInsufficientPoints(required, balance int64) string {
	msg := "❌ 积分不足\n"
	msg += divider
	if required > 0 {
		msg += fmt.Sprintf("💎 所需积分: %d\n", required)
	}
	msg += fmt.Sprintf("💰 当前积分: %d\n", balance)
	msg += divider
	msg += "使用 /paycode 兑换积分或 /deposit 充值"
	return msg
}

// FormatLibrary renders the purchased games.
func FormatLibrary(games []model.Game) string {
	if len(games) == 0 {
		return "📚 还没有已购游戏\n\n发送 /search <关键词> 开始寻找"
	}
	msg := fmt.Sprintf("📚 已购游戏 (%d)\n", len(games))
	msg += divider
	for _, g := range games {
		msg += fmt.Sprintf("%s %s\n", formatID(g.ID), g.GameName)
	}
	msg += divider
	msg += "点击下方按钮查看下载信息："
	return msg
}

// FormatVIPRedeemed renders a successful VIP redemption.
func FormatVIPRedeemed(r *model.VIPRedemption) string {
	return fmt.Sprintf("✅ VIP 兑换成功\n👑 到期时间: %s\n\n稍后 /me 查看最新状态", model.FormatTime(r.ExpireDate))
}

// FormatPaymentRedeemed renders a successful payment code redemption.
func FormatPaymentRedeemed(r *model.PaymentRedemption) string {
	return fmt.Sprintf("✅ 兑换成功\n➕ 积分: %d\n💎 当前积分: %d", r.Points, r.TotalPoints)
}

// FormatPaymentHistory renders redeemed payment codes.
func FormatPaymentHistory(codes []model.PaymentCode) string {
	if len(codes) == 0 {
		return "🧾 暂无兑换记录"
	}
	msg := "🧾 兑换记录\n"
	msg += divider
	for _, c := range codes {
		msg += fmt.Sprintf("%s  +%d  %s\n", c.Code, c.Points, model.FormatTime(c.UsedAt))
	}
	return msg
}

// FormatDeposit renders a pending deposit.
func FormatDeposit(tx *model.Transaction) string {
	msg := "💳 充值订单\n"
	msg += divider
	msg += fmt.Sprintf("🧾 订单号: %d\n", tx.TransactionID)
	msg += fmt.Sprintf("💰 金额: %d\n", tx.Amount)
	msg += fmt.Sprintf("📡 渠道: %s\n", channelLabel(tx.Type))
	msg += divider
	msg += "完成支付后点击「我已支付」"
	return msg
}

// FormatDepositDone renders a completed deposit.
func FormatDepositDone(tx *model.Transaction) string {
	return fmt.Sprintf("✅ 充值成功\n🧾 订单号: %d\n💰 金额: %d\n\n积分将在片刻后更新", tx.TransactionID, tx.Amount)
}

func channelLabel(t string) string {
	switch t {
	case model.TxTypeWeChatPay:
		return "微信支付"
	case model.TxTypeAliPay:
		return "支付宝"
	}
	return orDash(t)
}

// FormatWelcome renders /start with the site banners.
func FormatWelcome(cfg *model.SiteConfig, loggedIn bool) string {
	msg := "🎮 欢迎来到 Tokomo 游戏商城\n"
	msg += divider
	for _, b := range []model.Banner{cfg.Banners.Left, cfg.Banners.Right} {
		if b.Text != "" {
			msg += fmt.Sprintf("📢 %s\n", b.Text)
		}
	}
	for _, item := range cfg.Carousel.Items {
		if item.Title != "" {
			msg += fmt.Sprintf("✨ %s\n", item.Title)
		}
	}
	if loggedIn {
		msg += "/me 我的账户 · /search 搜索游戏\n"
	} else {
		msg += "/login 登录 · /register 注册\n"
	}
	msg += "/help 查看全部命令"
	return msg
}

// FormatHelp renders the command list and the customer service contact.
func FormatHelp(cfg *model.SiteConfig) string {
	var sb strings.Builder
	sb.WriteString("📖 命令列表\n")
	sb.WriteString(divider)
	sb.WriteString("/login <用户名> <密码> 登录\n")
	sb.WriteString("/register <用户名> <密码> <密保问题> <答案> [邀请码] 注册\n")
	sb.WriteString("/logout 退出登录\n")
	sb.WriteString("/me 我的账户\n")
	sb.WriteString("/search <关键词> 搜索游戏\n")
	sb.WriteString("/library 已购游戏\n")
	sb.WriteString("/vip <兑换码> 兑换 VIP\n")
	sb.WriteString("/paycode <兑换码> 兑换积分\n")
	sb.WriteString("/payments 兑换记录\n")
	sb.WriteString("/deposit <金额> 充值\n")
	sb.WriteString("/forgot <用户名> 找回密码\n")
	sb.WriteString("/guide 购买指南\n")

	cs := cfg.CustomerService
	if cs.QQ.Number != "" || cs.QRCode.URL != "" {
		sb.WriteString(divider)
		sb.WriteString(fmt.Sprintf("💬 %s\n", cs.Title))
		if cs.QQ.Number != "" {
			label := cs.QQ.Label
			if label == "" {
				label = "QQ"
			}
			sb.WriteString(fmt.Sprintf("%s: %s\n", label, cs.QQ.Number))
		}
		if cs.QRCode.URL != "" {
			sb.WriteString(cs.QRCode.URL + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatGuide renders the purchase guide, platform by platform.
func FormatGuide(cfg *model.SiteConfig) string {
	guide := cfg.PurchaseGuide
	if len(guide.Platforms) == 0 {
		return "🛒 暂无购买指南"
	}
	var sb strings.Builder
	sb.WriteString("🛒 购买指南\n")
	for _, p := range guide.Platforms {
		sb.WriteString(divider)
		sb.WriteString(strings.TrimSpace(p.Icon+" "+p.Name) + "\n")
		if p.URL != "" {
			sb.WriteString(p.URL + "\n")
		}
		for i, step := range guide.Steps[p.ID] {
			sb.WriteString(fmt.Sprintf("%d. %s", i+1, step.Title))
			if step.Description != "" {
				sb.WriteString(" - " + step.Description)
			}
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
