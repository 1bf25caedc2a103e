package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/EgoistMa/tokomo-app/internal/api"
	"github.com/EgoistMa/tokomo-app/internal/model"
)

// maxListRows caps admin listings in chat; /admin_export has the full data.
const maxListRows = 30

// FormatAdminMenu renders the admin command overview.
func FormatAdminMenu() string {
	return "🛡 管理后台\n" + divider +
		"🎮 游戏: /admin_games /admin_game_add /admin_game_edit /admin_game_del\n" +
		"👥 用户: /admin_users /admin_user_edit /admin_user_toggle\n" +
		"🎟 兑换码: /admin_codes /admin_codes_gen /admin_vip_gen\n" +
		"💳 支付码: /admin_paycodes /admin_paycodes_gen /admin_paycode_edit /admin_paycode_del\n" +
		"📜 记录: /admin_records [类型] [状态] [用户名]\n" +
		"📤 导出: /admin_export codes|paycodes|records|games\n" +
		"📥 导入: 发送文件并附言 /admin_upload games|paycodes [overwrite|merge]\n" +
		"⚙️ 站点配置: /admin_site_config [JSON]"
}

// FormatAdminGames renders the catalog.
func FormatAdminGames(games []model.Game) string {
	if len(games) == 0 {
		return "🎮 暂无游戏"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎮 游戏列表 (%d)\n", len(games)))
	sb.WriteString(divider)
	for i, g := range games {
		if i == maxListRows {
			sb.WriteString(moreRows(len(games)))
			break
		}
		sb.WriteString(fmt.Sprintf("%s %s [%s]\n", formatID(g.ID), g.GameName, orDash(g.GameType)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatAdminUsers renders the account listing.
func FormatAdminUsers(users []model.Profile, now time.Time) string {
	if len(users) == 0 {
		return "👥 暂无用户"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👥 用户列表 (%d)\n", len(users)))
	sb.WriteString(divider)
	for i, u := range users {
		if i == maxListRows {
			sb.WriteString(moreRows(len(users)))
			break
		}
		flags := ""
		if u.IsAdmin {
			flags += "🛡"
		}
		if u.IsVIP(now) {
			flags += "👑"
		}
		if !u.IsActive {
			flags += "🚫"
		}
		sb.WriteString(fmt.Sprintf("%s %s %s 积分:%d\n", formatID(u.ID), u.Username, flags, u.Points))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatAdminUser renders one account after an edit.
func FormatAdminUser(u *model.Profile) string {
	status := "启用"
	if !u.IsActive {
		status = "禁用"
	}
	return fmt.Sprintf("✅ 操作成功\n\n👤 用户: %s (ID: %d)\n💎 积分: %d\n👑 VIP 到期: %s\n🛡 管理员: %t\n📌 状态: %s",
		u.Username, u.ID, u.Points, model.FormatTime(u.VIPExpireDate), u.IsAdmin, status)
}

// FormatAdminCodes renders the unified code listing.
func FormatAdminCodes(codes []model.Code) string {
	if len(codes) == 0 {
		return "🎟 暂无兑换码"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎟 兑换码 (%d)\n", len(codes)))
	sb.WriteString(divider)
	for i, c := range codes {
		if i == maxListRows {
			sb.WriteString(moreRows(len(codes)))
			break
		}
		unit := "积分"
		if strings.EqualFold(c.Type, model.CodeTypeVIP) {
			unit = "天"
		}
		state := "未使用"
		if c.Used {
			state = "已使用 " + orDash(c.UsedBy.String())
		}
		sb.WriteString(fmt.Sprintf("%s %s %d%s %s\n", c.Code, c.Type, c.Value(), unit, state))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatAdminPaymentCodes renders the payment code listing.
func FormatAdminPaymentCodes(codes []model.PaymentCode) string {
	if len(codes) == 0 {
		return "💳 暂无支付码"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("💳 支付码 (%d)\n", len(codes)))
	sb.WriteString(divider)
	for i, c := range codes {
		if i == maxListRows {
			sb.WriteString(moreRows(len(codes)))
			break
		}
		state := "未使用"
		if c.Used {
			state = "已使用"
			if c.UsedBy != nil {
				state += fmt.Sprintf(" (用户 %d)", *c.UsedBy)
			}
		}
		sb.WriteString(fmt.Sprintf("%s %s %d积分 %s\n", formatID(c.ID), c.Code, c.Points, state))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatAdminRecords renders audit records.
func FormatAdminRecords(records []model.Record) string {
	if len(records) == 0 {
		return "📜 暂无记录"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📜 记录 (%d)\n", len(records)))
	sb.WriteString(divider)
	for i, r := range records {
		if i == maxListRows {
			sb.WriteString(moreRows(len(records)))
			break
		}
		detail := ""
		switch r.Type {
		case model.RecordTypePurchase:
			detail = fmt.Sprintf("%s -%d", orDash(r.GameName), r.Points)
		case model.RecordTypeVIP:
			detail = fmt.Sprintf("%s +%d天", orDash(r.Code), r.Days)
		default:
			detail = fmt.Sprintf("%s +%d", orDash(r.Code), r.Points)
		}
		sb.WriteString(fmt.Sprintf("%s %s %s %s %s\n",
			model.FormatTime(r.CreatedAt), r.Type, r.Username, detail, r.Status))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatGeneratedCodes renders freshly created codes, one per line for copying.
func FormatGeneratedCodes(codes []string) string {
	if len(codes) == 0 {
		return "⚠️ 未生成任何兑换码"
	}
	return fmt.Sprintf("✅ 已生成 %d 个兑换码\n%s%s", len(codes), divider, strings.Join(codes, "\n"))
}

// CodeStrings extracts the code values.
func CodeStrings(codes []model.Code) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, c.Code)
	}
	return out
}

// FormatUploadResult renders an import summary.
func FormatUploadResult(res *api.UploadResult) string {
	msg := "✅ 导入完成\n"
	msg += divider
	msg += fmt.Sprintf("📥 导入: %d\n", res.Count)
	if res.Duplicates > 0 {
		msg += fmt.Sprintf("🔁 重复: %d\n", res.Duplicates)
	}
	if res.Skipped > 0 {
		msg += fmt.Sprintf("⏭ 跳过: %d\n", res.Skipped)
	}
	if res.Message != "" {
		msg += fmt.Sprintf("💬 %s\n", res.Message)
	}
	return strings.TrimRight(msg, "\n")
}

func moreRows(total int) string {
	return fmt.Sprintf("…共 %d 条，使用 /admin_export 导出全部\n", total)
}
