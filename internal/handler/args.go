package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/EgoistMa/tokomo-app/internal/api"
	"github.com/EgoistMa/tokomo-app/internal/model"
	"github.com/EgoistMa/tokomo-app/internal/service"
)

// Usage texts
const (
	usageLogin         = "⚠️ 用法: /login <用户名> <密码>"
	usageRegister      = "⚠️ 用法: /register <用户名> <密码> <密保问题> <答案> [邀请码]"
	usageSearch        = "⚠️ 用法: /search <关键词>"
	usageVIP           = "⚠️ 用法: /vip <兑换码>"
	usagePaycode       = "⚠️ 用法: /paycode <兑换码>"
	usageDeposit       = "⚠️ 用法: /deposit <金额>"
	usageForgot        = "⚠️ 用法: /forgot <用户名>"
	usageReset         = "⚠️ 用法: /reset <用户名> <答案> <新密码>"
	usageGameAdd       = "⚠️ 用法: /admin_game_add 名称|类型|下载地址|提取码|解压密码|备注"
	usageGameEdit      = "⚠️ 用法: /admin_game_edit <ID> 类型|下载地址|提取码|解压密码|备注"
	usageGameDel       = "⚠️ 用法: /admin_game_del <ID>"
	usageUserEdit      = "⚠️ 用法: /admin_user_edit <ID> [points=<积分>] [vip=<YYYY-MM-DD|none>] [admin=<true|false>]"
	usageUserToggle    = "⚠️ 用法: /admin_user_toggle <ID> <on|off>"
	usageCodesGen      = "⚠️ 用法: /admin_codes_gen <VIP|PAYMENT> <数量> <天数/积分>"
	usageVIPGen        = "⚠️ 用法: /admin_vip_gen <数量> <天数>"
	usagePaycodesGen   = "⚠️ 用法: /admin_paycodes_gen <数量> <积分>"
	usagePaycodeEdit   = "⚠️ 用法: /admin_paycode_edit <ID> <积分>"
	usagePaycodeDel    = "⚠️ 用法: /admin_paycode_del <ID>"
	usageExport        = "⚠️ 用法: /admin_export <codes|paycodes|records|games>"
	usageUpload        = "⚠️ 用法: 发送 .csv/.xlsx 文件并附言 /admin_upload games|paycodes [overwrite|merge]"
	usageUploadCommand = "/admin_upload"
)

var errUsage = errors.New("usage")

// parseRegisterArgs reads /register arguments. The invite code is optional.
func parseRegisterArgs(args []string) (service.RegisterInput, error) {
	if len(args) < 4 || len(args) > 5 {
		return service.RegisterInput{}, errUsage
	}
	in := service.RegisterInput{
		Username:         args[0],
		Password:         args[1],
		SecurityQuestion: args[2],
		SecurityAnswer:   args[3],
	}
	if len(args) == 5 {
		in.InviteCode = args[4]
	}
	return in, nil
}

// parseID parses a positive numeric id.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("无效的 ID: %s", s)
	}
	return id, nil
}

// parseGameID reads a game id. Game ids are opaque strings.
func parseGameID(s string) (string, error) {
	id := strings.TrimSpace(strings.TrimPrefix(s, "#"))
	if id == "" {
		return "", fmt.Errorf("无效的游戏 ID: %s", s)
	}
	return id, nil
}

// parsePositive parses a positive amount.
func parsePositive(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("无效的数值: %s", s)
	}
	return n, nil
}

// splitFields splits a pipe separated payload and trims every field.
func splitFields(payload string) []string {
	parts := strings.Split(payload, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseGameAdd reads name|type|url|password|extract|note. Only name and type
// are required.
func parseGameAdd(payload string) (api.GameInput, error) {
	if strings.TrimSpace(payload) == "" {
		return api.GameInput{}, errUsage
	}
	f := splitFields(payload)
	if len(f) < 2 || len(f) > 6 {
		return api.GameInput{}, errUsage
	}
	for len(f) < 6 {
		f = append(f, "")
	}
	return api.GameInput{
		GameName:        f[0],
		GameType:        f[1],
		DownloadURL:     f[2],
		Password:        f[3],
		ExtractPassword: f[4],
		Note:            f[5],
	}, nil
}

// parseGameEdit reads <id> type|url|password|extract|note.
func parseGameEdit(payload string) (string, api.GameInput, error) {
	idStr, rest, ok := strings.Cut(strings.TrimSpace(payload), " ")
	if !ok || strings.TrimSpace(rest) == "" {
		return "", api.GameInput{}, errUsage
	}
	id, err := parseGameID(idStr)
	if err != nil {
		return "", api.GameInput{}, err
	}
	f := splitFields(rest)
	if len(f) > 5 {
		return "", api.GameInput{}, errUsage
	}
	for len(f) < 5 {
		f = append(f, "")
	}
	return id, api.GameInput{
		GameType:        f[0],
		DownloadURL:     f[1],
		Password:        f[2],
		ExtractPassword: f[3],
		Note:            f[4],
	}, nil
}

// parseUserEdit reads <id> followed by key=value pairs.
func parseUserEdit(args []string) (int64, service.UserEdit, error) {
	var edit service.UserEdit
	if len(args) < 2 {
		return 0, edit, errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return 0, edit, err
	}
	for _, arg := range args[1:] {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return 0, edit, errUsage
		}
		switch strings.ToLower(key) {
		case "points":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, edit, fmt.Errorf("无效的积分: %s", value)
			}
			edit.Points = &n
		case "vip":
			if strings.EqualFold(value, "none") {
				edit.ClearVIP = true
				continue
			}
			ts, err := time.ParseInLocation("2006-01-02", value, time.Local)
			if err != nil {
				return 0, edit, fmt.Errorf("无效的日期: %s", value)
			}
			edit.VIPExpiry = &ts
		case "admin":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return 0, edit, fmt.Errorf("无效的布尔值: %s", value)
			}
			edit.IsAdmin = &b
		default:
			return 0, edit, fmt.Errorf("未知字段: %s", key)
		}
	}
	return id, edit, nil
}

// parseToggle reads on/off.
func parseToggle(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "enable", "启用":
		return true, nil
	case "off", "disable", "禁用":
		return false, nil
	}
	return false, errUsage
}

// uploadTarget is what a document caption asks to import.
type uploadTarget struct {
	kind string
	mode string
}

// parseUploadCaption reads "/admin_upload games|paycodes [overwrite|merge]".
// The mode defaults to merge.
func parseUploadCaption(caption string) (uploadTarget, bool) {
	fields := strings.Fields(caption)
	if len(fields) < 2 || len(fields) > 3 {
		return uploadTarget{}, false
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	if cmd != usageUploadCommand {
		return uploadTarget{}, false
	}
	t := uploadTarget{kind: strings.ToLower(fields[1]), mode: service.UploadModeMerge}
	if t.kind != "games" && t.kind != "paycodes" {
		return uploadTarget{}, false
	}
	if len(fields) == 3 {
		t.mode = strings.ToLower(fields[2])
	}
	return t, true
}

// parseRecordFilter reads [type] [status] [username]; "-" skips a position.
func parseRecordFilter(args []string) model.RecordFilter {
	var f model.RecordFilter
	pick := func(i int) string {
		if i < len(args) && args[i] != "-" {
			return args[i]
		}
		return ""
	}
	f.Type = strings.ToUpper(pick(0))
	f.Status = strings.ToUpper(pick(1))
	f.Username = pick(2)
	return f
}
