package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/EgoistMa/tokomo-app/internal/api"
	"github.com/EgoistMa/tokomo-app/internal/service"
	"github.com/EgoistMa/tokomo-app/internal/siteconfig"
	"github.com/EgoistMa/tokomo-app/internal/view"
)

// maxUploadSize caps imported spreadsheets.
const maxUploadSize = 10 << 20

// maxInlineJSON is the longest site config shown as text; longer ones are sent as a file.
const maxInlineJSON = 3500

// AdminHandler handles admin commands.
type AdminHandler struct {
	admin *service.AdminService
	site  *siteconfig.Provider
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin *service.AdminService, site *siteconfig.Provider) *AdminHandler {
	return &AdminHandler{admin: admin, site: site}
}

// HandleAdmin handles /admin.
func (h *AdminHandler) HandleAdmin(c tele.Context) error {
	return c.Send(view.FormatAdminMenu())
}

// HandleGames handles /admin_games.
func (h *AdminHandler) HandleGames(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	games, err := h.admin.ListGames(ctx, c.Sender().ID)
	if err != nil {
		return replyError(c, "admin_games", err)
	}
	return c.Send(view.FormatAdminGames(games))
}

// HandleGameAdd handles /admin_game_add name|type|url|password|extract|note.
func (h *AdminHandler) HandleGameAdd(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	in, err := parseGameAdd(c.Message().Payload)
	if err != nil {
		return c.Send(usageGameAdd)
	}
	game, err := h.admin.CreateGame(ctx, c.Sender().ID, in)
	if err != nil {
		return replyError(c, "admin_game_add", err)
	}
	return c.Send(fmt.Sprintf("✅ 已添加游戏 #%s %s", game.ID, game.GameName))
}

// HandleGameEdit handles /admin_game_edit <id> type|url|password|extract|note.
func (h *AdminHandler) HandleGameEdit(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	id, in, err := parseGameEdit(c.Message().Payload)
	if err != nil {
		return usageOr(c, err, usageGameEdit)
	}
	game, err := h.admin.UpdateGame(ctx, c.Sender().ID, id, in)
	if err != nil {
		return replyError(c, "admin_game_edit", err)
	}
	return c.Send(fmt.Sprintf("✅ 已更新游戏 #%s %s", game.ID, game.GameName))
}

// HandleGameDel handles /admin_game_del <id>.
func (h *AdminHandler) HandleGameDel(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	args := c.Args()
	if len(args) != 1 {
		return c.Send(usageGameDel)
	}
	id, err := parseGameID(args[0])
	if err != nil {
		return c.Send("⚠️ " + err.Error())
	}
	if err := h.admin.DeleteGame(ctx, c.Sender().ID, id); err != nil {
		return replyError(c, "admin_game_del", err)
	}
	return c.Send(fmt.Sprintf("✅ 已删除游戏 #%s", id))
}

// HandleUsers handles /admin_users.
func (h *AdminHandler) HandleUsers(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	users, err := h.admin.ListUsers(ctx, c.Sender().ID)
	if err != nil {
		return replyError(c, "admin_users", err)
	}
	return c.Send(view.FormatAdminUsers(users, time.Now()))
}

// HandleUserEdit handles /admin_user_edit <id> key=value...
func (h *AdminHandler) HandleUserEdit(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	id, edit, err := parseUserEdit(c.Args())
	if err != nil {
		return usageOr(c, err, usageUserEdit)
	}
	user, err := h.admin.UpdateUser(ctx, c.Sender().ID, id, edit)
	if err != nil {
		return replyError(c, "admin_user_edit", err)
	}
	return c.Send(view.FormatAdminUser(user))
}

// HandleUserToggle handles /admin_user_toggle <id> on|off.
func (h *AdminHandler) HandleUserToggle(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	args := c.Args()
	if len(args) != 2 {
		return c.Send(usageUserToggle)
	}
	id, err := parseID(args[0])
	if err != nil {
		return c.Send("⚠️ " + err.Error())
	}
	active, err := parseToggle(args[1])
	if err != nil {
		return c.Send(usageUserToggle)
	}
	user, err := h.admin.SetUserActive(ctx, c.Sender().ID, id, active)
	if err != nil {
		return replyError(c, "admin_user_toggle", err)
	}
	return c.Send(view.FormatAdminUser(user))
}

// HandleCodes handles /admin_codes.
func (h *AdminHandler) HandleCodes(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	codes, err := h.admin.ListCodes(ctx, c.Sender().ID)
	if err != nil {
		return replyError(c, "admin_codes", err)
	}
	return c.Send(view.FormatAdminCodes(codes))
}

// HandleCodesGen handles /admin_codes_gen <VIP|PAYMENT> <count> <value>.
func (h *AdminHandler) HandleCodesGen(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	args := c.Args()
	if len(args) != 3 {
		return c.Send(usageCodesGen)
	}
	count, err := parsePositive(args[1])
	if err != nil {
		return c.Send("⚠️ " + err.Error())
	}
	value, err := parsePositive(args[2])
	if err != nil {
		return c.Send("⚠️ " + err.Error())
	}
	codes, err := h.admin.GenerateCodes(ctx, c.Sender().ID, args[0], int(count), value)
	if err != nil {
		return replyError(c, "admin_codes_gen", err)
	}
	return c.Send(view.FormatGeneratedCodes(view.CodeStrings(codes)))
}

// HandleVIPGen handles /admin_vip_gen <count> <days>.
func (h *AdminHandler) HandleVIPGen(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	args := c.Args()
	if len(args) != 2 {
		return c.Send(usageVIPGen)
	}
	count, err := parsePositive(args[0])
	if err != nil {
		return c.Send("⚠️ " + err.Error())
	}
	days, err := parsePositive(args[1])
	if err != nil {
		return c.Send("⚠️ " + err.Error())
	}
	codes, err := h.admin.GenerateVIPCodes(ctx, c.Sender().ID, int(count), int(days))
	if err != nil {
		return replyError(c, "admin_vip_gen", err)
	}
	return c.Send(view.FormatGeneratedCodes(codes))
}

// HandlePaycodes handles /admin_paycodes.
func (h *AdminHandler) HandlePaycodes(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	codes, err := h.admin.ListPaymentCodes(ctx, c.Sender().ID)
	if err != nil {
		return replyError(c, "admin_paycodes", err)
	}
	return c.Send(view.FormatAdminPaymentCodes(codes))
}

// HandlePaycodesGen handles /admin_paycodes_gen <count> <points>.
func (h *AdminHandler) HandlePaycodesGen(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	args := c.Args()
	if len(args) != 2 {
		return c.Send(usagePaycodesGen)
	}
	count, err := parsePositive(args[0])
	if err != nil {
		return c.Send("⚠️ " + err.Error())
	}
	points, err := parsePositive(args[1])
	if err != nil {
		return c.Send("⚠️ " + err.Error())
	}
	codes, err := h.admin.GeneratePaymentCodes(ctx, c.Sender().ID, int(count), points)
	if err != nil {
		return replyError(c, "admin_paycodes_gen", err)
	}
	return c.Send(view.FormatGeneratedCodes(codes))
}

// HandlePaycodeEdit handles /admin_paycode_edit <id> <points>.
func (h *AdminHandler) HandlePaycodeEdit(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	args := c.Args()
	if len(args) != 2 {
		return c.Send(usagePaycodeEdit)
	}
	id, err := parseID(args[0])
	if err != nil {
		return c.Send("⚠️ " + err.Error())
	}
	points, err := parsePositive(args[1])
	if err != nil {
		return c.Send("⚠️ " + err.Error())
	}
	code, err := h.admin.UpdatePaymentCode(ctx, c.Sender().ID, id, points)
	if err != nil {
		return replyError(c, "admin_paycode_edit", err)
	}
	return c.Send(fmt.Sprintf("✅ 支付码 %s 已更新为 %d 积分", code.Code, code.Points))
}

// HandlePaycodeDel handles /admin_paycode_del <id>.
func (h *AdminHandler) HandlePaycodeDel(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	args := c.Args()
	if len(args) != 1 {
		return c.Send(usagePaycodeDel)
	}
	id, err := parseID(args[0])
	if err != nil {
		return c.Send("⚠️ " + err.Error())
	}
	if err := h.admin.DeletePaymentCode(ctx, c.Sender().ID, id); err != nil {
		return replyError(c, "admin_paycode_del", err)
	}
	return c.Send(fmt.Sprintf("✅ 已删除支付码 #%d", id))
}

// HandleRecords handles /admin_records [type] [status] [username].
func (h *AdminHandler) HandleRecords(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	records, err := h.admin.ListRecords(ctx, c.Sender().ID, parseRecordFilter(c.Args()))
	if err != nil {
		return replyError(c, "admin_records", err)
	}
	return c.Send(view.FormatAdminRecords(records))
}

// HandleExport handles /admin_export <kind> and replies with a CSV file.
func (h *AdminHandler) HandleExport(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	args := c.Args()
	if len(args) != 1 {
		return c.Send(usageExport)
	}
	export, err := h.admin.Export(ctx, c.Sender().ID, strings.ToLower(args[0]))
	if err != nil {
		return replyError(c, "admin_export", err)
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(export.Content)),
		FileName: export.Filename,
		Caption:  fmt.Sprintf("📤 共 %d 条", export.Rows),
	}
	return c.Send(doc)
}

// HandleUpload handles a document captioned /admin_upload games|paycodes [mode].
// Documents without that caption are ignored.
func (h *AdminHandler) HandleUpload(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Document == nil {
		return nil
	}
	if !strings.HasPrefix(strings.TrimSpace(msg.Caption), usageUploadCommand) {
		return nil
	}
	target, ok := parseUploadCaption(msg.Caption)
	if !ok {
		return c.Send(usageUpload)
	}
	if msg.Document.FileSize > maxUploadSize {
		return c.Send("⚠️ 文件过大，最大 10MB")
	}

	ctx, cancel := requestContext()
	defer cancel()

	// Authorize before downloading anything.
	if _, err := h.admin.Authorize(ctx, c.Sender().ID); err != nil {
		return replyError(c, "admin_upload", err)
	}

	reader, err := c.Bot().File(&msg.Document.File)
	if err != nil {
		return replyError(c, "admin_upload", fmt.Errorf("download document: %w", err))
	}
	defer reader.Close()

	var res *api.UploadResult
	if target.kind == "games" {
		res, err = h.admin.UploadGames(ctx, c.Sender().ID, target.mode, msg.Document.FileName, reader)
	} else {
		res, err = h.admin.UploadPaymentCodes(ctx, c.Sender().ID, msg.Document.FileName, reader)
	}
	if err != nil {
		return replyError(c, "admin_upload_"+target.kind, err)
	}
	return c.Send(view.FormatUploadResult(res))
}

// HandleSiteConfig handles /admin_site_config. Without a payload it shows the
// current document; with a JSON payload it saves it and reloads the provider.
func (h *AdminHandler) HandleSiteConfig(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	payload := strings.TrimSpace(c.Message().Payload)
	if payload == "" {
		doc, err := h.admin.SiteConfig(ctx, c.Sender().ID)
		if err != nil {
			return replyError(c, "admin_site_config", err)
		}
		return h.sendJSON(c, doc)
	}

	if err := h.admin.SaveSiteConfig(ctx, c.Sender().ID, []byte(payload)); err != nil {
		return replyError(c, "admin_site_config_save", err)
	}
	h.reloadSite(ctx)
	return c.Send("✅ 站点配置已保存")
}

func (h *AdminHandler) sendJSON(c tele.Context, doc json.RawMessage) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, doc, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(doc)
	}
	if pretty.Len() <= maxInlineJSON {
		return c.Send(pretty.String())
	}
	return c.Send(&tele.Document{
		File:     tele.FromReader(bytes.NewReader(pretty.Bytes())),
		FileName: "site-config.json",
	})
}

func (h *AdminHandler) reloadSite(ctx context.Context) {
	if err := h.site.Init(ctx); err != nil {
		log.Warn().Err(err).Msg("Site config reload failed")
	}
}

// usageOr replies with the parse error, or the usage text for malformed input.
func usageOr(c tele.Context, err error, usage string) error {
	if errors.Is(err, errUsage) {
		return c.Send(usage)
	}
	return c.Send("⚠️ " + err.Error())
}
