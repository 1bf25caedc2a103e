package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/EgoistMa/tokomo-app/internal/api"
	"github.com/EgoistMa/tokomo-app/internal/model"
)

// Upload modes.
const (
	UploadModeOverwrite = "overwrite"
	UploadModeMerge     = "merge"
)

const maxCodeBatch = 500

var uploadExtensions = map[string]bool{".csv": true, ".xlsx": true, ".xls": true}

// AdminService is a thin, validated front for the admin endpoints. The
// backend stays the final arbiter of permissions.
type AdminService struct {
	sessions *SessionService
	profiles *ProfileService
	api      *api.Client
}

// NewAdminService creates a new AdminService.
func NewAdminService(sessions *SessionService, profiles *ProfileService, client *api.Client) *AdminService {
	return &AdminService{sessions: sessions, profiles: profiles, api: client}
}

// Authorize returns the admin's token, or ErrNotAdmin.
func (s *AdminService) Authorize(ctx context.Context, telegramID int64) (string, error) {
	profile, err := s.profiles.Current(ctx, telegramID)
	if err != nil {
		return "", err
	}
	if !profile.IsAdmin {
		return "", ErrNotAdmin
	}
	return s.sessions.Token(ctx, telegramID)
}

// run authorizes, calls fn and maps auth failures.
func (s *AdminService) run(ctx context.Context, telegramID int64, operation string, fn func(token string) error) error {
	token, err := s.Authorize(ctx, telegramID)
	if err != nil {
		return err
	}
	if err := fn(token); err != nil {
		return s.sessions.checkAuth(ctx, telegramID, err)
	}
	log.Info().
		Int64("admin_id", telegramID).
		Str("operation", operation).
		Msg("Admin operation executed")
	return nil
}

// ListGames returns the catalog.
func (s *AdminService) ListGames(ctx context.Context, telegramID int64) ([]model.Game, error) {
	var games []model.Game
	err := s.run(ctx, telegramID, "list_games", func(token string) error {
		var err error
		games, err = s.api.ListGames(ctx, token)
		return err
	})
	return games, err
}

// CreateGame adds a game. Name and type are required.
func (s *AdminService) CreateGame(ctx context.Context, telegramID int64, in api.GameInput) (*model.Game, error) {
	in.GameName = strings.TrimSpace(in.GameName)
	in.GameType = strings.TrimSpace(in.GameType)
	if in.GameName == "" {
		return nil, invalid("gameName", "不能为空")
	}
	if in.GameType == "" {
		return nil, invalid("gameType", "不能为空")
	}

	var game *model.Game
	err := s.run(ctx, telegramID, "create_game", func(token string) error {
		var err error
		game, err = s.api.CreateGame(ctx, token, in)
		return err
	})
	return game, err
}

// UpdateGame edits a game. The name cannot change.
func (s *AdminService) UpdateGame(ctx context.Context, telegramID int64, gameID string, in api.GameInput) (*model.Game, error) {
	if strings.TrimSpace(gameID) == "" {
		return nil, invalid("gameId", "不能为空")
	}
	if in.GameName != "" {
		return nil, invalid("gameName", "创建后不可修改")
	}
	var game *model.Game
	err := s.run(ctx, telegramID, "update_game", func(token string) error {
		var err error
		game, err = s.api.UpdateGame(ctx, token, gameID, in)
		return err
	})
	return game, err
}

// DeleteGame removes a game. Games with owners cannot be deleted.
func (s *AdminService) DeleteGame(ctx context.Context, telegramID int64, gameID string) error {
	if strings.TrimSpace(gameID) == "" {
		return invalid("gameId", "不能为空")
	}
	return s.run(ctx, telegramID, "delete_game", func(token string) error {
		err := s.api.DeleteGame(ctx, token, gameID)
		if api.HasCode(err, api.CodeConstraint) {
			return fmt.Errorf("%w: %v", ErrGameOwned, err)
		}
		return err
	})
}

func checkUploadName(filename string) error {
	if !uploadExtensions[strings.ToLower(filepath.Ext(filename))] {
		return invalid("file", "仅支持 .csv / .xlsx / .xls")
	}
	return nil
}

// UploadGames imports games. mode is overwrite or merge.
func (s *AdminService) UploadGames(ctx context.Context, telegramID int64, mode, filename string, content io.Reader) (*api.UploadResult, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != UploadModeOverwrite && mode != UploadModeMerge {
		return nil, invalid("mode", "只能是 overwrite 或 merge")
	}
	if err := checkUploadName(filename); err != nil {
		return nil, err
	}

	var res *api.UploadResult
	err := s.run(ctx, telegramID, "upload_games_"+mode, func(token string) error {
		var err error
		res, err = s.api.UploadGames(ctx, token, mode, api.Upload{Filename: filename, Content: content})
		return err
	})
	return res, err
}

// UploadPaymentCodes replaces the payment codes with a spreadsheet.
func (s *AdminService) UploadPaymentCodes(ctx context.Context, telegramID int64, filename string, content io.Reader) (*api.UploadResult, error) {
	if err := checkUploadName(filename); err != nil {
		return nil, err
	}
	var res *api.UploadResult
	err := s.run(ctx, telegramID, "upload_payment_codes", func(token string) error {
		var err error
		res, err = s.api.UploadPaymentCodes(ctx, token, api.Upload{Filename: filename, Content: content})
		return err
	})
	return res, err
}

// ListUsers returns every account.
func (s *AdminService) ListUsers(ctx context.Context, telegramID int64) ([]model.Profile, error) {
	var users []model.Profile
	err := s.run(ctx, telegramID, "list_users", func(token string) error {
		var err error
		users, err = s.api.ListUsers(ctx, token)
		return err
	})
	return users, err
}

// UserEdit is an admin change to an account.
type UserEdit struct {
	Points    *int64
	VIPExpiry *time.Time
	ClearVIP  bool
	IsAdmin   *bool
}

// UpdateUser applies edit to a user.
func (s *AdminService) UpdateUser(ctx context.Context, telegramID, userID int64, edit UserEdit) (*model.Profile, error) {
	if edit.Points != nil && *edit.Points < 0 {
		return nil, invalid("points", "不能为负数")
	}
	in := api.UserUpdate{Points: edit.Points, IsAdmin: edit.IsAdmin}
	switch {
	case edit.ClearVIP:
		empty := ""
		in.VIPExpireDate = &empty
	case edit.VIPExpiry != nil:
		formatted := edit.VIPExpiry.Format("2006-01-02T15:04:05")
		in.VIPExpireDate = &formatted
	}

	var user *model.Profile
	err := s.run(ctx, telegramID, "update_user", func(token string) error {
		var err error
		user, err = s.api.UpdateUser(ctx, token, userID, in)
		return err
	})
	return user, err
}

// SetUserActive enables or disables an account.
func (s *AdminService) SetUserActive(ctx context.Context, telegramID, userID int64, active bool) (*model.Profile, error) {
	var user *model.Profile
	err := s.run(ctx, telegramID, "set_user_active", func(token string) error {
		var err error
		user, err = s.api.UpdateUser(ctx, token, userID, api.UserUpdate{IsActive: &active})
		return err
	})
	return user, err
}

// ListCodes returns VIP and payment codes.
func (s *AdminService) ListCodes(ctx context.Context, telegramID int64) ([]model.Code, error) {
	var codes []model.Code
	err := s.run(ctx, telegramID, "list_codes", func(token string) error {
		var err error
		codes, err = s.api.ListCodes(ctx, token)
		return err
	})
	return codes, err
}

// GenerateCodes creates count codes. VIP codes carry days, payment codes points.
func (s *AdminService) GenerateCodes(ctx context.Context, telegramID int64, codeType string, count int, value int64) ([]model.Code, error) {
	codeType = strings.ToUpper(strings.TrimSpace(codeType))
	if count < 1 || count > maxCodeBatch {
		return nil, invalid("count", fmt.Sprintf("范围 1-%d", maxCodeBatch))
	}
	if value <= 0 {
		return nil, invalid("value", "必须大于 0")
	}
	batch := api.CodeBatch{Type: codeType, Count: count}
	switch codeType {
	case model.CodeTypeVIP:
		batch.Days = int(value)
	case model.CodeTypePayment:
		batch.Points = value
	default:
		return nil, invalid("type", "只能是 VIP 或 PAYMENT")
	}

	var codes []model.Code
	err := s.run(ctx, telegramID, "generate_codes", func(token string) error {
		var err error
		codes, err = s.api.GenerateCodes(ctx, token, batch)
		return err
	})
	return codes, err
}

// GenerateVIPCodes creates amount VIP codes valid for validDays.
func (s *AdminService) GenerateVIPCodes(ctx context.Context, telegramID int64, amount, validDays int) ([]string, error) {
	if amount < 1 || amount > maxCodeBatch {
		return nil, invalid("amount", fmt.Sprintf("范围 1-%d", maxCodeBatch))
	}
	if validDays <= 0 {
		return nil, invalid("validDays", "必须大于 0")
	}
	var codes []string
	err := s.run(ctx, telegramID, "generate_vip_codes", func(token string) error {
		var err error
		codes, err = s.api.GenerateVIPCodes(ctx, token, amount, validDays)
		return err
	})
	return codes, err
}

// GeneratePaymentCodes creates amount payment codes worth points each.
func (s *AdminService) GeneratePaymentCodes(ctx context.Context, telegramID int64, amount int, points int64) ([]string, error) {
	if amount < 1 || amount > maxCodeBatch {
		return nil, invalid("amount", fmt.Sprintf("范围 1-%d", maxCodeBatch))
	}
	if points <= 0 {
		return nil, invalid("points", "必须大于 0")
	}
	var codes []string
	err := s.run(ctx, telegramID, "generate_payment_codes", func(token string) error {
		var err error
		codes, err = s.api.GeneratePaymentCodes(ctx, token, amount, points)
		return err
	})
	return codes, err
}

// ListPaymentCodes returns every payment code.
func (s *AdminService) ListPaymentCodes(ctx context.Context, telegramID int64) ([]model.PaymentCode, error) {
	var codes []model.PaymentCode
	err := s.run(ctx, telegramID, "list_payment_codes", func(token string) error {
		var err error
		codes, err = s.api.ListPaymentCodes(ctx, token)
		return err
	})
	return codes, err
}

// UpdatePaymentCode changes the points of an unused payment code.
func (s *AdminService) UpdatePaymentCode(ctx context.Context, telegramID, codeID, points int64) (*model.PaymentCode, error) {
	if points <= 0 {
		return nil, invalid("points", "必须大于 0")
	}
	var code *model.PaymentCode
	err := s.run(ctx, telegramID, "update_payment_code", func(token string) error {
		var err error
		code, err = s.api.UpdatePaymentCode(ctx, token, codeID, api.PaymentCodeUpdate{Points: &points})
		return err
	})
	return code, err
}

// DeletePaymentCode removes a payment code.
func (s *AdminService) DeletePaymentCode(ctx context.Context, telegramID, codeID int64) error {
	return s.run(ctx, telegramID, "delete_payment_code", func(token string) error {
		return s.api.DeletePaymentCode(ctx, token, codeID)
	})
}

// ListRecords returns audit records.
func (s *AdminService) ListRecords(ctx context.Context, telegramID int64, filter model.RecordFilter) ([]model.Record, error) {
	var records []model.Record
	err := s.run(ctx, telegramID, "list_records", func(token string) error {
		var err error
		records, err = s.api.ListRecords(ctx, token, filter)
		return err
	})
	return records, err
}

// SiteConfig returns the editable site config, indented.
func (s *AdminService) SiteConfig(ctx context.Context, telegramID int64) (json.RawMessage, error) {
	var doc json.RawMessage
	err := s.run(ctx, telegramID, "get_site_config", func(token string) error {
		var err error
		doc, err = s.api.AdminSiteConfig(ctx, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	return unwrapJSONString(doc), nil
}

// SaveSiteConfig validates doc as a site config and stores it.
func (s *AdminService) SaveSiteConfig(ctx context.Context, telegramID int64, doc []byte) error {
	var probe model.SiteConfig
	if err := json.Unmarshal(doc, &probe); err != nil {
		return invalid("siteConfig", "不是有效的 JSON: "+err.Error())
	}
	return s.run(ctx, telegramID, "save_site_config", func(token string) error {
		return s.api.SaveSiteConfig(ctx, token, json.RawMessage(doc))
	})
}

// unwrapJSONString decodes a JSON document that was delivered as a string.
func unwrapJSONString(doc json.RawMessage) json.RawMessage {
	var inner string
	if err := json.Unmarshal(doc, &inner); err == nil && json.Valid([]byte(inner)) {
		return json.RawMessage(inner)
	}
	return doc
}
