package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/EgoistMa/tokomo-app/internal/model"
)

// GameInput is the body of game create and update. GameName is ignored on update.
type GameInput struct {
	GameName        string `json:"gameName,omitempty"`
	GameType        string `json:"gameType"`
	DownloadURL     string `json:"downloadUrl"`
	Password        string `json:"password"`
	ExtractPassword string `json:"extractPassword"`
	Note            string `json:"note"`
}

// UserUpdate is the admin user edit body. Nil fields are left unchanged.
type UserUpdate struct {
	Points        *int64  `json:"points,omitempty"`
	VIPExpireDate *string `json:"vipExpireDate,omitempty"`
	IsAdmin       *bool   `json:"isAdmin,omitempty"`
	IsActive      *bool   `json:"isActive,omitempty"`
}

// CodeBatch requests a batch of VIP or payment codes.
type CodeBatch struct {
	Type   string `json:"type"`
	Count  int    `json:"count"`
	Points int64  `json:"points,omitempty"`
	Days   int    `json:"days,omitempty"`
}

// PaymentCodeUpdate is the admin payment code edit body.
type PaymentCodeUpdate struct {
	Points *int64 `json:"points,omitempty"`
	Used   *bool  `json:"used,omitempty"`
}

// UploadResult summarises a bulk import.
type UploadResult struct {
	Message    string
	Count      int
	Duplicates int
	Skipped    int
}

// Upload is a spreadsheet to import.
type Upload struct {
	Filename string
	Content  io.Reader
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

// ListGames returns the full catalog.
func (c *Client) ListGames(ctx context.Context, token string) ([]model.Game, error) {
	var out []model.Game
	if err := c.get(ctx, token, "/api/admin/games", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateGame adds a catalog entry.
func (c *Client) CreateGame(ctx context.Context, token string, in GameInput) (*model.Game, error) {
	var out model.Game
	if _, err := c.send(ctx, http.MethodPost, token, "/api/admin/games", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateGame edits a catalog entry.
func (c *Client) UpdateGame(ctx context.Context, token, id string, in GameInput) (*model.Game, error) {
	in.GameName = ""
	var out model.Game
	if _, err := c.send(ctx, http.MethodPut, token, "/api/admin/games/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteGame removes a catalog entry.
func (c *Client) DeleteGame(ctx context.Context, token, id string) error {
	_, err := c.send(ctx, http.MethodDelete, token, "/api/admin/games/"+url.PathEscape(id), nil, nil)
	return err
}

// UploadGames imports a spreadsheet of games in overwrite or merge mode.
func (c *Client) UploadGames(ctx context.Context, token, mode string, up Upload) (*UploadResult, error) {
	return c.upload(ctx, token, "/api/admin/games/upload", url.Values{"mode": {mode}}, up)
}

// UploadPaymentCodes replaces the payment codes with a spreadsheet.
func (c *Client) UploadPaymentCodes(ctx context.Context, token string, up Upload) (*UploadResult, error) {
	return c.upload(ctx, token, "/api/admin/payment/setPay", nil, up)
}

func (c *Client) upload(ctx context.Context, token, path string, query url.Values, up Upload) (*UploadResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", up.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, up.Content); err != nil {
		return nil, fmt.Errorf("failed to copy upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var raw json.RawMessage
	msg, err := c.call(ctx, request{
		method:      http.MethodPost,
		path:        path,
		token:       token,
		query:       query,
		raw:         &buf,
		contentType: w.FormDataContentType(),
	}, &raw)
	if err != nil {
		return nil, err
	}
	res := decodeUpload(raw)
	res.Message = msg
	return res, nil
}

// decodeUpload understands {count}, {games, duplicateGames, skippedGames} and a bare list.
func decodeUpload(raw json.RawMessage) *UploadResult {
	res := &UploadResult{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return res
	}
	if trimmed[0] == '[' {
		var items []json.RawMessage
		if json.Unmarshal(trimmed, &items) == nil {
			res.Count = len(items)
		}
		return res
	}
	var body struct {
		Count          *int                       `json:"count"`
		Games          []json.RawMessage          `json:"games"`
		DuplicateGames map[string]json.RawMessage `json:"duplicateGames"`
		SkippedGames   []json.RawMessage          `json:"skippedGames"`
	}
	if json.Unmarshal(trimmed, &body) != nil {
		return res
	}
	res.Count = len(body.Games)
	if body.Count != nil {
		res.Count = *body.Count
	}
	res.Duplicates = len(body.DuplicateGames)
	res.Skipped = len(body.SkippedGames)
	return res
}

// ListUsers returns every account.
func (c *Client) ListUsers(ctx context.Context, token string) ([]model.Profile, error) {
	var out []model.Profile
	if err := c.get(ctx, token, "/api/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUser edits points, VIP expiry, admin or active flags.
func (c *Client) UpdateUser(ctx context.Context, token string, id int64, in UserUpdate) (*model.Profile, error) {
	var out model.Profile
	if _, err := c.send(ctx, http.MethodPut, token, "/api/admin/users/"+itoa(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCodes returns VIP and payment codes together.
func (c *Client) ListCodes(ctx context.Context, token string) ([]model.Code, error) {
	var out []model.Code
	if err := c.get(ctx, token, "/api/admin/codes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateCodes creates a batch of codes.
func (c *Client) GenerateCodes(ctx context.Context, token string, batch CodeBatch) ([]model.Code, error) {
	var out []model.Code
	if _, err := c.send(ctx, http.MethodPost, token, "/api/admin/codes/generate", batch, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateVIPCodes creates amount VIP codes valid for validDays.
func (c *Client) GenerateVIPCodes(ctx context.Context, token string, amount, validDays int) ([]string, error) {
	body := map[string]int{"amount": amount, "validDays": validDays}
	var out struct {
		Codes []json.RawMessage `json:"codes"`
	}
	if _, err := c.send(ctx, http.MethodPost, token, "/api/admin/vip/genVip", body, &out); err != nil {
		return nil, err
	}
	return codeStrings(out.Codes), nil
}

// GeneratePaymentCodes creates amount codes worth points each.
func (c *Client) GeneratePaymentCodes(ctx context.Context, token string, amount int, points int64) ([]string, error) {
	body := map[string]int64{"amount": int64(amount), "points": points}
	var out struct {
		Codes []json.RawMessage `json:"codes"`
	}
	if _, err := c.send(ctx, http.MethodPost, token, "/api/admin/payment/genPay", body, &out); err != nil {
		return nil, err
	}
	return codeStrings(out.Codes), nil
}

// codeStrings accepts codes as strings or as objects with a code field.
func codeStrings(items []json.RawMessage) []string {
	codes := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			codes = append(codes, s)
			continue
		}
		var obj struct {
			Code string `json:"code"`
		}
		if json.Unmarshal(item, &obj) == nil && obj.Code != "" {
			codes = append(codes, obj.Code)
		}
	}
	return codes
}

// ListPaymentCodes returns every payment code.
func (c *Client) ListPaymentCodes(ctx context.Context, token string) ([]model.PaymentCode, error) {
	var out []model.PaymentCode
	if err := c.get(ctx, token, "/api/admin/payment/codes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePaymentCode edits a payment code.
func (c *Client) UpdatePaymentCode(ctx context.Context, token string, id int64, in PaymentCodeUpdate) (*model.PaymentCode, error) {
	var out model.PaymentCode
	if _, err := c.send(ctx, http.MethodPut, token, "/api/admin/payment/codes/"+itoa(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePaymentCode removes a payment code.
func (c *Client) DeletePaymentCode(ctx context.Context, token string, id int64) error {
	_, err := c.send(ctx, http.MethodDelete, token, "/api/admin/payment/codes/"+itoa(id), nil, nil)
	return err
}

// ListRecords returns audit records matching f.
func (c *Client) ListRecords(ctx context.Context, token string, f model.RecordFilter) ([]model.Record, error) {
	q := url.Values{}
	for key, val := range map[string]string{
		"type":      f.Type,
		"status":    f.Status,
		"username":  f.Username,
		"startDate": f.StartDate,
		"endDate":   f.EndDate,
	} {
		val = strings.TrimSpace(val)
		if val == "" || strings.EqualFold(val, "ALL") {
			continue
		}
		q.Set(key, val)
	}
	var out []model.Record
	if err := c.get(ctx, token, "/api/admin/records", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}
