package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/EgoistMa/tokomo-app/internal/model"
)

// Export kinds.
const (
	ExportCodes        = "codes"
	ExportPaymentCodes = "paycodes"
	ExportRecords      = "records"
	ExportGames        = "games"
)

// utf8BOM lets spreadsheet tools detect the encoding of the Chinese headers.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Export is a rendered CSV file.
type Export struct {
	Filename string
	Content  []byte
	Rows     int
}

func usedLabel(used bool) string {
	if used {
		return "已使用"
	}
	return "未使用"
}

func codeTypeLabel(t string) string {
	if t == model.CodeTypeVIP {
		return "VIP会员"
	}
	return "积分"
}

// CodesCSV renders the unified code listing.
func CodesCSV(codes []model.Code) ([]byte, error) {
	rows := make([][]string, 0, len(codes))
	for _, c := range codes {
		rows = append(rows, []string{
			c.Code,
			codeTypeLabel(c.Type),
			strconv.FormatInt(c.Value(), 10),
			usedLabel(c.Used),
			orDash(c.UsedBy.String()),
			model.FormatTime(c.UsedAt),
			model.FormatTime(c.CreatedAt),
		})
	}
	return writeCSV([]string{"兑换码", "类型", "点数/天数", "状态", "使用者", "使用时间", "创建时间"}, rows)
}

// PaymentCodesCSV renders the payment code listing.
func PaymentCodesCSV(codes []model.PaymentCode) ([]byte, error) {
	rows := make([][]string, 0, len(codes))
	for _, c := range codes {
		usedBy := "-"
		if c.UsedBy != nil {
			usedBy = strconv.FormatInt(*c.UsedBy, 10)
		}
		rows = append(rows, []string{
			c.Code,
			strconv.FormatInt(c.Points, 10),
			usedLabel(c.Used),
			usedBy,
			model.FormatTime(c.UsedAt),
		})
	}
	return writeCSV([]string{"支付码", "金额", "状态", "使用者ID", "使用时间"}, rows)
}

// RecordsCSV renders audit records.
func RecordsCSV(records []model.Record) ([]byte, error) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ID.String(),
			r.Type,
			r.Username,
			strconv.FormatInt(r.Amount, 10),
			strconv.FormatInt(r.Points, 10),
			strconv.Itoa(r.Days),
			orDash(r.GameName),
			orDash(r.Code),
			r.Status,
			model.FormatTime(r.CreatedAt),
		})
	}
	return writeCSV([]string{"ID", "类型", "用户", "金额", "点数", "天数", "游戏", "兑换码", "状态", "时间"}, rows)
}

// GamesCSV renders the catalog in the column order the importer reads.
func GamesCSV(games []model.Game) ([]byte, error) {
	rows := make([][]string, 0, len(games))
	for _, g := range games {
		rows = append(rows, []string{
			g.ID,
			g.GameType,
			g.GameName,
			g.DownloadURL,
			g.Password,
			g.ExtractPassword,
			g.Note,
		})
	}
	return writeCSV([]string{"ID", "类型", "游戏名称", "下载地址", "密码", "解压密码", "备注"}, rows)
}

func writeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Export fetches a listing and renders it as CSV.
func (s *AdminService) Export(ctx context.Context, telegramID int64, kind string) (*Export, error) {
	var (
		content []byte
		rows    int
		err     error
	)
	switch kind {
	case ExportCodes:
		var codes []model.Code
		if codes, err = s.ListCodes(ctx, telegramID); err == nil {
			rows = len(codes)
			content, err = CodesCSV(codes)
		}
	case ExportPaymentCodes:
		var codes []model.PaymentCode
		if codes, err = s.ListPaymentCodes(ctx, telegramID); err == nil {
			rows = len(codes)
			content, err = PaymentCodesCSV(codes)
		}
	case ExportRecords:
		var records []model.Record
		if records, err = s.ListRecords(ctx, telegramID, model.RecordFilter{}); err == nil {
			rows = len(records)
			content, err = RecordsCSV(records)
		}
	case ExportGames:
		var games []model.Game
		if games, err = s.ListGames(ctx, telegramID); err == nil {
			rows = len(games)
			content, err = GamesCSV(games)
		}
	default:
		return nil, invalid("kind", "只能是 codes / paycodes / records / games")
	}
	if err != nil {
		return nil, err
	}

	return &Export{
		Filename: fmt.Sprintf("%s_%s.csv", kind, time.Now().Format("20060102")),
		Content:  content,
		Rows:     rows,
	}, nil
}
