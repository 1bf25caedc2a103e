// Package model defines the storefront entities as the backend serves them.
package model

import (
	"strings"
	"time"
)

// Profile is the authenticated user's account snapshot.
type Profile struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	Points        int64      `json:"points"`
	VIPExpireDate *Timestamp `json:"vipExpireDate"`
	IsAdmin       bool       `json:"isAdmin"`
	IsActive      bool       `json:"isActive"`
	InviteCode    string     `json:"inviteCode,omitempty"`
	CreatedAt     *Timestamp `json:"createdAt,omitempty"`
	LastLoginAt   *Timestamp `json:"lastLoginAt,omitempty"`
}

// IsVIP reports whether the VIP membership is still running at now.
func (p *Profile) IsVIP(now time.Time) bool {
	return p.VIPExpireDate != nil && p.VIPExpireDate.After(now)
}

// Game is a catalog entry. GameName is immutable once created.
type Game struct {
	ID              string `json:"id"`
	GameName        string `json:"gameName"`
	GameType        string `json:"gameType"`
	DownloadURL     string `json:"downloadUrl,omitempty"`
	Password        string `json:"password,omitempty"`
	ExtractPassword string `json:"extractPassword,omitempty"`
	Note            string `json:"note,omitempty"`
}

// GameDetail is returned by reveal and purchase.
type GameDetail struct {
	Game            Game  `json:"game"`
	RemainingPoints int64 `json:"remainingPoints"`
}

// Code types.
const (
	CodeTypeVIP     = "VIP"
	CodeTypePayment = "PAYMENT"
)

// Code is a redeemable code as listed by the admin panel.
type Code struct {
	ID        Text       `json:"id"`
	Code      string     `json:"code"`
	Type      string     `json:"type"`
	Points    int64      `json:"points,omitempty"`
	Days      int        `json:"days,omitempty"`
	Used      bool       `json:"used"`
	UsedBy    Text       `json:"usedBy,omitempty"`
	UsedAt    *Timestamp `json:"usedAt,omitempty"`
	CreatedAt *Timestamp `json:"createdAt,omitempty"`
}

// Value is points for payment codes and days for VIP codes.
func (c *Code) Value() int64 {
	if strings.EqualFold(c.Type, CodeTypeVIP) {
		return int64(c.Days)
	}
	return c.Points
}

// PaymentCode is a points top-up code.
type PaymentCode struct {
	ID     int64      `json:"id"`
	Code   string     `json:"code"`
	Amount int64      `json:"amount,omitempty"`
	Points int64      `json:"points"`
	Used   bool       `json:"used"`
	UsedBy *int64     `json:"usedBy,omitempty"`
	UsedAt *Timestamp `json:"usedAt,omitempty"`
}

// VIPRedemption is the result of redeeming a VIP code.
type VIPRedemption struct {
	ExpireDate *Timestamp `json:"expireDate"`
}

// PaymentRedemption is the result of redeeming a payment code.
type PaymentRedemption struct {
	Points      int64 `json:"points"`
	TotalPoints int64 `json:"totalPoints"`
}

// Transaction statuses and channels.
const (
	TxStatusPending   = "PENDING"
	TxStatusCompleted = "COMPLETED"
	TxStatusFailed    = "FAILED"

	TxTypeWeChatPay = "WECHAT_PAY"
	TxTypeAliPay    = "ALI_PAY"
)

// Transaction is a simulated deposit.
type Transaction struct {
	TransactionID          int64      `json:"transactionId"`
	Type                   string     `json:"type"`
	Amount                 int64      `json:"amount"`
	FromUser               int64      `json:"fromUser"`
	ExternalTransactionKey string     `json:"externalTransactionKey"`
	CreatedAt              *Timestamp `json:"createdAt,omitempty"`
	Status                 string     `json:"status"`
}

// Record types.
const (
	RecordTypePurchase = "PURCHASE"
	RecordTypePayment  = "PAYMENT"
	RecordTypeVIP      = "VIP"
)

// Record is one row of the admin audit log.
type Record struct {
	ID        Text       `json:"id"`
	Type      string     `json:"type"`
	UserID    int64      `json:"userId"`
	Username  string     `json:"username"`
	Amount    int64      `json:"amount,omitempty"`
	Points    int64      `json:"points,omitempty"`
	Days      int        `json:"days,omitempty"`
	GameID    Text       `json:"gameId,omitempty"`
	GameName  string     `json:"gameName,omitempty"`
	Code      string     `json:"code,omitempty"`
	Status    string     `json:"status"`
	CreatedAt *Timestamp `json:"createdAt,omitempty"`
}

// RecordFilter narrows the audit log listing. Empty fields and "ALL" are ignored.
type RecordFilter struct {
	Type      string
	Status    string
	Username  string
	StartDate string
	EndDate   string
}

// Session is the locally persisted login of one Telegram user.
type Session struct {
	TelegramID int64      `db:"telegram_id"`
	Username   string     `db:"username"`
	Token      string     `db:"token"`
	ExpiresAt  *time.Time `db:"expires_at"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

// Expired reports whether the token's expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}
