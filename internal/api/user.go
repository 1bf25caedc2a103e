package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/EgoistMa/tokomo-app/internal/model"
)

// Credentials is the login body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the register body. Question/Answer duplicate the security
// fields for backends that read the short names.
type Registration struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	SecurityQuestion string `json:"securityQuestion"`
	SecurityAnswer   string `json:"securityAnswer"`
	Question         string `json:"question,omitempty"`
	Answer           string `json:"answer,omitempty"`
	InviteCode       string `json:"inviteCode,omitempty"`
}

// TokenResult carries the bearer token issued on login or register.
type TokenResult struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*TokenResult, error) {
	var out TokenResult
	if _, err := c.send(ctx, http.MethodPost, "", "/api/user/login", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. The token is empty when the backend does not log the user in.
func (c *Client) Register(ctx context.Context, reg Registration) (*TokenResult, error) {
	reg.Question, reg.Answer = reg.SecurityQuestion, reg.SecurityAnswer
	var out TokenResult
	if _, err := c.send(ctx, http.MethodPost, "", "/api/user/register", reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile fetches the account behind token.
func (c *Client) Profile(ctx context.Context, token string) (*model.Profile, error) {
	var out model.Profile
	if err := c.get(ctx, token, "/api/user/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SecurityQuestion returns the recovery question for username.
func (c *Client) SecurityQuestion(ctx context.Context, username string) (string, error) {
	var out string
	if err := c.get(ctx, "", "/api/user/password/security-question", url.Values{"username": {username}}, &out); err != nil {
		return "", err
	}
	return out, nil
}

// ResetPassword sets a new password after answering the security question.
func (c *Client) ResetPassword(ctx context.Context, username, answer, newPassword string) error {
	body := map[string]string{
		"username":       username,
		"securityAnswer": answer,
		"newPassword":    newPassword,
	}
	_, err := c.send(ctx, http.MethodPost, "", "/api/user/password/reset", body, nil)
	return err
}

// RedeemVIP applies a VIP code to the account.
func (c *Client) RedeemVIP(ctx context.Context, token, code string) (*model.VIPRedemption, error) {
	var out model.VIPRedemption
	if _, err := c.send(ctx, http.MethodPost, token, "/api/user/redeem-vip", map[string]string{"code": code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RedeemPayment applies a payment code to the account.
func (c *Client) RedeemPayment(ctx context.Context, token, code string) (*model.PaymentRedemption, error) {
	var out model.PaymentRedemption
	if _, err := c.send(ctx, http.MethodPost, token, "/api/user/redeem-payment", map[string]string{"code": code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PaymentHistory lists the payment codes the user has redeemed.
func (c *Client) PaymentHistory(ctx context.Context, token string) ([]model.PaymentCode, error) {
	var out []model.PaymentCode
	if err := c.get(ctx, token, "/api/user/payment-history", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
