package handler

import (
	tele "gopkg.in/telebot.v3"

	"github.com/EgoistMa/tokomo-app/internal/service"
	"github.com/EgoistMa/tokomo-app/internal/view"
)

// RedeemHandler handles VIP and payment code redemption.
type RedeemHandler struct {
	redeem *service.RedeemService
}

// NewRedeemHandler creates a new RedeemHandler.
func NewRedeemHandler(redeem *service.RedeemService) *RedeemHandler {
	return &RedeemHandler{redeem: redeem}
}

// HandleVIP handles /vip <code>.
func (h *RedeemHandler) HandleVIP(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) != 1 {
		return c.Send(usageVIP)
	}

	res, err := h.redeem.RedeemVIP(ctx, sender.ID, args[0])
	if err != nil {
		return replyError(c, "redeem_vip", err)
	}
	return c.Send(view.FormatVIPRedeemed(res))
}

// HandlePaycode handles /paycode <code>.
func (h *RedeemHandler) HandlePaycode(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) != 1 {
		return c.Send(usagePaycode)
	}

	res, err := h.redeem.RedeemPayment(ctx, sender.ID, args[0])
	if err != nil {
		return replyError(c, "redeem_payment", err)
	}
	return c.Send(view.FormatPaymentRedeemed(res))
}

// HandlePayments handles /payments.
func (h *RedeemHandler) HandlePayments(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	codes, err := h.redeem.PaymentHistory(ctx, sender.ID)
	if err != nil {
		return replyError(c, "payment_history", err)
	}
	return c.Send(view.FormatPaymentHistory(codes))
}
