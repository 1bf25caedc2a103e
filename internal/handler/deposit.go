package handler

import (
	tele "gopkg.in/telebot.v3"

	"github.com/EgoistMa/tokomo-app/internal/service"
	"github.com/EgoistMa/tokomo-app/internal/view"
)

// DepositHandler handles the simulated top-up.
type DepositHandler struct {
	deposit *service.DepositService
}

// NewDepositHandler creates a new DepositHandler.
func NewDepositHandler(deposit *service.DepositService) *DepositHandler {
	return &DepositHandler{deposit: deposit}
}

// HandleDeposit handles /deposit <amount>.
func (h *DepositHandler) HandleDeposit(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) != 1 {
		return c.Send(usageDeposit)
	}
	amount, err := parsePositive(args[0])
	if err != nil {
		return c.Send("⚠️ " + err.Error())
	}

	tx, err := h.deposit.Create(ctx, sender.ID, amount)
	if err != nil {
		return replyError(c, "deposit_create", err)
	}
	return c.Send(view.FormatDeposit(tx), view.BuildDepositPanel())
}

// HandleConfirmCallback resolves the pending deposit.
func (h *DepositHandler) HandleConfirmCallback(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	tx, err := h.deposit.Confirm(ctx, sender.ID)
	if err != nil {
		return respondError(c, "deposit_confirm", err)
	}
	_ = c.Respond(&tele.CallbackResponse{Text: "✅ 支付成功"})
	return c.Edit(view.FormatDepositDone(tx))
}

// HandleCancelCallback drops the pending deposit.
func (h *DepositHandler) HandleCancelCallback(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	h.deposit.Cancel(sender.ID)
	_ = c.Respond(&tele.CallbackResponse{Text: "已取消"})
	return c.Edit("❌ 充值已取消")
}
