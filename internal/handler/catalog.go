package handler

import (
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/EgoistMa/tokomo-app/internal/service"
	"github.com/EgoistMa/tokomo-app/internal/view"
)

// CatalogHandler handles search, library and unlock.
type CatalogHandler struct {
	catalog  *service.CatalogService
	profiles *service.ProfileService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService, profiles *service.ProfileService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, profiles: profiles}
}

// HandleSearch handles /search <keyword>. The results are stashed so the
// result panel can be shown again once without a new query.
func (h *CatalogHandler) HandleSearch(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	keyword := strings.TrimSpace(c.Message().Payload)
	if keyword == "" {
		return c.Send(usageSearch)
	}

	games, err := h.catalog.Search(ctx, sender.ID, keyword)
	if err != nil {
		return replyError(c, "search", err)
	}
	if len(games) == 0 {
		return c.Send(view.FormatResults(keyword, games))
	}
	if err := c.Send(view.FormatResults(keyword, games), view.BuildResultsPanel(games)); err != nil {
		return err
	}
	return c.Send("需要时可再次展开结果：", view.BuildReshowPanel(keyword))
}

// HandleLibrary handles /library.
func (h *CatalogHandler) HandleLibrary(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	games, err := h.catalog.Purchased(ctx, sender.ID)
	if err != nil {
		return replyError(c, "library", err)
	}
	if len(games) == 0 {
		return c.Send(view.FormatLibrary(games))
	}
	return c.Send(view.FormatLibrary(games), view.BuildResultsPanel(games))
}

// HandleResultsCallback shows the stashed results of a keyword.
func (h *CatalogHandler) HandleResultsCallback(c tele.Context, data string) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	keyword, ok := view.ParseResultsData(data)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "❌ 无效的操作"})
	}

	games, err := h.catalog.Results(ctx, sender.ID, keyword)
	if err != nil {
		return respondError(c, "results", err)
	}
	_ = c.Respond()
	if len(games) == 0 {
		return c.Edit(view.FormatResults(keyword, games))
	}
	return c.Edit(view.FormatResults(keyword, games), view.BuildResultsPanel(games))
}

// HandleUnlockCallback reveals a game, buying it when needed.
func (h *CatalogHandler) HandleUnlockCallback(c tele.Context, data string) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	gameID, ok := view.ParseUnlockData(data)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "❌ 无效的游戏"})
	}

	res, err := h.catalog.Unlock(ctx, sender.ID, gameID)
	if err != nil {
		if ipe, ok := service.IsInsufficientPoints(err); ok {
			var balance int64
			if p := h.profiles.Cached(sender.ID); p != nil {
				balance = p.Points
			}
			_ = c.Respond(&tele.CallbackResponse{Text: "❌ 积分不足"})
			return c.Send(view.FormatInsufficientPoints(ipe.Required, balance))
		}
		return respondError(c, "unlock", err)
	}

	log.Debug().
		Int64("telegram_id", sender.ID).
		Str("game_id", gameID).
		Bool("charged", res.Charged).
		Msg("Game unlocked")

	_ = c.Respond(&tele.CallbackResponse{Text: "🔓 已解锁"})
	return c.Send(view.FormatUnlock(res.Detail, res.Charged), tele.NoPreview)
}
