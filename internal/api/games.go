package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/EgoistMa/tokomo-app/internal/model"
)

// SearchGames queries the catalog by keyword.
func (c *Client) SearchGames(ctx context.Context, token, keyword string) ([]model.Game, error) {
	var out []model.Game
	if err := c.get(ctx, token, "/api/games/search", url.Values{"keyword": {keyword}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GameDetail reveals an owned game. A 403 means it has not been purchased.
func (c *Client) GameDetail(ctx context.Context, token, gameID string) (*model.GameDetail, error) {
	var out model.GameDetail
	if err := c.get(ctx, token, "/api/games/"+url.PathEscape(gameID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PurchaseGame spends points on a game and returns its details.
func (c *Client) PurchaseGame(ctx context.Context, token, gameID string) (*model.GameDetail, error) {
	var out model.GameDetail
	body := map[string]string{"gameId": gameID}
	if _, err := c.send(ctx, http.MethodPost, token, "/api/games/purchase", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PurchasedGames lists the caller's library.
func (c *Client) PurchasedGames(ctx context.Context, token string) ([]model.Game, error) {
	var out []model.Game
	if err := c.get(ctx, token, "/api/games/purchased", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
