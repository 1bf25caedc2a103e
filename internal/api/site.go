package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// SiteConfig returns the public storefront content as delivered. The payload
// may be an object or a JSON document encoded as a string.
func (c *Client) SiteConfig(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "", "/api/site-config", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// AdminSiteConfig returns the editable site config.
func (c *Client) AdminSiteConfig(ctx context.Context, token string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, token, "/api/admin/site-config", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SaveSiteConfig replaces the site config with doc.
func (c *Client) SaveSiteConfig(ctx context.Context, token string, doc json.RawMessage) error {
	_, err := c.send(ctx, http.MethodPost, token, "/api/admin/site-config", doc, nil)
	return err
}
