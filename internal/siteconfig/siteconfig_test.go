package siteconfig

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetcherFunc func(ctx context.Context) (json.RawMessage, error)

func (f fetcherFunc) SiteConfig(ctx context.Context) (json.RawMessage, error) { return f(ctx) }

func static(doc string) Fetcher {
	return fetcherFunc(func(context.Context) (json.RawMessage, error) {
		return json.RawMessage(doc), nil
	})
}

const sample = `{
	"customerService": {"title": "客服", "qq": {"number": "12345", "label": "QQ群"}},
	"banners": {"left": {"text": "新游上架"}},
	"purchaseGuide": {
		"platforms": [{"id": "taobao", "name": "淘宝"}],
		"steps": {"taobao": [{"title": "搜索店铺"}, {"title": "下单"}]}
	}
}`

func TestLoad_Object(t *testing.T) {
	cfg, err := Load(context.Background(), static(sample))
	require.NoError(t, err)
	assert.Equal(t, "客服", cfg.CustomerService.Title)
	assert.Equal(t, "12345", cfg.CustomerService.QQ.Number)
	assert.Equal(t, "新游上架", cfg.Banners.Left.Text)
	require.Len(t, cfg.PurchaseGuide.Platforms, 1)
	assert.Len(t, cfg.PurchaseGuide.Steps["taobao"], 2)
	assert.Equal(t, "© Tokomo", cfg.Footer.Copyright, "missing sections keep defaults")
}

func TestLoad_StringEncoded(t *testing.T) {
	encoded, err := json.Marshal(sample)
	require.NoError(t, err)

	cfg, err := Load(context.Background(), static(string(encoded)))
	require.NoError(t, err)
	assert.Equal(t, "客服", cfg.CustomerService.Title)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"null", "null"},
		{"empty string", `""`},
		{"garbage", `{"customerService": 5}`},
		{"string garbage", `"not json"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), static(tt.doc))
			assert.Error(t, err)
		})
	}

	boom := errors.New("boom")
	_, err := Load(context.Background(), fetcherFunc(func(context.Context) (json.RawMessage, error) {
		return nil, boom
	}))
	assert.ErrorIs(t, err, boom)
}

func TestProvider_Lifecycle(t *testing.T) {
	calls := 0
	fail := true
	p := NewProvider(fetcherFunc(func(context.Context) (json.RawMessage, error) {
		calls++
		if fail {
			return nil, errors.New("unavailable")
		}
		return json.RawMessage(sample), nil
	}))

	assert.False(t, p.Ready())
	assert.Equal(t, "联系客服", p.Get().CustomerService.Title, "default before init")
	assert.Equal(t, 0, calls, "nothing fetched implicitly")

	assert.Error(t, p.Init(context.Background()))
	assert.False(t, p.Ready())
	assert.Equal(t, "联系客服", p.Get().CustomerService.Title)

	fail = false
	require.NoError(t, p.Init(context.Background()))
	assert.True(t, p.Ready())
	assert.Equal(t, "客服", p.Get().CustomerService.Title)

	fail = true
	assert.Error(t, p.Init(context.Background()))
	assert.True(t, p.Ready())
	assert.Equal(t, "客服", p.Get().CustomerService.Title, "failed reload keeps the last value")
	assert.Equal(t, 3, calls)
}
