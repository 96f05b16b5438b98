package api

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"cryptodash/internal/domain"
)

// LatestPrice retrieves the current snapshot for a symbol, with all 24h
// aggregate fields populated.
func (c *Client) LatestPrice(ctx context.Context, symbol string) (domain.PricePoint, error) {
	var out domain.PricePoint
	err := c.doJSON(ctx, "GET", "/api/prices/"+url.PathEscape(symbol)+"/latest", nil, &out)
	return out, err
}

// RecentPrices retrieves up to limit recent observations for a symbol. The
// server returns them newest-first; callers needing chronological order must
// sort.
func (c *Client) RecentPrices(ctx context.Context, symbol string, limit int) ([]domain.PricePoint, error) {
	var out []domain.PricePoint
	path := "/api/prices/" + url.PathEscape(symbol) + "/recent?limit=" + strconv.Itoa(limit)
	err := c.doJSON(ctx, "GET", path, nil, &out)
	return out, err
}

// PriceHistory retrieves observations for a symbol within [start, end].
func (c *Client) PriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.PricePoint, error) {
	var out []domain.PricePoint
	q := url.Values{}
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	path := "/api/prices/" + url.PathEscape(symbol) + "/history?" + q.Encode()
	err := c.doJSON(ctx, "GET", path, nil, &out)
	return out, err
}

// Symbols lists every symbol the platform tracks.
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	var out []string
	err := c.doJSON(ctx, "GET", "/api/prices/symbols", nil, &out)
	return out, err
}

// Predictions retrieves the forecast series for a symbol, ordered by target
// date ascending.
func (c *Client) Predictions(ctx context.Context, symbol string) ([]domain.PredictionPoint, error) {
	var out []domain.PredictionPoint
	err := c.doJSON(ctx, "GET", "/api/predictions/"+url.PathEscape(symbol), nil, &out)
	return out, err
}

// LatestPrediction retrieves the most recently generated forecast point for
// a symbol.
func (c *Client) LatestPrediction(ctx context.Context, symbol string) (domain.PredictionPoint, error) {
	var out domain.PredictionPoint
	err := c.doJSON(ctx, "GET", "/api/predictions/"+url.PathEscape(symbol)+"/latest", nil, &out)
	return out, err
}
