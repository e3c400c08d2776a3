package polyclob

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// marketParamsCache memoizes per-token market parameters. Entries never
// expire: a market's tick size and risk model are fixed while registered.
// Concurrent misses for the same token converge on one in-flight fetch;
// failures are not cached, so a later call can retry.
type marketParamsCache struct {
	api    *APIClient
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]MarketParams
	flight  singleflight.Group
}

func newMarketParamsCache(api *APIClient, logger *zap.Logger) *marketParamsCache {
	return &marketParamsCache{
		api:     api,
		logger:  logger,
		entries: make(map[string]MarketParams),
	}
}

func (c *marketParamsCache) getOrFetch(ctx context.Context, tokenID string) (MarketParams, error) {
	c.mu.RLock()
	params, ok := c.entries[tokenID]
	c.mu.RUnlock()
	if ok {
		return params, nil
	}

	// The fetch runs on a context detached from this caller so that one
	// waiter abandoning its await does not fail the others.
	ch := c.flight.DoChan(tokenID, func() (interface{}, error) {
		params, err := c.fetch(context.WithoutCancel(ctx), tokenID)
		if err != nil {
			return MarketParams{}, err
		}
		c.mu.Lock()
		c.entries[tokenID] = params
		c.mu.Unlock()
		c.logger.Debug("cached market parameters",
			zap.String("token_id", tokenID),
			zap.String("tick_size", params.TickSize.String()),
			zap.Bool("neg_risk", params.NegRisk))
		return params, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return MarketParams{}, res.Err
		}
		return res.Val.(MarketParams), nil
	case <-ctx.Done():
		return MarketParams{}, ctx.Err()
	}
}

func (c *marketParamsCache) fetch(ctx context.Context, tokenID string) (MarketParams, error) {
	var tick tickSizeResponse
	path := fmt.Sprintf("/tick-size?token_id=%s", tokenID)
	if err := c.api.doJSON(ctx, http.MethodGet, path, nil, nil, &tick); err != nil {
		return MarketParams{}, err
	}
	if tick.MinimumTickSize.Sign() <= 0 {
		return MarketParams{}, fmt.Errorf("unknown token %s: no tick size reported", tokenID)
	}

	var negRisk negRiskResponse
	path = fmt.Sprintf("/neg-risk?token_id=%s", tokenID)
	if err := c.api.doJSON(ctx, http.MethodGet, path, nil, nil, &negRisk); err != nil {
		return MarketParams{}, err
	}

	return MarketParams{
		TickSize: tick.MinimumTickSize,
		NegRisk:  negRisk.NegRisk,
	}, nil
}
