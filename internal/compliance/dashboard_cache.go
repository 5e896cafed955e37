package compliance

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dashboardCacheKey = "compliance:dashboard:summary"
	dashboardCacheTTL = 30 * time.Second
)

// DashboardCache keeps the dashboard summary in Redis for a short window so
// dashboard polling does not rescan the violation table. A nil cache (Redis
// not configured) is a no-op and every call recomputes.
type DashboardCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewDashboardCache(client *redis.Client, logger *slog.Logger) *DashboardCache {
	if client == nil {
		return nil
	}
	return &DashboardCache{client: client, logger: logger}
}

// Get returns the cached summary when present and decodable. Any Redis or
// decode failure reads as a miss.
func (c *DashboardCache) Get(ctx context.Context) (*DashboardSummary, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, dashboardCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "dashboard cache read failed", "error", err)
		}
		return nil, false
	}
	var summary DashboardSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		c.logger.WarnContext(ctx, "dashboard cache decode failed", "error", err)
		return nil, false
	}
	return &summary, true
}

// Set stores the summary, best-effort.
func (c *DashboardCache) Set(ctx context.Context, summary *DashboardSummary) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, dashboardCacheKey, raw, dashboardCacheTTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "dashboard cache write failed", "error", err)
	}
}
