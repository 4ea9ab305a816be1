package service

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/doanquockiet/be-exe-cho-do-cu/internal/cache"
)

// invalidateCartCaches drops the cached carts of the acting user and of every
// user whose cart lost a line to cross-cart pruning. Runs after commit; a
// failed delete only means one stale read until the TTL fires.
func invalidateCartCaches(ctx context.Context, c cache.CartCache, userID primitive.ObjectID, affected []primitive.ObjectID) {
	seen := map[primitive.ObjectID]bool{userID: true}
	if err := c.Delete(ctx, userID); err != nil {
		slog.Warn("failed to invalidate cart cache", "user_id", userID.Hex(), "error", err)
	}
	for _, id := range affected {
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := c.Delete(ctx, id); err != nil {
			slog.Warn("failed to invalidate cart cache", "user_id", id.Hex(), "error", err)
		}
	}
}
