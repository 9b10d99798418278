package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/ferry-risk/internal/domain"
	"github.com/couchcryptid/ferry-risk/internal/observability"
)

// SubscriptionChecker manages route subscriptions and notifies subscribers
// once both ends of their route are clear.
type SubscriptionChecker struct {
	ports   domain.PortDirectory
	subs    domain.SubscriptionStore
	notices domain.NoticePublisher
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewSubscriptionChecker creates a SubscriptionChecker. notices may be nil,
// in which case subscriptions are accepted but never checked.
func NewSubscriptionChecker(ports domain.PortDirectory, subs domain.SubscriptionStore, notices domain.NoticePublisher, metrics *observability.Metrics, logger *slog.Logger) *SubscriptionChecker {
	return &SubscriptionChecker{
		ports:   ports,
		subs:    subs,
		notices: notices,
		metrics: metrics,
		logger:  logger,
	}
}

// Subscribe registers chatID for a one-off notice on the route between two
// existing ports.
func (c *SubscriptionChecker) Subscribe(ctx context.Context, chatID string, originID, destinationID int64) (domain.RouteSubscription, error) {
	sub, err := domain.NewRouteSubscription(chatID, originID, destinationID)
	if err != nil {
		return domain.RouteSubscription{}, err
	}
	for _, id := range []int64{originID, destinationID} {
		if _, err := c.ports.GetPort(ctx, id); err != nil {
			return domain.RouteSubscription{}, err
		}
	}
	sub, err = c.subs.CreateSubscription(ctx, sub)
	if err != nil {
		return domain.RouteSubscription{}, err
	}
	c.logger.Info("route subscription created",
		"subscription_id", sub.ID,
		"origin_port_id", originID,
		"destination_port_id", destinationID,
	)
	return sub, nil
}

// Subscriptions lists a chat's subscriptions.
func (c *SubscriptionChecker) Subscriptions(ctx context.Context, chatID string) ([]domain.RouteSubscription, error) {
	return c.subs.ListSubscriptions(ctx, chatID)
}

// CheckSubscriptions notifies every active subscription whose ports are both
// clear and returns how many were notified. A subscription is deactivated
// once notified, or when one of its ports no longer exists. A failed publish
// leaves it active for the next check.
func (c *SubscriptionChecker) CheckSubscriptions(ctx context.Context) (int, error) {
	if c.notices == nil {
		return 0, nil
	}
	subs, err := c.subs.ActiveSubscriptions(ctx)
	if err != nil {
		return 0, fmt.Errorf("active subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}
	reports, err := c.ports.ListReports(ctx)
	if err != nil {
		return 0, fmt.Errorf("list ports: %w", err)
	}

	notified := 0
	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		origin, okOrigin := findReport(reports, sub.OriginPortID)
		dest, okDest := findReport(reports, sub.DestinationPortID)
		if !okOrigin || !okDest {
			c.logger.Warn("route subscription references a missing port, deactivating", "subscription_id", sub.ID)
			c.metrics.RouteNotices.WithLabelValues("orphaned").Inc()
			c.deactivate(ctx, sub.ID)
			continue
		}
		if !domain.RouteCleared(origin, dest) {
			continue
		}

		if err := c.notices.PublishRouteCleared(ctx, domain.NewRouteClearedNotice(sub, origin, dest)); err != nil {
			c.logger.Warn("route notice failed, will retry", "subscription_id", sub.ID, "error", err)
			c.metrics.RouteNotices.WithLabelValues("error").Inc()
			continue
		}
		c.metrics.RouteNotices.WithLabelValues("notified").Inc()
		c.deactivate(ctx, sub.ID)
		notified++
	}
	c.logger.Info("route subscriptions checked", "notified", notified, "active", len(subs))
	return notified, nil
}

func (c *SubscriptionChecker) deactivate(ctx context.Context, id int64) {
	if err := c.subs.DeactivateSubscription(ctx, id); err != nil {
		c.logger.Error("deactivate route subscription failed", "subscription_id", id, "error", err)
	}
}
