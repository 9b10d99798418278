package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/couchcryptid/ferry-risk/internal/domain"
)

const subscriptionColumns = `id, chat_id, origin_port_id, destination_port_id, is_active, created_at`

// CreateSubscription stores sub and returns it with its assigned id. Both
// ports must exist.
func (s *Store) CreateSubscription(ctx context.Context, sub domain.RouteSubscription) (domain.RouteSubscription, error) {
	created := sub.CreatedAt.UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO route_subscriptions (
			chat_id, origin_port_id, destination_port_id, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		sub.ChatID, sub.OriginPortID, sub.DestinationPortID, sub.Active, created, created,
	)
	if err != nil {
		return domain.RouteSubscription{}, fmt.Errorf("insert subscription for chat %s: %w", sub.ChatID, err)
	}
	sub.ID, err = res.LastInsertId()
	if err != nil {
		return domain.RouteSubscription{}, fmt.Errorf("subscription id: %w", err)
	}
	return sub, nil
}

// ListSubscriptions returns every subscription for a chat, active or not,
// oldest first.
func (s *Store) ListSubscriptions(ctx context.Context, chatID string) ([]domain.RouteSubscription, error) {
	return s.querySubscriptions(ctx,
		`SELECT `+subscriptionColumns+` FROM route_subscriptions WHERE chat_id = ? ORDER BY id`, chatID)
}

// ActiveSubscriptions returns all subscriptions still awaiting a notice.
func (s *Store) ActiveSubscriptions(ctx context.Context) ([]domain.RouteSubscription, error) {
	return s.querySubscriptions(ctx,
		`SELECT `+subscriptionColumns+` FROM route_subscriptions WHERE is_active = 1 ORDER BY id`)
}

// DeactivateSubscription marks a subscription done. Deactivating an
// inactive or unknown subscription is a no-op.
func (s *Store) DeactivateSubscription(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE route_subscriptions SET is_active = 0, updated_at = ? WHERE id = ?`,
		domain.Now().UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("deactivate subscription %d: %w", id, err)
	}
	return nil
}

func (s *Store) querySubscriptions(ctx context.Context, query string, args ...any) ([]domain.RouteSubscription, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []domain.RouteSubscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	return subs, nil
}

func scanSubscription(rows *sql.Rows) (domain.RouteSubscription, error) {
	var (
		sub     domain.RouteSubscription
		created string
	)
	if err := rows.Scan(&sub.ID, &sub.ChatID, &sub.OriginPortID, &sub.DestinationPortID, &sub.Active, &created); err != nil {
		return domain.RouteSubscription{}, fmt.Errorf("scan subscription: %w", err)
	}
	ts, err := time.Parse(timeLayout, created)
	if err != nil {
		return domain.RouteSubscription{}, fmt.Errorf("subscription %d: parse created_at: %w", sub.ID, err)
	}
	sub.CreatedAt = ts
	return sub, nil
}
