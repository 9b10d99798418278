package domain

import (
	"context"
	"time"
)

// Predictor calls the external predictive risk service.
type Predictor interface {
	// Predict returns the service's raw verdict for an observation.
	Predict(ctx context.Context, obs Observation) (Prediction, error)
}

// Forecaster fetches current conditions for an arbitrary coordinate.
type Forecaster interface {
	Forecast(ctx context.Context, lat, lon float64) (Observation, error)
}

// Cache is a string-keyed byte store with per-entry expiry. A miss is
// reported as (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// PortDirectory is the read side of the port store.
type PortDirectory interface {
	GetPort(ctx context.Context, id int64) (Port, error)
	ListReports(ctx context.Context) ([]PortReport, error)
}

// ObservationRecorder persists assessed observations against a port.
type ObservationRecorder interface {
	RecordObservation(ctx context.Context, portID int64, obs Observation, a RiskAssessment, origin string) error
}

// AlertPublisher delivers High Risk alerts to subscribers.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert RiskAlert) error
}

// SubscriptionStore persists route subscriptions.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, sub RouteSubscription) (RouteSubscription, error)
	ListSubscriptions(ctx context.Context, chatID string) ([]RouteSubscription, error)
	ActiveSubscriptions(ctx context.Context) ([]RouteSubscription, error)
	DeactivateSubscription(ctx context.Context, id int64) error
}

// NoticePublisher delivers route-cleared notices to subscribers.
type NoticePublisher interface {
	PublishRouteCleared(ctx context.Context, notice RouteClearedNotice) error
}
