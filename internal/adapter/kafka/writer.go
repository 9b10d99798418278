package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/ferry-risk/internal/config"
	"github.com/couchcryptid/ferry-risk/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces assessed observations to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	return &Writer{writer: newProducer(cfg.KafkaBrokers, cfg.KafkaSinkTopic), logger: logger}
}

// LoadBatch serializes and publishes assessed observations in a single
// WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, batch []domain.AssessedObservation) error {
	if len(batch) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(batch))
	for i := range batch {
		msg, err := serializeAssessment(batch[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// Event types carried in the event_type header of the alert topic.
const (
	eventRiskAlert    = "risk_alert"
	eventRouteCleared = "route_cleared"
)

// AlertWriter publishes RiskAlerts and RouteClearedNotices to the alert
// topic. It implements domain.AlertPublisher and domain.NoticePublisher.
type AlertWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAlertWriter creates a Kafka producer for the configured alert topic.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger) *AlertWriter {
	return &AlertWriter{writer: newProducer(cfg.KafkaBrokers, cfg.KafkaAlertTopic), logger: logger}
}

// PublishAlert writes one alert keyed by port id.
func (w *AlertWriter) PublishAlert(ctx context.Context, alert domain.RiskAlert) error {
	msg, err := serializeAlert(alert)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert for port %d: %w", alert.PortID, err)
	}
	w.logger.Debug("alert published", "port_id", alert.PortID)
	return nil
}

// PublishRouteCleared writes one notice keyed by chat id.
func (w *AlertWriter) PublishRouteCleared(ctx context.Context, notice domain.RouteClearedNotice) error {
	msg, err := serializeNotice(notice)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish route notice %d: %w", notice.SubscriptionID, err)
	}
	w.logger.Debug("route notice published", "subscription_id", notice.SubscriptionID)
	return nil
}

func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

func newProducer(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
}

// serializeAssessment keys by port id when present so a port's readings
// stay ordered on one partition.
func serializeAssessment(ao domain.AssessedObservation) (kafkago.Message, error) {
	data, err := json.Marshal(ao)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize assessed observation: %w", err)
	}
	var key []byte
	if ao.PortID != nil {
		key = []byte(strconv.FormatInt(*ao.PortID, 10))
	} else if ao.Lat != nil && ao.Lon != nil {
		key = []byte(domain.ForecastCacheKey(*ao.Lat, *ao.Lon))
	}
	return kafkago.Message{
		Key:   key,
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_status", Value: []byte(ao.Assessment.Status)},
			{Key: "source", Value: []byte(ao.Assessment.Source)},
			{Key: "recorded_at", Value: []byte(ao.Observation.RecordedAt.Format(time.RFC3339))},
		},
	}, nil
}

func serializeAlert(alert domain.RiskAlert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(alert.PortID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_status", Value: []byte(alert.Assessment.Status)},
			{Key: "raised_at", Value: []byte(alert.RaisedAt.Format(time.RFC3339))},
			{Key: "event_type", Value: []byte(eventRiskAlert)},
		},
	}, nil
}

// serializeNotice keys by chat so one subscriber's notices stay ordered.
func serializeNotice(notice domain.RouteClearedNotice) (kafkago.Message, error) {
	data, err := json.Marshal(notice)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize route notice: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(notice.ChatID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "raised_at", Value: []byte(notice.RaisedAt.Format(time.RFC3339))},
			{Key: "event_type", Value: []byte(eventRouteCleared)},
		},
	}, nil
}
