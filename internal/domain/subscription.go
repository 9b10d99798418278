package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidSubscription is returned for a subscription without a chat or
// with the same port at both ends.
var ErrInvalidSubscription = errors.New("invalid subscription")

// RouteSubscription asks to be told once, when both ends of a route are
// clear to sail. It is deactivated after the notice goes out or when either
// port disappears.
type RouteSubscription struct {
	ID                int64     `json:"id"`
	ChatID            string    `json:"chat_id"`
	OriginPortID      int64     `json:"origin_port_id"`
	DestinationPortID int64     `json:"destination_port_id"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewRouteSubscription validates and builds an active subscription stamped
// with the package clock.
func NewRouteSubscription(chatID string, originID, destinationID int64) (RouteSubscription, error) {
	chatID = strings.TrimSpace(chatID)
	switch {
	case chatID == "":
		return RouteSubscription{}, fmt.Errorf("%w: chat_id is required", ErrInvalidSubscription)
	case originID == destinationID:
		return RouteSubscription{}, fmt.Errorf("%w: origin and destination are the same port", ErrInvalidSubscription)
	}
	return RouteSubscription{
		ChatID:            chatID,
		OriginPortID:      originID,
		DestinationPortID: destinationID,
		Active:            true,
		CreatedAt:         clock.Now().UTC(),
	}, nil
}

// PortStatus is a port's name and latest status as carried on a notice.
type PortStatus struct {
	PortID int64      `json:"port_id"`
	Name   string     `json:"name"`
	Status RiskStatus `json:"status"`
}

// RouteClearedNotice tells a subscriber both ends of their route are clear.
type RouteClearedNotice struct {
	SubscriptionID int64      `json:"subscription_id"`
	ChatID         string     `json:"chat_id"`
	Origin         PortStatus `json:"origin"`
	Destination    PortStatus `json:"destination"`
	Message        string     `json:"message"`
	RaisedAt       time.Time  `json:"raised_at"`
}

// NewRouteClearedNotice builds the notice for sub from both ports' reports.
func NewRouteClearedNotice(sub RouteSubscription, origin, destination PortReport) RouteClearedNotice {
	return RouteClearedNotice{
		SubscriptionID: sub.ID,
		ChatID:         sub.ChatID,
		Origin:         PortStatus{PortID: origin.Port.ID, Name: origin.Port.Name, Status: origin.Status()},
		Destination:    PortStatus{PortID: destination.Port.ID, Name: destination.Port.Name, Status: destination.Status()},
		Message:        fmt.Sprintf("Good news! Safe to travel from %s to %s", origin.Port.Name, destination.Port.Name),
		RaisedAt:       clock.Now().UTC(),
	}
}
