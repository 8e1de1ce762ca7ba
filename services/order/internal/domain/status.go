package domain

import (
	"fmt"
	"strings"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
)

type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var AllStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

func ParseStatus(raw string) (OrderStatus, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", generalDomain.Invalid("status", "status is required")
	}

	status := OrderStatus(value)
	if !status.Valid() {
		return "", generalDomain.Invalid("status", fmt.Sprintf("unknown status %q", raw))
	}

	return status, nil
}

// TransitionPolicy maps a current status to the statuses it may move to.
// A status absent from the map cannot be left.
type TransitionPolicy map[OrderStatus][]OrderStatus

const (
	PolicyPermissive = "permissive"
	PolicyStrict     = "strict"
)

// PermissivePolicy lets an administrator move any order to any status,
// reversals included.
func PermissivePolicy() TransitionPolicy {
	policy := make(TransitionPolicy, len(AllStatuses))
	for _, from := range AllStatuses {
		policy[from] = append([]OrderStatus(nil), AllStatuses...)
	}
	return policy
}

// StrictPolicy treats delivered and cancelled as terminal. Re-applying the
// current status stays allowed everywhere.
func StrictPolicy() TransitionPolicy {
	return TransitionPolicy{
		OrderStatusNew:       {OrderStatusNew, OrderStatusConfirmed, OrderStatusPreparing, OrderStatusCancelled},
		OrderStatusConfirmed: {OrderStatusConfirmed, OrderStatusPreparing, OrderStatusShipped, OrderStatusCancelled},
		OrderStatusPreparing: {OrderStatusPreparing, OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:   {OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
		OrderStatusDelivered: {OrderStatusDelivered},
		OrderStatusCancelled: {OrderStatusCancelled},
	}
}

func PolicyByName(name string) (TransitionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyPermissive:
		return PermissivePolicy(), nil
	case PolicyStrict:
		return StrictPolicy(), nil
	default:
		return nil, fmt.Errorf("unknown transition policy %q", name)
	}
}

func (p TransitionPolicy) Allows(from, to OrderStatus) bool {
	for _, next := range p[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (p TransitionPolicy) Check(from, to OrderStatus) error {
	if p.Allows(from, to) {
		return nil
	}
	return generalDomain.Invalid("status", fmt.Sprintf("transition from %s to %s is not allowed", from, to))
}

// HistoryMode decides which status updates leave an audit entry.
type HistoryMode string

const (
	// HistoryAlways records every status update; the comment is optional.
	HistoryAlways HistoryMode = "always"
	// HistoryCommentOnly records an entry only when a comment was given.
	HistoryCommentOnly HistoryMode = "comment_only"
)

func ParseHistoryMode(raw string) (HistoryMode, error) {
	switch HistoryMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", HistoryAlways:
		return HistoryAlways, nil
	case HistoryCommentOnly:
		return HistoryCommentOnly, nil
	default:
		return "", fmt.Errorf("unknown history mode %q", raw)
	}
}

func (m HistoryMode) ShouldRecord(comment string) bool {
	if m == HistoryCommentOnly {
		return strings.TrimSpace(comment) != ""
	}
	return true
}
