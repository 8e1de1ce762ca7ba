package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicOrderEvents = "order_events"

	EventOrderCreated               = "OrderCreated"
	EventOrderStatusChanged         = "OrderStatusChanged"
	EventOrderCustomerInfoCompleted = "OrderCustomerInfoCompleted"
)

// EventEnvelope is the wire shape of every message on the bus.
type EventEnvelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

type OrderLine struct {
	ProductID int64           `json:"product_id"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderCreatedEvent struct {
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	Items       []OrderLine     `json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
}

type OrderStatusChangedEvent struct {
	OrderID        int64     `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Comment        string    `json:"comment,omitempty"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	CustomerName   string    `json:"customer_name"`
	CustomerEmail  string    `json:"customer_email,omitempty"`
	ChangedAt      time.Time `json:"changed_at"`
}

type OrderCustomerInfoCompletedEvent struct {
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Incomplete  bool      `json:"incomplete"`
	CompletedAt time.Time `json:"completed_at"`
}
