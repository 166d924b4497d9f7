package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderConfirmed   = "OrderConfirmed"
	EventPointsAwarded    = "PointsAwarded"
	EventReferralReward   = "ReferralRewarded"
	EventUserNotification = "UserNotification"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

type ItemPrice struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	UnitPrice int64  `json:"unit_price"`
}

type OrderConfirmedPayload struct {
	OrderID        string      `json:"order_id"`
	ExternalID     string      `json:"external_id"`
	UserID         string      `json:"user_id"`
	Items          []ItemPrice `json:"items"`
	Subtotal       int64       `json:"subtotal"`
	Shipping       int64       `json:"shipping"`
	Discount       int64       `json:"discount"`
	Total          int64       `json:"total"`
	PointsRedeemed int64       `json:"points_redeemed,omitempty"`
}

type PointsAwardedPayload struct {
	UserID  string `json:"user_id"`
	OrderID string `json:"order_id"`
	Points  int64  `json:"points"`
}

type ReferralRewardedPayload struct {
	ReferrerID string `json:"referrer_id"`
	RefereeID  string `json:"referee_id"`
	OrderID    string `json:"order_id"`
}
