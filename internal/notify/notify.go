// Package notify: kolaborator fire-and-forget. Notifikasi user lewat Kafka,
// audit trail best-effort ke Postgres — dua-duanya tidak pernah mem-propagate
// error ke operasi utama, cuma di-log.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/JAAFAR1996/fish-web-sub001/internal/kafka"
	"github.com/JAAFAR1996/fish-web-sub001/internal/orders"
)

type Dispatcher struct {
	Producer *kafkax.Producer
	Service  string
}

type userNotification struct {
	UserID  string          `json:"user_id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Notify: fire-and-forget. Payload yang gagal marshal di-log dan di-skip.
func (d *Dispatcher) Notify(userID, kind string, payload any) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Printf("notify %s/%s: marshal: %v", userID, kind, err)
			return
		}
		raw = b
	}
	ev := orders.Envelope{
		EventID:      uuid.NewString(),
		EventType:    orders.EventUserNotification,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     d.Service,
		Payload:      kafkax.MustMarshal(userNotification{UserID: userID, Kind: kind, Payload: raw}),
	}
	d.Producer.Publish([]byte(userID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventUserNotification)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

type Audit struct{ DB *pgxpool.Pool }

// Record: best-effort, non-blocking. Insert jalan di goroutine dengan
// timeout sendiri; operasi utama tidak nunggu.
func (a *Audit) Record(actorID, action, entityType, entityID string, diff any) {
	var diffJSON []byte
	if diff != nil {
		b, err := json.Marshal(diff)
		if err != nil {
			log.Printf("audit %s %s: marshal diff: %v", action, entityID, err)
		} else {
			diffJSON = b
		}
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := a.DB.Exec(ctx, `
			INSERT INTO audit_log (actor_id, action, entity_type, entity_id, diff)
			VALUES ($1, $2, $3, $4, $5)`,
			actorID, action, entityType, entityID, diffJSON); err != nil {
			log.Printf("audit %s %s/%s: %v", action, entityType, entityID, err)
		}
	}()
}
