// Package testutil provides the shared sqlite-backed environment the
// package tests run against.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/parikart/storefront/internal/models"
)

// NewDB opens an in-memory sqlite database with the full schema. The pool is
// pinned to a single connection so every session sees the same in-memory DB.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// AccessToken mints the HS256 cookie token the handlers expect.
func AccessToken(t *testing.T, secret []byte, userID uint) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": float64(userID),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

type RecordedEvent struct {
	Topic string
	Key   string
	Event any
}

// EventRecorder satisfies mykafka.Publisher and captures everything
// published during a test.
type EventRecorder struct {
	mu     sync.Mutex
	events []RecordedEvent
}

func (r *EventRecorder) PublishEvent(_ context.Context, topic, key string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (r *EventRecorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *EventRecorder) CountTopic(topic string) int {
	n := 0
	for _, e := range r.Events() {
		if e.Topic == topic {
			n++
		}
	}
	return n
}
