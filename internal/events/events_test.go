package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEnvelope(t *testing.T) {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	ev := Event{
		Type:       TypeReturnProcessed,
		Key:        "11",
		OccurredAt: at,
		Payload: ReturnProcessed{
			OrderID:     11,
			BatchID:     "b1",
			Status:      "RETURNED",
			Units:       20,
			TotalAmount: decimal.RequireFromString("2000.00"),
			ReturnedAt:  at,
		},
	}

	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "return.processed", decoded["type"])
	assert.NotContains(t, decoded, "Key")
	payload := decoded["payload"].(map[string]any)
	assert.Equal(t, "2000", payload["total_amount"])
	assert.Equal(t, float64(11), payload["order_id"])
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: TypeOrderCreated}))
	assert.NoError(t, p.Close())
}
