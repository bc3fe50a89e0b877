package changefeed

import (
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRoundTripUsesKeyFromValue(t *testing.T) {
	value, err := encodeEvent("cart-1", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	key, err := decodeEvent(kafka.Message{Key: []byte("ignored"), Value: value})
	require.NoError(t, err)
	assert.Equal(t, "cart-1", key)
}

func TestDecodeEventFallsBackToMessageKey(t *testing.T) {
	key, err := decodeEvent(kafka.Message{Key: []byte("cart-2")})
	require.NoError(t, err)
	assert.Equal(t, "cart-2", key)
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	_, err := decodeEvent(kafka.Message{Value: []byte("{not json")})
	assert.Error(t, err)

	_, err = decodeEvent(kafka.Message{})
	assert.Error(t, err)
}

func TestGroupIDIsStable(t *testing.T) {
	assert.Equal(t, "storefront-blue", GroupID("storefront-blue"))

	host, err := os.Hostname()
	require.NoError(t, err)
	assert.Equal(t, "storefront-"+host, GroupID(""))
	assert.Equal(t, GroupID(""), GroupID(""))
}
