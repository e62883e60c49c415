package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStreamEvent(t *testing.T) {
	ev, err := DecodeStreamEvent([]byte(`{"type":"created","order":{"id":"o1","channel":"dine-in","status":"pending"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventCreated, ev.Type)
	require.NotNil(t, ev.Order)
	assert.Equal(t, "o1", ev.Order.ID)

	ev, err = DecodeStreamEvent([]byte(`{"type":"deleted","order_id":"o1"}`))
	require.NoError(t, err)
	assert.Equal(t, EventDeleted, ev.Type)
	assert.Equal(t, "o1", ev.OrderID)
}

func TestDecodeStreamEventMalformed(t *testing.T) {
	frames := []string{
		`not json at all`,
		`{"type":"exploded"}`,
		`{"type":"created"}`,
		`{"type":"updated","order":{"channel":"dine-in"}}`,
		`{"type":"deleted"}`,
	}
	for _, f := range frames {
		_, err := DecodeStreamEvent([]byte(f))
		require.Error(t, err, "frame %q", f)
		assert.Equal(t, KindMalformed, KindOf(err), "frame %q", f)
	}
}
