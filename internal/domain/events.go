package domain

import (
	"encoding/json"
	"fmt"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// StreamEvent is one frame of the kitchen push stream. created/updated carry
// the full order record; deleted carries only the order id.
type StreamEvent struct {
	Type    EventType `json:"type"`
	Order   *Order    `json:"order,omitempty"`
	OrderID string    `json:"order_id,omitempty"`
}

// DecodeStreamEvent parses one newline-delimited frame. Any shape problem is
// reported as a malformed-kind error so the stream client can drop the frame
// without tearing the connection down.
func DecodeStreamEvent(data []byte) (StreamEvent, error) {
	const op = "stream.decode"
	var ev StreamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return StreamEvent{}, Wrap(KindMalformed, op, err)
	}
	switch ev.Type {
	case EventCreated, EventUpdated:
		if ev.Order == nil || ev.Order.ID == "" {
			return StreamEvent{}, E(KindMalformed, op, fmt.Sprintf("%s event without order payload", ev.Type))
		}
	case EventDeleted:
		if ev.OrderID == "" {
			return StreamEvent{}, E(KindMalformed, op, "deleted event without order_id")
		}
	default:
		return StreamEvent{}, E(KindMalformed, op, fmt.Sprintf("unknown event type %q", ev.Type))
	}
	return ev, nil
}
