package notifications

import (
	"encoding/json"
	"fmt"
)

// Feed event types.
const (
	EventConfessionCreated     = "confession_created"
	EventConfessionDeleted     = "confession_deleted"
	EventConfessionVoteUpdated = "confession_vote_updated"
	EventMessagesDropped       = "messages_dropped"
)

// Event is the envelope written to feed sockets.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Encode marshals an event envelope.
func Encode(eventType string, payload interface{}) (string, error) {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return string(data), nil
}

var dropNotice = []byte(`{"type":"` + EventMessagesDropped + `","payload":{"reason":"buffer_full"}}`)
