package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SnapshotRequestMessage asks the worker to export a fresh snapshot. It
// carries no ledger data; the worker reads the store itself.
type SnapshotRequestMessage struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSnapshotRequestMessage(reason string) *SnapshotRequestMessage {
	return &SnapshotRequestMessage{
		ID:        uuid.NewString(),
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

func (m *SnapshotRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SnapshotRequestMessageFromJSON(data []byte) (*SnapshotRequestMessage, error) {
	var msg SnapshotRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		return nil, errors.New("snapshot request without a valid id")
	}
	return &msg, nil
}
