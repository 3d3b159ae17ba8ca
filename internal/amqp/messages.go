package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"moneytracker/internal/core"
	"moneytracker/internal/notify"
)

// TransactionChangedMessage announces a committed write. It carries only
// the ID; consumers re-read the store.
type TransactionChangedMessage struct {
	MessageID string          `json:"message_id"`
	ID        int64           `json:"id"`
	Kind      core.ChangeKind `json:"op"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewTransactionChangedMessage(id int64, kind core.ChangeKind) *TransactionChangedMessage {
	return &TransactionChangedMessage{
		MessageID: uuid.NewString(),
		ID:        id,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionChangedMessageFromJSON(data []byte) (*TransactionChangedMessage, error) {
	var msg TransactionChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// NotificationMessage carries a notification to the process that shows it.
type NotificationMessage struct {
	MessageID    string              `json:"message_id"`
	Notification notify.Notification `json:"notification"`
	Timestamp    time.Time           `json:"timestamp"`
}

func NewNotificationMessage(n notify.Notification) *NotificationMessage {
	return &NotificationMessage{
		MessageID:    uuid.NewString(),
		Notification: n,
		Timestamp:    time.Now(),
	}
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
