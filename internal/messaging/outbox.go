package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BTreeMap/LineSchedule/internal/store"
)

// OutboxKindPicker marks outbox messages holding a PushRequest.
const OutboxKindPicker = "picker"

// PushRequest is the outbox payload of a picker push awaiting redelivery.
type PushRequest struct {
	To       string `json:"to"`
	Picker   Picker `json:"picker"`
	RetryKey string `json:"retry_key"`
}

// EncodePushRequest serializes r for the outbox.
func EncodePushRequest(r PushRequest) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode push request: %w", err)
	}
	return string(data), nil
}

// NewOutboxSendFunc returns the outbox callback that redelivers picker pushes
// through svc. The original retry key is reused so the platform can drop
// duplicates of a push that had in fact gone through.
func NewOutboxSendFunc(svc Service) store.OutboxSendFunc {
	return func(ctx context.Context, msg store.OutboxMessage) error {
		if msg.Kind != OutboxKindPicker {
			return fmt.Errorf("unsupported outbox kind %q", msg.Kind)
		}
		var r PushRequest
		if err := json.Unmarshal([]byte(msg.PayloadJSON), &r); err != nil {
			return fmt.Errorf("decode push request %s: %w", msg.ID, err)
		}
		retryKey := r.RetryKey
		if retryKey == "" {
			retryKey = msg.ID
		}
		return svc.PushPicker(ctx, r.To, r.Picker, retryKey)
	}
}
