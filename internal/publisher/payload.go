package publisher

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

type pushMessage struct {
	Data       string            `json:"data"`
	MessageID  string            `json:"messageId"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type pushEnvelope struct {
	Message      pushMessage `json:"message"`
	Subscription string      `json:"subscription"`
}

// Wrap base64-encodes payload into a push envelope with a fresh message id.
func Wrap(payload []byte) (Delivery, error) {
	if !json.Valid(payload) {
		return Delivery{}, ErrInvalidPayload
	}
	id := uuid.NewString()
	body, err := json.Marshal(pushEnvelope{
		Message: pushMessage{
			Data:       base64.StdEncoding.EncodeToString(payload),
			MessageID:  id,
			Attributes: map[string]string{"origin": "publisher"},
		},
		Subscription: "projects/local/subscriptions/matchpred-push",
	})
	if err != nil {
		return Delivery{}, fmt.Errorf("marshal envelope: %w", err)
	}
	return Delivery{ID: id, Body: body}, nil
}

// LoadFile reads a payload file holding one JSON object or an array of them.
func LoadFile(path string) ([][]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", path, ErrInvalidPayload, err)
		}
		out := make([][]byte, 0, len(items))
		for _, item := range items {
			out = append(out, item)
		}
		return out, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidPayload)
	}
	return [][]byte{raw}, nil
}
