// Package gateway is the outbound side of the messaging-gateway
// collaborator: the engine only ever pushes "deliver this payload to this
// user" requests through it.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"stockvault-api/internal/model"
)

// Payload is one deliverable message: plain text, or an attachment
// reference with an optional caption.
type Payload struct {
	Text           string               `json:"text,omitempty"`
	AttachmentRef  string               `json:"attachment_ref,omitempty"`
	AttachmentKind model.AttachmentKind `json:"attachment_kind,omitempty"`
	Caption        string               `json:"caption,omitempty"`
}

// Empty reports whether the payload carries nothing deliverable.
func (p Payload) Empty() bool {
	return p.Text == "" && p.AttachmentRef == ""
}

// Messenger delivers payloads to chat users. Implementations must not be
// called while a ledger transaction is open.
type Messenger interface {
	Send(ctx context.Context, userID int64, payload Payload) error
}

// HTTPMessenger delivers payloads by POSTing them to the gateway service.
type HTTPMessenger struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPMessenger creates a messenger for the gateway at baseURL.
func NewHTTPMessenger(baseURL, apiKey string, timeout time.Duration) *HTTPMessenger {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPMessenger{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type sendRequest struct {
	UserID int64 `json:"user_id"`
	Payload
}

// Send delivers one payload to one user.
func (m *HTTPMessenger) Send(ctx context.Context, userID int64, payload Payload) error {
	body, err := json.Marshal(sendRequest{UserID: userID, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("X-API-Key", m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway rejected delivery to user %d: %s", userID, resp.Status)
	}
	return nil
}

// Ensure HTTPMessenger implements Messenger
var _ Messenger = (*HTTPMessenger)(nil)
