/*
Package wire defines the presence channel's wire contract.

It is shared by the client-side presence channel and the development server so
that both ends agree on envelope shape, event names and close codes.
*/
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hzpresence/internal/pkg/randx"
)

// MessageType names a server-to-client event.
type MessageType string

const (
	// TypeOnlineUsers carries the complete roster of online user ids.
	TypeOnlineUsers MessageType = "getOnlineUsers"

	// TypeError carries an error the server wants the client to see.
	TypeError MessageType = "ERROR"
)

const (
	// UserIDParam is the query parameter presenting the connecting identity.
	UserIDParam = "userId"

	// CloseSessionKicked is the close code sent when a newer connection for the same user replaced this one.
	CloseSessionKicked = 4001

	// MaxMessageSize is the maximum size (in bytes) of a single frame in either direction.
	MaxMessageSize = 8192
)

// Envelope is the frame wrapper for every server-to-client event.
type Envelope struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// OnlineUsersPayload is the payload of TypeOnlineUsers.
type OnlineUsersPayload struct {
	UserIDs []string `json:"userIds"`
}

// ErrorPayload is the payload of TypeError.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewEnvelope marshals payload into a new envelope of the given type.
func NewEnvelope(t MessageType, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}

	return Envelope{
		ID:        randx.MessageID(),
		Type:      t,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Validate checks the fields every envelope must carry.
func (e Envelope) Validate() error {
	if e.Type == "" {
		return errors.New("missing type")
	}
	if len(e.Payload) == 0 {
		return errors.New("missing payload")
	}
	return nil
}

// DecodeOnlineUsers extracts the roster from a TypeOnlineUsers envelope.
// Both {"userIds":[...]} and a bare array payload are accepted.
// A null list decodes to an empty, non-nil roster.
func DecodeOnlineUsers(e Envelope) ([]string, error) {
	if e.Type != TypeOnlineUsers {
		return nil, fmt.Errorf("unexpected type %q", e.Type)
	}

	var p OnlineUsersPayload
	trimmed := bytes.TrimSpace(e.Payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &p.UserIDs); err != nil {
			return nil, fmt.Errorf("decode roster: %w", err)
		}
	} else if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	if p.UserIDs == nil {
		p.UserIDs = []string{}
	}
	return p.UserIDs, nil
}
