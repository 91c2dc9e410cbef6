package wire

import (
	"encoding/json"
	"testing"
)

func TestDecodeOnlineUsers(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    []string
		wantErr bool
	}{
		{name: "object", payload: `{"userIds":["a","b"]}`, want: []string{"a", "b"}},
		{name: "bare array", payload: `["c"]`, want: []string{"c"}},
		{name: "null list", payload: `{"userIds":null}`, want: []string{}},
		{name: "garbage", payload: `{"userIds":"nope"}`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeOnlineUsers(Envelope{Type: TypeOnlineUsers, Payload: json.RawMessage(tc.payload)})
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got == nil || len(got) != len(tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v want %v", got, tc.want)
				}
			}
		})
	}
}

func TestDecodeOnlineUsers_RejectsOtherTypes(t *testing.T) {
	if _, err := DecodeOnlineUsers(Envelope{Type: TypeError, Payload: json.RawMessage(`{}`)}); err == nil {
		t.Fatalf("expected error for non-roster envelope")
	}
}

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(TypeOnlineUsers, OnlineUsersPayload{UserIDs: []string{"x"}})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if err := env.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if env.ID == "" || env.Timestamp == 0 {
		t.Fatalf("expected id and timestamp, got %+v", env)
	}
	if err := (Envelope{Type: TypeOnlineUsers}).Validate(); err == nil {
		t.Fatalf("expected missing payload error")
	}
}
