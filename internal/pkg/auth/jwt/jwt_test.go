package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "u1", Email: "a@x.io"}, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	payload, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if payload.ID != "u1" || payload.Email != "a@x.io" || payload.Issuer != TokenIssuer {
		t.Fatalf("unexpected payload %+v", payload)
	}

	if _, err := ParseToken(token, "other-secret"); err == nil {
		t.Fatalf("expected signature mismatch to fail")
	}
}

func TestParseToken_Expired(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "u1"}, testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ParseToken(token, testSecret); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestIdentityExtractorMiddleware(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "u1"}, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var got *Payload
	h := IdentityExtractorMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetPayloadFromContext(r)
	}))

	cases := []struct {
		name   string
		header string
		value  string
		wantID string
	}{
		{"token header", "token", token, "u1"},
		{"bearer header", "Authorization", "Bearer " + token, "u1"},
		{"garbage", "token", "not-a-jwt", ""},
		{"anonymous", "", "", ""},
	}

	for _, tc := range cases {
		got = nil
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set(tc.header, tc.value)
		}
		h.ServeHTTP(httptest.NewRecorder(), r)

		gotID := ""
		if got != nil {
			gotID = got.ID
		}
		if gotID != tc.wantID {
			t.Errorf("%s: got identity %q, want %q", tc.name, gotID, tc.wantID)
		}
	}
}
