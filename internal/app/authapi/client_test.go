package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hzpresence/internal/app/credential"
	"hzpresence/internal/app/user"
	"hzpresence/internal/pkg/errs"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *credential.Context) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cred := credential.New()
	c, err := New(srv.URL, cred)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, cred
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func codeOf(t *testing.T, err error) int {
	t.Helper()
	var customErr *errs.CustomError
	if !errors.As(err, &customErr) {
		t.Fatalf("expected *errs.CustomError, got %T: %v", err, err)
	}
	return customErr.Code
}

func TestLogin_SuccessSendsCredentialsToModeEndpoint(t *testing.T) {
	var gotPath string
	var gotBody Credentials
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"message":  "Login successful",
			"token":    "T",
			"userData": map[string]any{"_id": "u1", "fullName": "Ada"},
		})
	})

	res, err := c.Login(context.Background(), ModeLogin, Credentials{Email: "a@x.io", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if gotPath != "/api/auth/login" || gotBody.Email != "a@x.io" {
		t.Fatalf("unexpected request path=%q body=%+v", gotPath, gotBody)
	}
	if !res.Success || res.Token != "T" || res.User.ID != "u1" || res.Message != "Login successful" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestLogin_DoesNotSendStaleCredential(t *testing.T) {
	var gotHeader string
	var sawHeader bool
	c, cred := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(credential.HeaderName)
		_, sawHeader = r.Header[http.CanonicalHeaderKey(credential.HeaderName)]
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"token":    "fresh",
			"userData": map[string]any{"_id": "u1", "fullName": "Ada"},
		})
	})
	cred.Set("stale")

	if _, err := c.Login(context.Background(), ModeLogin, Credentials{Email: "a@x.io", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sawHeader || gotHeader != "" {
		t.Fatalf("login must not carry the previous credential, got %q", gotHeader)
	}
}

func TestLogin_RejectionIsAResultNotAnError(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusUnauthorized} {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, status, map[string]any{"success": false, "message": "bad credentials"})
		})

		res, err := c.Login(context.Background(), ModeSignup, Credentials{Email: "a@x.io"})
		if err != nil {
			t.Fatalf("status %d: unexpected error %v", status, err)
		}
		if res.Success || res.Message != "bad credentials" {
			t.Fatalf("status %d: unexpected result %+v", status, res)
		}
	}
}

func TestLogin_InvalidMode(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no request expected")
	})

	_, err := c.Login(context.Background(), Mode("reset"), Credentials{})
	if codeOf(t, err) != errs.ErrInvalidMode {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

func TestLogin_IncompleteSuccessIsTransportError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	_, err := c.Login(context.Background(), ModeLogin, Credentials{})
	if codeOf(t, err) != errs.ErrTransport {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestCheckSession_SendsCredentialHeader(t *testing.T) {
	var gotToken string
	c, cred := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(credential.HeaderName)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": map[string]any{"_id": "u1"}})
	})
	cred.Set("T1")

	u, err := c.CheckSession(context.Background())
	if err != nil {
		t.Fatalf("CheckSession: %v", err)
	}
	if gotToken != "T1" || u.ID != "u1" {
		t.Fatalf("unexpected token=%q user=%+v", gotToken, u)
	}
}

func TestCheckSession_Rejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "jwt expired"})
	})

	_, err := c.CheckSession(context.Background())
	if codeOf(t, err) != errs.ErrRequestRejected {
		t.Fatalf("expected ErrRequestRejected, got %v", err)
	}
}

func TestCall_TransportFailures(t *testing.T) {
	t.Run("non-json body", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>oops</html>"))
		})
		_, err := c.CheckSession(context.Background())
		if codeOf(t, err) != errs.ErrTransport {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
	})

	t.Run("server error without message", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := c.CheckSession(context.Background())
		if codeOf(t, err) != errs.ErrTransport {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c, err := New(url, credential.New())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		_, err = c.Login(context.Background(), ModeLogin, Credentials{})
		if codeOf(t, err) != errs.ErrTransport {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
	})
}

func TestUpdateProfile(t *testing.T) {
	var gotMethod string
	var gotPatch map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotPatch)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"user":    map[string]any{"_id": "u1", "bio": gotPatch["bio"]},
		})
	})

	bio := "hello"
	u, err := c.UpdateProfile(context.Background(), user.Patch{Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if gotMethod != http.MethodPut || u.Bio != "hello" {
		t.Fatalf("unexpected method=%s user=%+v", gotMethod, u)
	}
	if _, ok := gotPatch["fullName"]; ok {
		t.Fatalf("unset patch fields must be omitted, got %v", gotPatch)
	}
}

func TestNew_ValidatesBaseURL(t *testing.T) {
	for _, raw := range []string{"ftp://x", "http://", "::"} {
		if _, err := New(raw, credential.New()); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
	if _, err := New("http://localhost:8080", nil); err == nil {
		t.Fatalf("expected error for nil credential context")
	}
}
