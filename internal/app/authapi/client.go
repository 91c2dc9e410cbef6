/*
Package authapi is the client of the external authentication API.

Every call carries the session credential taken from a credential.Context at request
construction time. Responses use the API's flat JSON shape:

	{"success": true, "message": "...", "token": "...", "userData": {...}, "user": {...}}

Failures are reported as *errs.CustomError: ErrTransport when the API could not be reached
or answered unintelligibly, ErrRequestRejected when it answered success=false.
*/
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hzpresence/internal/app/credential"
	"hzpresence/internal/app/user"
	"hzpresence/internal/pkg/errs"
	"hzpresence/internal/pkg/logx"
)

const (
	checkPath         = "/api/auth/check"
	authPathPrefix    = "/api/auth/"
	updateProfilePath = "/api/auth/update-profile"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20

	// DefaultTimeout bounds a single API call.
	DefaultTimeout = 10 * time.Second
)

// Mode selects the authentication endpoint.
type Mode string

const (
	ModeSignup Mode = "signup"
	ModeLogin  Mode = "login"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSignup, ModeLogin:
		return m, nil
	default:
		return "", errs.NewError(errs.ErrInvalidMode, s)
	}
}

// Credentials is the body of a signup or login request. Login uses Email and Password only.
type Credentials struct {
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio,omitempty"`
}

// LoginResult is the outcome of a login or signup call the server answered.
// Success=false carries the server's reason in Message.
type LoginResult struct {
	Success bool
	Message string
	User    *user.User
	Token   string
}

// response is the union of every body the API returns.
type response struct {
	Success  bool       `json:"success"`
	Message  string     `json:"message"`
	Code     int        `json:"code,omitempty"`
	Token    string     `json:"token,omitempty"`
	User     *user.User `json:"user,omitempty"`
	UserData *user.User `json:"userData,omitempty"`
}

func (r response) profile() *user.User {
	if r.UserData != nil {
		return r.UserData
	}
	return r.User
}

// Client calls the authentication API on behalf of one session.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	cred    *credential.Context
	logger  zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-call timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New returns a client for the API at baseURL that authorizes calls with cred.
func New(baseURL string, cred *credential.Context, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("authapi: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("authapi: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("authapi: base url has no host")
	}
	if cred == nil {
		return nil, errors.New("authapi: nil credential context")
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
		cred:    cred,
		logger:  logx.Component("authapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CheckSession verifies the current credential and returns the profile it belongs to.
func (c *Client) CheckSession(ctx context.Context) (*user.User, error) {
	res, err := c.do(ctx, http.MethodGet, checkPath, nil, true)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, errs.Rejected(res.Message, 0)
	}
	u := res.profile()
	if !u.Valid() {
		return nil, errs.NewError(errs.ErrTransport, "session check returned no user")
	}
	return u, nil
}

// Login calls the signup or login endpoint without the current credential, so a token
// left over from a failed restore cannot make the server refuse a fresh sign-in.
// A server-side rejection is not an error: it is reported through LoginResult.Success
// and LoginResult.Message.
func (c *Client) Login(ctx context.Context, mode Mode, creds Credentials) (*LoginResult, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	res, err := c.do(ctx, http.MethodPost, authPathPrefix+string(mode), creds, false)
	if err != nil {
		var customErr *errs.CustomError
		if errors.As(err, &customErr) && customErr.Code == errs.ErrRequestRejected {
			return &LoginResult{Success: false, Message: customErr.Message}, nil
		}
		return nil, err
	}

	if !res.Success {
		return &LoginResult{Success: false, Message: res.Message}, nil
	}

	u := res.profile()
	if res.Token == "" || !u.Valid() {
		return nil, errs.NewError(errs.ErrTransport, "login response is missing token or user")
	}

	return &LoginResult{Success: true, Message: res.Message, User: u, Token: res.Token}, nil
}

// UpdateProfile sends patch and returns the server's authoritative profile.
func (c *Client) UpdateProfile(ctx context.Context, patch user.Patch) (*user.User, error) {
	res, err := c.do(ctx, http.MethodPut, updateProfilePath, patch, true)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, errs.Rejected(res.Message, 0)
	}
	u := res.profile()
	if !u.Valid() {
		return nil, errs.NewError(errs.ErrTransport, "profile update returned no user")
	}
	return u, nil
}

// do performs one call. Rejections answered with a non-2xx status and a JSON body
// come back as ErrRequestRejected; everything unintelligible as ErrTransport.
// authenticated attaches the session credential.
func (c *Client) do(ctx context.Context, method, path string, body any, authenticated bool) (response, error) {
	var res response

	endpoint := c.baseURL.JoinPath(path)

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return res, errs.NewError(errs.ErrUnknown, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return res, errs.Wrap(errs.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		c.cred.Apply(req)
	}

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("Authentication API unreachable")
		return res, errs.Wrap(errs.ErrTransport, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return res, errs.Wrap(errs.ErrTransport, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", httpResp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Authentication API call completed")

	decodeErr := json.Unmarshal(raw, &res)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		if decodeErr == nil && !res.Success && res.Message != "" {
			return res, errs.Rejected(res.Message, httpResp.StatusCode)
		}
		return res, errs.NewError(errs.ErrTransport, fmt.Sprintf("request failed with status code %d", httpResp.StatusCode))
	}

	if decodeErr != nil {
		return res, errs.NewError(errs.ErrTransport, "unexpected response from server")
	}

	return res, nil
}
