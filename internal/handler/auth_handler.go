/*
Package handler provides HTTP handler functions for account signup, login and session checks.
*/
package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"hzpresence/internal/app/directory"
	"hzpresence/internal/app/user"
	"hzpresence/internal/pkg/auth/jwt"
	"hzpresence/internal/pkg/errs"
	"hzpresence/internal/pkg/logx"
	"hzpresence/internal/pkg/req"
	"hzpresence/internal/pkg/resp"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	minPasswordLen = 6
	maxPasswordLen = 50
	maxBioLen      = 500
)

type SignupInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validPassword(pw string) bool {
	n := utf8.RuneCountInString(pw)
	return n >= minPasswordLen && n <= maxPasswordLen
}

// issueToken signs an identity token for u.
func issueToken(deps *AppDeps, u *user.User) (string, error) {
	return jwt.GenerateToken(&jwt.Payload{ID: u.ID, Email: u.Email}, deps.Config.JWTSecret, jwt.UserIdentityExpiration)
}

// currentUser resolves the identity of the request to its profile.
func currentUser(deps *AppDeps, r *http.Request) (*user.User, *errs.CustomError) {
	identity := jwt.GetPayloadFromContext(r)
	if identity == nil {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}

	u, err := deps.Users.Get(identity.ID)
	if err != nil {
		logx.Warn("token refers to an unknown account", "user_id", identity.ID)
		return nil, errs.NewError(errs.ErrUnauthorized)
	}
	return u, nil
}

// signedIn reports whether the request carries a token of an account that still exists.
// Tokens of accounts lost in a restart are treated as anonymous.
func signedIn(deps *AppDeps, r *http.Request) bool {
	identity := jwt.GetPayloadFromContext(r)
	return identity != nil && deps.Users.Exists(identity.ID)
}

// HandleCheck returns the profile the request's identity token belongs to.
func HandleCheck(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, customErr := currentUser(deps, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, "Authenticated", map[string]any{"user": u})
	}
}

// HandleSignup creates an account and signs it in.
func HandleSignup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if signedIn(deps, r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input SignupInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !emailRegex.MatchString(strings.TrimSpace(input.Email)) || !validPassword(input.Password) ||
			utf8.RuneCountInString(input.Bio) > maxBioLen {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		u, err := deps.Users.Create(input.Email, input.Password, input.FullName, input.Bio)
		if err != nil {
			if errors.Is(err, directory.ErrEmailTaken) {
				logx.Warn("signup conflict: email already registered", "email", input.Email)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}

			logx.Error(err, "failed to create account")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		token, err := issueToken(deps, u)
		if err != nil {
			logx.Error(err, "failed to generate token after signup", "user_id", u.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		logx.Info("account created", "user_id", u.ID)
		resp.RespondSuccess(w, r, "Account created successfully", map[string]any{
			"token":    token,
			"userData": u,
		})
	}
}

// HandleLogin verifies credentials and issues an identity token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if signedIn(deps, r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input LoginInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		u, err := deps.Users.Authenticate(input.Email, input.Password)
		if err != nil {
			logx.Warn("login failed", "email", input.Email, "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		token, err := issueToken(deps, u)
		if err != nil {
			logx.Error(err, "login: jwt generation failed", "user_id", u.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, "Login successful", map[string]any{
			"token":    token,
			"userData": u,
		})
	}
}
