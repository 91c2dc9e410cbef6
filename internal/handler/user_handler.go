package handler

import (
	"net/http"
	"unicode/utf8"

	"hzpresence/internal/app/user"
	"hzpresence/internal/pkg/errs"
	"hzpresence/internal/pkg/logx"
	"hzpresence/internal/pkg/req"
	"hzpresence/internal/pkg/resp"
)

const maxFullNameLen = 50

// HandleUpdateProfile applies a partial profile update for the authenticated user.
func HandleUpdateProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, customErr := currentUser(deps, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var patch user.Patch
		if customErr := req.BindJSON(r, &patch); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if patch.Empty() ||
			(patch.FullName != nil && (*patch.FullName == "" || utf8.RuneCountInString(*patch.FullName) > maxFullNameLen)) ||
			(patch.Bio != nil && utf8.RuneCountInString(*patch.Bio) > maxBioLen) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		updated, err := deps.Users.Update(current.ID, patch)
		if err != nil {
			logx.Error(err, "update_profile: account vanished", "user_id", current.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		resp.RespondSuccess(w, r, "Profile updated successfully", map[string]any{"user": updated})
	}
}
