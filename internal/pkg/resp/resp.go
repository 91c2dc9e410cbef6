/*
Package resp provides helper functions for constructing and sending standardized HTTP JSON responses.

The development server answers in the flat shape the authentication API client expects:

	{"success": true, "code": 0, "message": "...", "token": "...", "userData": {...}}

Fields beyond success, code and message are merged into the top-level object.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"hzpresence/internal/pkg/errs"
	"hzpresence/internal/pkg/logx"
)

// JSONResponse is the envelope every response carries.
type JSONResponse struct {
	// Success reports whether the request was fulfilled.
	Success bool `json:"success"`

	// Code is the business status code (0 for success, see errs package otherwise).
	Code int `json:"code"`

	// Message is the client-friendly status description or error message.
	Message string `json:"message"`
}

// RespondJSON is a generic response function used to set the Content-Type and send the JSON payload.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
			"path", r.URL.Path,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	w.Write(response)
}

// RespondSuccess sends an HTTP 200 response with success=true and fields merged in.
func RespondSuccess(w http.ResponseWriter, r *http.Request, message string, fields map[string]any) {
	body := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	body["code"] = 0
	body["message"] = message

	RespondJSON(w, r, http.StatusOK, body)
}

// RespondError sends an HTTP response containing custom error information.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	res := JSONResponse{
		Success: false,
		Code:    customErr.Code,
		Message: customErr.Message,
	}
	RespondJSON(w, r, customErr.Status, res)
}
