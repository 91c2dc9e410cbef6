/*
Package req provides helper functions for HTTP request parsing and data binding.

It encapsulates JSON body decoding with size and format checks, so handlers receive
either a populated value or a ready-to-send *errs.CustomError.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"hzpresence/internal/pkg/errs"
)

// MaxJSONBodySize caps the body BindJSON reads.
const MaxJSONBodySize int64 = 64 << 10 // 64 KB

// BindJSON attempts to bind the JSON data from the HTTP request body to the destination struct dst.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxJSONBodySize))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
