package errs

import (
	"net/http"

	"github.com/m-mizutani/goerr/v2"
)

var (
	TagNotFound     = goerr.NewTag("not_found")
	TagValidation   = goerr.NewTag("validation")
	TagUnauthorized = goerr.NewTag("unauthorized")
	TagConflict     = goerr.NewTag("conflict")
)

// StatusCode maps a tagged error to an HTTP status. Untagged errors are 500.
func StatusCode(err error) int {
	switch {
	case goerr.HasTag(err, TagNotFound):
		return http.StatusNotFound
	case goerr.HasTag(err, TagValidation):
		return http.StatusBadRequest
	case goerr.HasTag(err, TagUnauthorized):
		return http.StatusUnauthorized
	case goerr.HasTag(err, TagConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
