package errs_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/hearth-chat/hearth/internal/errs"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestStatusCode(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", goerr.New("channel not found", goerr.T(errs.TagNotFound)), http.StatusNotFound},
		{"validation", goerr.New("bad position", goerr.T(errs.TagValidation)), http.StatusBadRequest},
		{"unauthorized", goerr.New("no token", goerr.T(errs.TagUnauthorized)), http.StatusUnauthorized},
		{"wrapped keeps tag", goerr.Wrap(goerr.New("dup", goerr.T(errs.TagConflict)), "failed to apply"), http.StatusConflict},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.V(t, errs.StatusCode(tc.err)).Equal(tc.want)
		})
	}
}
