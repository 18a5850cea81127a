package errs

import (
	"context"
	"log/slog"

	"github.com/hearth-chat/hearth/internal/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Handle logs err with every goerr value attached to it. It never panics and
// is safe to call with a nil error.
func Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	attrs := []any{logging.ErrAttr(err)}
	for k, v := range goerr.Values(err) {
		attrs = append(attrs, slog.Any(k, v))
	}
	logging.From(ctx).Error(err.Error(), attrs...)
}
