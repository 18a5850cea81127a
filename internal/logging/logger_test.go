package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/hearth-chat/hearth/internal/logging"
	"github.com/m-mizutani/gt"
)

func TestLogger(t *testing.T) {
	t.Run("secrets are redacted", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(&buf, slog.LevelInfo, logging.FormatJSON, false)
		logger.Info("hello",
			slog.String("secret_token", "xxx"),
			slog.String("channel", "general"),
		)

		gt.S(t, buf.String()).Contains("general")
		gt.S(t, buf.String()).NotContains("xxx")
	})

	t.Run("logger travels in context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(&buf, slog.LevelDebug, logging.FormatJSON, false)
		ctx := logging.With(context.Background(), logger)

		logging.From(ctx).Debug("reorder planned", "updates", 3)
		gt.S(t, buf.String()).Contains("reorder planned")
	})

	t.Run("missing logger falls back to default", func(t *testing.T) {
		gt.V(t, logging.From(context.Background())).NotNil()
	})
}
