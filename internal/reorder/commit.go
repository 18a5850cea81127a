package reorder

import (
	"context"
	"errors"

	"github.com/hearth-chat/hearth/internal/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Patcher persists a single channel update
type Patcher interface {
	PatchChannel(ctx context.Context, update Update) error
}

// BatchPatcher persists all updates of one drop atomically: either every
// update is stored or none is.
type BatchPatcher interface {
	PatchChannels(ctx context.Context, updates []Update) error
}

// Commit persists updates. When p also implements BatchPatcher the updates
// go out in one atomic call and an error means nothing was stored, so the
// caller should roll back its optimistic state. Otherwise each update is
// sent on its own; failures are logged and joined, and updates that
// succeeded are not undone.
func Commit(ctx context.Context, p Patcher, updates []Update) error {
	if len(updates) == 0 {
		return nil
	}

	if bp, ok := p.(BatchPatcher); ok {
		if err := bp.PatchChannels(ctx, updates); err != nil {
			return goerr.Wrap(err, "failed to apply channel reorder", goerr.V("updates", len(updates)))
		}
		return nil
	}

	logger := logging.From(ctx)
	var errs []error
	for _, u := range updates {
		if err := p.PatchChannel(ctx, u); err != nil {
			err = goerr.Wrap(err, "failed to patch channel", goerr.V("channel_id", u.ChannelID))
			logger.Error("channel reorder step failed", logging.ErrAttr(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
