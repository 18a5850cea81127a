package reorder_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/reorder"
	"github.com/m-mizutani/gt"
)

type singlePatcher struct {
	calls []uuid.UUID
	fail  map[uuid.UUID]bool
}

func (p *singlePatcher) PatchChannel(_ context.Context, u reorder.Update) error {
	p.calls = append(p.calls, u.ChannelID)
	if p.fail[u.ChannelID] {
		return errors.New("server said no")
	}
	return nil
}

type batchPatcher struct {
	singlePatcher
	batches [][]reorder.Update
	err     error
}

func (p *batchPatcher) PatchChannels(_ context.Context, updates []reorder.Update) error {
	p.batches = append(p.batches, updates)
	return p.err
}

func updatesFor(t *testing.T) []reorder.Update {
	t.Helper()
	updates, err := reorder.Compute(sidebar(), reorder.Drop{Source: ch2, Target: ch4, Zone: reorder.After})
	gt.NoError(t, err).Required()
	gt.A(t, updates).Length(3)
	return updates
}

func TestCommit_Batch(t *testing.T) {
	updates := updatesFor(t)
	p := &batchPatcher{}

	gt.NoError(t, reorder.Commit(context.Background(), p, updates))
	gt.A(t, p.batches).Length(1)
	gt.A(t, p.batches[0]).Length(3)
	gt.A(t, p.calls).Length(0)
}

func TestCommit_BatchFailure(t *testing.T) {
	p := &batchPatcher{err: errors.New("conflict")}

	err := reorder.Commit(context.Background(), p, updatesFor(t))
	gt.Error(t, err)
	gt.S(t, err.Error()).Contains("conflict")
	gt.A(t, p.calls).Length(0)
}

func TestCommit_Sequential(t *testing.T) {
	updates := updatesFor(t)
	p := &singlePatcher{fail: map[uuid.UUID]bool{ch5: true}}

	err := reorder.Commit(context.Background(), p, updates)
	gt.Error(t, err)
	gt.S(t, err.Error()).Contains("server said no")
	// Every update is attempted even after a failure.
	gt.A(t, p.calls).Length(3)
}

func TestCommit_Empty(t *testing.T) {
	p := &singlePatcher{}
	gt.NoError(t, reorder.Commit(context.Background(), p, nil))
	gt.A(t, p.calls).Length(0)
}
