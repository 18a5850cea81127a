// Package reorder computes channel list changes for a drag and drop and
// persists them.
package reorder

import (
	"errors"
	"slices"
	"sort"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/m-mizutani/goerr/v2"
)

// ErrInvalidDrop is returned when a drop cannot be applied to the list
var ErrInvalidDrop = errors.New("invalid drop")

// Zone is where the dragged item lands relative to the target
type Zone int

const (
	Before Zone = iota
	After
	Inside
)

func (z Zone) String() string {
	switch z {
	case Before:
		return "before"
	case After:
		return "after"
	case Inside:
		return "inside"
	default:
		return "unknown"
	}
}

// ParseZone converts "before", "after" or "inside" to a Zone
func ParseZone(s string) (Zone, error) {
	switch s {
	case "before":
		return Before, nil
	case "after":
		return After, nil
	case "inside":
		return Inside, nil
	}
	return 0, goerr.Wrap(ErrInvalidDrop, "unknown drop zone", goerr.V("zone", s))
}

// Item is a channel-like entry in the sidebar
type Item struct {
	ID         uuid.UUID
	Position   int
	ParentID   uuid.UUID // uuid.Nil for top level
	IsCategory bool
}

// Drop describes a completed drag
type Drop struct {
	Source uuid.UUID
	Target uuid.UUID
	Zone   Zone
}

// Update is the change for one channel. Nil fields are unchanged; a
// ParentID of uuid.Nil moves the channel to the top level.
type Update struct {
	ChannelID uuid.UUID  `json:"id"`
	Position  *int       `json:"position,omitempty"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
}

// FromChannels converts channels into reorder items
func FromChannels(channels []*models.Channel) []Item {
	items := make([]Item, 0, len(channels))
	for _, ch := range channels {
		items = append(items, Item{
			ID:         ch.ID,
			Position:   ch.Position,
			ParentID:   ch.ParentID,
			IsCategory: ch.IsCategory(),
		})
	}
	return items
}

// Compute returns the updates that carry out drop. Every group touched by
// the move is renumbered 0..n-1 and only items whose position or parent
// actually change get an update.
func Compute(items []Item, drop Drop) ([]Update, error) {
	byID := make(map[uuid.UUID]Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	source, ok := byID[drop.Source]
	if !ok {
		return nil, goerr.Wrap(ErrInvalidDrop, "unknown source", goerr.V("source", drop.Source))
	}
	target, ok := byID[drop.Target]
	if !ok {
		return nil, goerr.Wrap(ErrInvalidDrop, "unknown target", goerr.V("target", drop.Target))
	}
	if source.ID == target.ID {
		return nil, goerr.Wrap(ErrInvalidDrop, "cannot drop an item on itself", goerr.V("id", source.ID))
	}

	var newParent uuid.UUID
	switch drop.Zone {
	case Inside:
		if !target.IsCategory {
			return nil, goerr.Wrap(ErrInvalidDrop, "target is not a category", goerr.V("target", target.ID))
		}
		newParent = target.ID
	case Before, After:
		if !target.IsCategory {
			newParent = target.ParentID
		}
	default:
		return nil, goerr.Wrap(ErrInvalidDrop, "unknown drop zone", goerr.V("zone", int(drop.Zone)))
	}
	if source.IsCategory && newParent != uuid.Nil {
		return nil, goerr.Wrap(ErrInvalidDrop, "categories cannot be nested",
			goerr.V("source", source.ID), goerr.V("parent", newParent))
	}

	group := siblings(items, newParent, source.ID)
	switch drop.Zone {
	case Inside:
		group = append(group, source)
	default:
		idx := slices.IndexFunc(group, func(it Item) bool { return it.ID == target.ID })
		if drop.Zone == After {
			idx++
		}
		group = slices.Insert(group, idx, source)
	}

	var updates []Update
	for i, it := range group {
		u := Update{ChannelID: it.ID}
		if it.Position != i {
			u.Position = ptr(i)
		}
		if it.ID == source.ID && source.ParentID != newParent {
			u.ParentID = ptr(newParent)
			u.Position = ptr(i)
		}
		if u.Position != nil || u.ParentID != nil {
			updates = append(updates, u)
		}
	}

	if source.ParentID != newParent {
		for i, it := range siblings(items, source.ParentID, source.ID) {
			if it.Position != i {
				updates = append(updates, Update{ChannelID: it.ID, Position: ptr(i)})
			}
		}
	}
	return updates, nil
}

// Apply returns a copy of items with updates applied
func Apply(items []Item, updates []Update) []Item {
	out := slices.Clone(items)
	index := make(map[uuid.UUID]int, len(out))
	for i, it := range out {
		index[it.ID] = i
	}
	for _, u := range updates {
		i, ok := index[u.ChannelID]
		if !ok {
			continue
		}
		if u.Position != nil {
			out[i].Position = *u.Position
		}
		if u.ParentID != nil {
			out[i].ParentID = *u.ParentID
		}
	}
	return out
}

// siblings returns the items under parent in display order, leaving out skip.
func siblings(items []Item, parent, skip uuid.UUID) []Item {
	var group []Item
	for _, it := range items {
		if it.ParentID == parent && it.ID != skip {
			group = append(group, it)
		}
	}
	sort.SliceStable(group, func(i, j int) bool { return group[i].Position < group[j].Position })
	return group
}

func ptr[T any](v T) *T { return &v }
