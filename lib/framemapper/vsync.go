// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framemapper

import (
	"context"
	"fmt"
	"strconv"

	"fortio.org/safecast"
	"golang.org/x/sync/errgroup"

	"github.com/PixelExperience/development/lib/trace"
)

const (
	surfaceFlingerVsyncProperty = "vSyncId"
	transactionsVsyncProperty   = "vsyncId"
)

// propertyGetter is implemented by decoded records that expose named
// properties.
type propertyGetter interface {
	Property(name string) (any, bool)
}

// vsyncID is the correlation id of one entry. ok is false when the
// entry has no usable id.
type vsyncID struct {
	value int64
	ok    bool
}

// propagateVsyncJoin gives each transaction the union of the frames of
// every compositor entry sharing its vsync id.
func (m *Mapper) propagateVsyncJoin(ctx context.Context, surfaceFlinger, transactions *trace.Trace, builder *trace.FrameMapBuilder) error {
	sourceIDs, err := m.extractVsyncIDs(ctx, surfaceFlinger, surfaceFlingerVsyncProperty)
	if err != nil {
		return err
	}
	framesByID := make(map[int64]trace.FramesRange)
	for i, entry := range surfaceFlinger.All() {
		id := sourceIDs[i]
		if !id.ok {
			continue
		}
		frames, ok, err := entry.FramesRange()
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if existing, seen := framesByID[id.value]; seen {
			frames = existing.Union(frames)
		}
		framesByID[id.value] = frames
	}

	destinationIDs, err := m.extractVsyncIDs(ctx, transactions, transactionsVsyncProperty)
	if err != nil {
		return err
	}
	for i, entry := range transactions.All() {
		id := destinationIDs[i]
		if !id.ok {
			continue
		}
		if frames, found := framesByID[id.value]; found {
			builder.SetFrames(entry.Index(), frames)
		}
	}
	return nil
}

// extractVsyncIDs decodes every entry of full and reads property from
// it. Entries are decoded concurrently. Entries without a usable id are
// logged and reported as absent; only context errors fail.
func (m *Mapper) extractVsyncIDs(ctx context.Context, full *trace.Trace, property string) ([]vsyncID, error) {
	length := full.LengthEntries()
	ids := make([]vsyncID, length)
	failures := make([]error, length)

	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(max(1, min(m.jobs, length)))
	for i := range length {
		group.Go(func() error {
			if err := groupContext.Err(); err != nil {
				return err
			}
			value, err := full.Entry(i).Value(groupContext)
			if err != nil {
				if contextErr := groupContext.Err(); contextErr != nil {
					return contextErr
				}
				failures[i] = err
				return nil
			}
			id, err := readVsyncID(value, property)
			if err != nil {
				failures[i] = err
				return nil
			}
			ids[i] = vsyncID{value: id, ok: true}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	skipped := 0
	for i, failure := range failures {
		if failure == nil {
			continue
		}
		skipped++
		m.logger.Debug("entry has no usable vsync id",
			"type", full.Type().String(),
			"entry", i,
			"error", failure,
		)
	}
	if skipped > 0 {
		m.logger.Warn("entries without a usable vsync id skipped",
			"type", full.Type().String(),
			"property", property,
			"skipped", skipped,
			"entries", length,
		)
	}
	return ids, nil
}

// readVsyncID reads property from a decoded entry value. Integer
// values and decimal strings are accepted.
func readVsyncID(value any, property string) (int64, error) {
	var (
		raw   any
		found bool
	)
	switch record := value.(type) {
	case propertyGetter:
		raw, found = record.Property(property)
	case map[string]any:
		raw, found = record[property]
	default:
		return 0, fmt.Errorf("entry value %T has no properties", value)
	}
	if !found {
		return 0, fmt.Errorf("property %q missing", property)
	}

	switch id := raw.(type) {
	case int64:
		return id, nil
	case int32:
		return int64(id), nil
	case int:
		return int64(id), nil
	case uint32:
		return int64(id), nil
	case uint64:
		converted, err := safecast.Conv[int64](id)
		if err != nil {
			return 0, fmt.Errorf("property %q: %w", property, err)
		}
		return converted, nil
	case string:
		converted, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("property %q: %w", property, err)
		}
		return converted, nil
	default:
		return 0, fmt.Errorf("property %q has type %T", property, raw)
	}
}
