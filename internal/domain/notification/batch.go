package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// NotifyMany fans the same event out to every recipient in userIDs.
// Recipients are processed in groups of the dispatcher's batch size; a group
// runs concurrently and must finish before the next one starts. Duplicate ids
// are dispatched once.
func (d *Dispatcher) NotifyMany(ctx context.Context, userIDs []string, t NotificationType, payload Payload, opts Options) (map[string]DispatchResult, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { d.recorder.DispatchDuration("batch", time.Since(start)) }()

	ids := uniqueIDs(userIDs)
	results := make(map[string]DispatchResult, len(ids))
	var mu sync.Mutex

	for _, group := range chunk(ids, d.batchSize) {
		var g errgroup.Group
		for _, id := range group {
			g.Go(func() error {
				res, err := d.Notify(ctx, id, t, payload, opts)
				if err != nil {
					return err
				}
				mu.Lock()
				results[id] = res
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return results, err
		}
	}

	slog.Info("batch notification dispatched",
		"type", t,
		"recipients", len(ids),
		"duration", time.Since(start),
	)

	return results, nil
}

// chunk splits ids into consecutive groups of at most size elements.
func chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	groups := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		groups = append(groups, ids[start:end])
	}
	return groups
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
