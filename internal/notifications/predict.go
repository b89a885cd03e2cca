package notifications

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// FriendCounts returns the number of distinct friend ids per receiver over
// the whole dataset.
func FriendCounts(events []ProcessedEvent) map[string]int {
	seen := make(map[string]map[string]struct{})
	for _, e := range events {
		s, ok := seen[e.UserID]
		if !ok {
			s = make(map[string]struct{})
			seen[e.UserID] = s
		}
		s[e.FriendID] = struct{}{}
	}

	counts := make(map[string]int, len(seen))
	for user, s := range seen {
		counts[user] = len(s)
	}
	return counts
}

// BundlePredict segments each receiver's day into bundles. An event whose gap
// reaches its own threshold starts the next bundle; the bundle is delivered
// its largest threshold after its last event.
//
// Partitions are independent and run on up to workers goroutines. The
// friend counts are computed once, before any partition starts, and only
// read afterwards.
func BundlePredict(ctx context.Context, events []ProcessedEvent, th Thresholds, workers int) ([]Bundle, error) {
	counts := FriendCounts(events)
	parts := partitions(events)
	results := make([][]Bundle, len(parts))

	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range parts {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = segment(events, p, counts[p.UserID], th)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var bundles []Bundle
	for _, r := range results {
		bundles = append(bundles, r...)
	}
	return bundles, nil
}

// segment folds over one partition in time order, carrying the running count
// of threshold crossings as the bundle index.
func segment(events []ProcessedEvent, p partition, friendCount int, th Thresholds) []Bundle {
	var bundles []Bundle
	index := 0

	for _, i := range p.idx {
		e := events[i]
		threshold := th.For(e.Timestamp.Hour(), friendCount)
		if e.GapMinutes >= threshold {
			index++
		}

		if n := len(bundles); n == 0 || bundles[n-1].Index != index {
			bundles = append(bundles, Bundle{
				UserID:       p.UserID,
				Date:         p.Date,
				Index:        index,
				MaxThreshold: threshold,
			})
		}
		b := &bundles[len(bundles)-1]
		b.Events = append(b.Events, e)
		b.MaxThreshold = max(b.MaxThreshold, threshold)
	}

	for i := range bundles {
		b := &bundles[i]
		wait := time.Duration(b.MaxThreshold) * time.Minute
		b.FirstTS = b.Events[0].Timestamp
		b.LastTS = b.Events[len(b.Events)-1].Timestamp
		b.NotificationSent = b.LastTS.Add(wait)
		b.MaxAwait = b.LastTS.Sub(b.FirstTS) + wait
		b.DistinctFriends = distinctFriendIDs(b.Events)
	}
	return bundles
}
