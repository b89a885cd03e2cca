package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Options configures a bundling run.
type Options struct {
	Policy     Policy
	Thresholds Thresholds // predict only
	Workers    int        // predict only; partitions processed concurrently
}

// Result tracks the outcome of a bundling run.
type Result struct {
	Policy   Policy
	Events   int
	Bundles  int
	Records  []Record
	Duration time.Duration
}

// Tours returns the number of events covered by the records.
func (r *Result) Tours() int {
	n := 0
	for _, rec := range r.Records {
		n += rec.Tours
	}
	return n
}

// Summary returns a human-readable summary.
func (r *Result) Summary() string {
	return fmt.Sprintf("policy=%s events=%d bundles=%d records=%d tours=%d dur=%s",
		r.Policy, r.Events, r.Bundles, len(r.Records), r.Tours(),
		r.Duration.Round(time.Millisecond))
}

// Run preprocesses events, assigns them to bundles under the selected policy
// and aggregates the bundles into notification records.
func Run(ctx context.Context, events []Event, opts Options, logger *slog.Logger) (*Result, error) {
	start := time.Now()
	policy, err := ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, err
	}
	result := &Result{Policy: policy, Events: len(events)}

	// 1. Date + gap per receiver/day
	processed := Preprocess(events)

	// 2. Bundle assignment
	var bundles []Bundle
	switch policy {
	case PolicyExact:
		bundles = BundleExact(processed)
	case PolicyPredict:
		if opts.Thresholds == (Thresholds{}) {
			opts.Thresholds = DefaultThresholds()
		}
		if err := opts.Thresholds.Validate(); err != nil {
			return nil, fmt.Errorf("thresholds: %w", err)
		}
		bundles, err = BundlePredict(ctx, processed, opts.Thresholds, opts.Workers)
		if err != nil {
			return nil, fmt.Errorf("bundle predict: %w", err)
		}
	}
	result.Bundles = len(bundles)
	logger.Info("Bundles assigned", "policy", policy, "events", len(events), "bundles", len(bundles))

	// 3. One record per bundle
	result.Records = Aggregate(bundles)
	result.Duration = time.Since(start)

	if got := result.Tours(); got != len(events) {
		return nil, fmt.Errorf("bundling lost events: %d in, %d out", len(events), got)
	}
	return result, nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// buildMessage composes the notification text. "other" stays singular for
// any count.
func buildMessage(firstFriend string, numFriends int) string {
	if numFriends == 1 {
		return fmt.Sprintf("%s went on a tour", firstFriend)
	}
	return fmt.Sprintf("%s and %d other went on a tour", firstFriend, numFriends-1)
}
