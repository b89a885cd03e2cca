package notifications

import (
	"slices"
	"time"
)

// partition is one receiver's events on one calendar day, as indexes into
// the processed slice, in chronological order.
type partition struct {
	UserID string
	Date   string
	idx    []int
}

// Preprocess derives the calendar date and the gap to the previous event of
// the same receiver on the same day. The result keeps the input order.
func Preprocess(events []Event) []ProcessedEvent {
	out := make([]ProcessedEvent, len(events))
	for i, e := range events {
		out[i] = ProcessedEvent{
			Event: e,
			Date:  e.Timestamp.Format(DateLayout),
		}
	}

	for _, p := range partitions(out) {
		prev := out[p.idx[0]].Timestamp
		for _, i := range p.idx {
			d := out[i].Timestamp.Sub(prev)
			out[i].PrevTimestamp = prev
			out[i].Gap = d.Round(time.Minute)
			out[i].GapMinutes = int(d / time.Minute)
			prev = out[i].Timestamp
		}
	}
	return out
}

// partitions groups events by (user_id, date) in order of first appearance.
// Each partition is stably sorted by timestamp, so ties keep input order.
func partitions(events []ProcessedEvent) []partition {
	type key struct{ user, date string }
	pos := make(map[key]int)
	var parts []partition

	for i, e := range events {
		k := key{e.UserID, e.Date}
		n, ok := pos[k]
		if !ok {
			n = len(parts)
			pos[k] = n
			parts = append(parts, partition{UserID: e.UserID, Date: e.Date})
		}
		parts[n].idx = append(parts[n].idx, i)
	}

	for _, p := range parts {
		slices.SortStableFunc(p.idx, func(a, b int) int {
			return events[a].Timestamp.Compare(events[b].Timestamp)
		})
	}
	return parts
}
