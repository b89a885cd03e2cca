package notifications

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// Aggregate turns each bundle into one notification record. Records are
// sorted by receiver, delivery time and first tour.
func Aggregate(bundles []Bundle) []Record {
	records := make([]Record, 0, len(bundles))
	for _, b := range bundles {
		if len(b.Events) == 0 {
			continue
		}
		first := b.Events[0]
		for _, e := range b.Events[1:] {
			if e.Timestamp.Before(first.Timestamp) {
				first = e
			}
		}

		records = append(records, Record{
			ReceiverID:         b.UserID,
			NotificationSent:   b.NotificationSent,
			TimestampFirstTour: first.Timestamp,
			Tours:              len(b.Events),
			Message:            buildMessage(first.FriendName, distinctFriendNames(b.Events)),
			MaxAwait:           b.MaxAwait,
		})
	}

	slices.SortStableFunc(records, func(a, b Record) int {
		if c := compareIDs(a.ReceiverID, b.ReceiverID); c != 0 {
			return c
		}
		if c := a.NotificationSent.Compare(b.NotificationSent); c != 0 {
			return c
		}
		return a.TimestampFirstTour.Compare(b.TimestampFirstTour)
	})
	return records
}

func distinctFriendNames(events []ProcessedEvent) int {
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		seen[e.FriendName] = struct{}{}
	}
	return len(seen)
}

// compareIDs orders receiver ids numerically when both are integers.
func compareIDs(a, b string) int {
	x, errA := strconv.ParseInt(a, 10, 64)
	y, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return cmp.Compare(x, y)
	}
	return strings.Compare(a, b)
}
