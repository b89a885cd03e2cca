package notifications

import (
	"slices"
	"time"
)

// Slot returns the fixed delivery instant for an event at ts: 09:00, 11:00,
// 16:00 or 21:00 the same day, or 09:00 the next day for events after 20:59.
// The hour is read in ts's own location.
func Slot(ts time.Time) time.Time {
	h := ts.Hour()
	for _, s := range slotTable {
		if h <= s.lastHour {
			return time.Date(ts.Year(), ts.Month(), ts.Day(), s.deliverHour, 0, 0, 0, ts.Location())
		}
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day()+1, nextDayDeliverHour, 0, 0, 0, ts.Location())
}

// BundleExact groups events by (user_id, slot). Bundles come out in order of
// first appearance in events.
func BundleExact(events []ProcessedEvent) []Bundle {
	type key struct {
		user string
		sent int64
	}
	pos := make(map[key]int)
	var bundles []Bundle

	for _, e := range events {
		sent := Slot(e.Timestamp)
		k := key{e.UserID, sent.UnixNano()}
		n, ok := pos[k]
		if !ok {
			n = len(bundles)
			pos[k] = n
			bundles = append(bundles, Bundle{UserID: e.UserID, NotificationSent: sent})
		}
		bundles[n].Events = append(bundles[n].Events, e)
	}

	for i := range bundles {
		b := &bundles[i]
		slices.SortStableFunc(b.Events, func(x, y ProcessedEvent) int {
			return x.Timestamp.Compare(y.Timestamp)
		})
		b.FirstTS = b.Events[0].Timestamp
		b.LastTS = b.Events[len(b.Events)-1].Timestamp
		b.DistinctFriends = distinctFriendIDs(b.Events)
		b.MaxAwait = b.NotificationSent.Sub(b.FirstTS)
	}
	return bundles
}

func distinctFriendIDs(events []ProcessedEvent) int {
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		seen[e.FriendID] = struct{}{}
	}
	return len(seen)
}
