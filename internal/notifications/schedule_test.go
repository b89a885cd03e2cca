package notifications

import "testing"

func TestSlot(t *testing.T) {
	t.Parallel()
	tests := []struct {
		ts   string
		want string
	}{
		{"2017-03-01 00:00:00", "2017-03-01 09:00:00"},
		{"2017-03-01 07:15:00", "2017-03-01 09:00:00"},
		{"2017-03-01 08:59:59", "2017-03-01 09:00:00"},
		{"2017-03-01 09:00:00", "2017-03-01 11:00:00"},
		{"2017-03-01 10:00:00", "2017-03-01 11:00:00"},
		{"2017-03-01 10:59:59", "2017-03-01 11:00:00"},
		{"2017-03-01 11:00:00", "2017-03-01 16:00:00"},
		{"2017-03-01 15:59:00", "2017-03-01 16:00:00"},
		{"2017-03-01 16:00:00", "2017-03-01 21:00:00"},
		{"2017-03-01 20:59:59", "2017-03-01 21:00:00"},
		{"2017-03-01 21:00:00", "2017-03-02 09:00:00"},
		{"2017-03-01 22:00:00", "2017-03-02 09:00:00"},
		{"2017-03-31 23:59:59", "2017-04-01 09:00:00"},
		{"2016-12-31 23:00:00", "2017-01-01 09:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.ts, func(t *testing.T) {
			got := Slot(mustTime(t, tt.ts))
			if !got.Equal(mustTime(t, tt.want)) {
				t.Fatalf("Slot(%s) = %s, want %s", tt.ts, got.Format(tsLayout), tt.want)
			}
		})
	}
}

func TestBundleExactGroupsBySlot(t *testing.T) {
	t.Parallel()
	events := Preprocess([]Event{
		ev(t, "2017-03-01 10:30:00", "1", "11", "Ben"),
		ev(t, "2017-03-01 09:00:00", "1", "10", "Ava"),
		ev(t, "2017-03-01 09:00:00", "2", "10", "Ava"),
		ev(t, "2017-03-01 14:00:00", "1", "11", "Ben"),
		ev(t, "2017-03-01 23:30:00", "1", "12", "Cy"),
		ev(t, "2017-03-02 08:00:00", "1", "10", "Ava"),
	})

	bundles := BundleExact(events)
	if len(bundles) != 4 {
		t.Fatalf("bundles = %d, want 4", len(bundles))
	}

	b := bundles[0]
	if b.UserID != "1" || !b.NotificationSent.Equal(mustTime(t, "2017-03-01 11:00:00")) {
		t.Fatalf("unexpected first bundle %s/%s", b.UserID, b.NotificationSent)
	}
	if len(b.Events) != 2 || b.Events[0].FriendName != "Ava" {
		t.Fatalf("first bundle events not chronological: %+v", b.Events)
	}
	if b.DistinctFriends != 2 {
		t.Errorf("DistinctFriends = %d, want 2", b.DistinctFriends)
	}
	if got := b.MaxAwait; got.Hours() != 2 {
		t.Errorf("MaxAwait = %v, want 2h", got)
	}

	// Late evening and next morning share the 09:00 slot.
	last := bundles[3]
	if len(last.Events) != 2 || !last.NotificationSent.Equal(mustTime(t, "2017-03-02 09:00:00")) {
		t.Fatalf("late bundle = %d events at %s", len(last.Events), last.NotificationSent)
	}
}
