// Package notifications bundles friend-tour events into a handful of
// notifications per receiver per day.
//
// Pipeline: preprocess (date + gap) → assign bundles (exact or predict
// policy) → aggregate each bundle into a record → compose the message.
package notifications

import "time"

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// DateLayout is the calendar-day key used to partition a receiver's events.
const DateLayout = "2006-01-02"

// Fixed delivery slots for the exact policy, keyed by the last hour
// (inclusive) each slot collects.
var slotTable = []struct {
	lastHour    int
	deliverHour int
}{
	{8, 9},
	{10, 11},
	{15, 16},
	{20, 21},
}

// Late-evening events go out the next morning.
const nextDayDeliverHour = 9

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Event is one friend tour attributed to a receiving user.
type Event struct {
	Timestamp  time.Time
	UserID     string
	FriendID   string
	FriendName string
}

// ProcessedEvent is an Event with its calendar day and the gap to the
// previous event of the same receiver on the same day.
type ProcessedEvent struct {
	Event
	Date          string
	PrevTimestamp time.Time
	Gap           time.Duration // rounded to whole minutes
	GapMinutes    int           // truncated
}

// Bundle is a set of events delivered to one receiver as a single
// notification. Events are in chronological order.
type Bundle struct {
	UserID           string
	Date             string // empty under the exact policy
	Index            int    // bundle_index under the predict policy
	NotificationSent time.Time
	FirstTS          time.Time
	LastTS           time.Time
	MaxThreshold     int // minutes; zero under the exact policy
	DistinctFriends  int // distinct friend ids
	MaxAwait         time.Duration
	Events           []ProcessedEvent
}

// Record is the output notification, one per bundle.
type Record struct {
	ReceiverID         string        `json:"receiver_id"`
	NotificationSent   time.Time     `json:"notification_sent"`
	TimestampFirstTour time.Time     `json:"timestamp_first_tour"`
	Tours              int           `json:"tours"`
	Message            string        `json:"message"`
	MaxAwait           time.Duration `json:"-"`
}
