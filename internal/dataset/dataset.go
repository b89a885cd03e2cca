// Package dataset reads friend-tour events from headerless CSV and writes
// notification records back out as CSV with a header row.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/albapepper/tour-bundler/internal/notifications"
)

// ErrMalformedInput is returned for any input row that cannot be used. One
// bad row fails the whole read.
var ErrMalformedInput = errors.New("malformed input")

// OutputTimeLayout is how instants are written to the output file.
const OutputTimeLayout = "2006-01-02 15:04:05.999999"

// Header is the output column order.
var Header = []string{"receiver_id", "notification_sent", "timestamp_first_tour", "tours", "message"}

// Accepted timestamp layouts, tried in order. Layouts without a zone are
// read in the configured source location.
var inputLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

const numFields = 4

// --------------------------------------------------------------------------
// Input
// --------------------------------------------------------------------------

// ReadFile reads events from a CSV file.
func ReadFile(path string, loc *time.Location) ([]notifications.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return Read(f, loc)
}

// Read parses rows of timestamp,user_id,friend_id,friend_name.
func Read(r io.Reader, loc *time.Location) ([]notifications.Event, error) {
	if loc == nil {
		loc = time.UTC
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var events []notifications.Event
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedInput, pe.Line, pe.Err)
			}
			return nil, fmt.Errorf("read input: %w", err)
		}
		line, _ := cr.FieldPos(0)

		e, err := parseRow(row, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedInput, line, err)
		}
		events = append(events, e)
	}
}

func parseRow(row []string, loc *time.Location) (notifications.Event, error) {
	for i, name := range []string{"timestamp", "user_id", "friend_id", "friend_name"} {
		if strings.TrimSpace(row[i]) == "" {
			return notifications.Event{}, fmt.Errorf("empty %s", name)
		}
	}
	ts, err := ParseTimestamp(row[0], loc)
	if err != nil {
		return notifications.Event{}, err
	}
	return notifications.Event{
		Timestamp:  ts,
		UserID:     strings.TrimSpace(row[1]),
		FriendID:   strings.TrimSpace(row[2]),
		FriendName: row[3],
	}, nil
}

// ParseTimestamp accepts the layouts the event exports use. Instants that
// carry a zone offset are converted into loc so hours and dates are read
// in the source location.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

// WriteFile writes records to path. The file only appears once it has been
// written completely.
func WriteFile(path string, records []notifications.Record) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".bundler-*.csv")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = Write(tmp, records); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// Write emits the header and one row per record.
func Write(w io.Writer, records []notifications.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.ReceiverID,
			r.NotificationSent.Format(OutputTimeLayout),
			r.TimestampFirstTour.Format(OutputTimeLayout),
			strconv.Itoa(r.Tours),
			r.Message,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
