package notifications

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func scenarioEvents(t *testing.T) []Event {
	return []Event{
		ev(t, "2017-03-01 09:00:00", "1", "10", "Ava"),
		ev(t, "2017-03-01 09:05:00", "1", "10", "Ava"),
		ev(t, "2017-03-01 14:00:00", "1", "11", "Ben"),
	}
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		friends int
		want    string
	}{
		{"Ava", 1, "Ava went on a tour"},
		{"Ava", 2, "Ava and 1 other went on a tour"},
		{"Ava", 3, "Ava and 2 other went on a tour"},
	}
	for _, tt := range tests {
		if got := buildMessage(tt.name, tt.friends); got != tt.want {
			t.Errorf("buildMessage(%q, %d) = %q, want %q", tt.name, tt.friends, got, tt.want)
		}
	}
}

func TestRunPredictScenario(t *testing.T) {
	t.Parallel()
	res, err := Run(context.Background(), scenarioEvents(t), Options{Policy: PolicyPredict, Workers: 2}, discard)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []struct {
		sent    string
		tours   int
		message string
	}{
		{"2017-03-01 09:42:00", 2, "Ava went on a tour"},
		{"2017-03-01 14:37:00", 1, "Ben went on a tour"},
	}
	if len(res.Records) != len(want) {
		t.Fatalf("records = %d, want %d", len(res.Records), len(want))
	}
	for i, w := range want {
		r := res.Records[i]
		if r.ReceiverID != "1" || r.Tours != w.tours || r.Message != w.message {
			t.Errorf("record %d = %+v", i, r)
		}
		if !r.NotificationSent.Equal(mustTime(t, w.sent)) {
			t.Errorf("record %d sent at %s, want %s", i, r.NotificationSent, w.sent)
		}
	}
	if !res.Records[0].TimestampFirstTour.Equal(mustTime(t, "2017-03-01 09:00:00")) {
		t.Errorf("TimestampFirstTour = %s", res.Records[0].TimestampFirstTour)
	}
}

func TestRunExactScenario(t *testing.T) {
	t.Parallel()
	events := append(scenarioEvents(t),
		ev(t, "2017-03-01 10:10:00", "1", "12", "Cy"),
		ev(t, "2017-03-01 10:20:00", "1", "13", "Dee"),
	)
	res, err := Run(context.Background(), events, Options{Policy: PolicyExact}, discard)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}
	if got := res.Records[0]; got.Tours != 4 || got.Message != "Ava and 2 other went on a tour" {
		t.Errorf("first record = %+v", got)
	}
	if got := res.Records[1]; !got.NotificationSent.Equal(mustTime(t, "2017-03-01 16:00:00")) || got.Message != "Ben went on a tour" {
		t.Errorf("second record = %+v", got)
	}
}

func TestRunInvalidPolicy(t *testing.T) {
	t.Parallel()
	_, err := Run(context.Background(), scenarioEvents(t), Options{Policy: "hourly"}, discard)
	if !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("err = %v, want ErrInvalidPolicy", err)
	}
}

func TestRunEmptyInput(t *testing.T) {
	t.Parallel()
	for _, p := range []Policy{PolicyExact, PolicyPredict} {
		res, err := Run(context.Background(), nil, Options{Policy: p}, discard)
		if err != nil {
			t.Fatalf("%s: Run: %v", p, err)
		}
		if len(res.Records) != 0 {
			t.Fatalf("%s: records = %d, want 0", p, len(res.Records))
		}
	}
}

func TestRunCompleteAndRepeatable(t *testing.T) {
	t.Parallel()
	events := []Event{
		ev(t, "2017-03-02 23:10:00", "12", "1", "Ava"),
		ev(t, "2017-03-01 07:00:00", "3", "2", "Ben"),
		ev(t, "2017-03-01 07:30:00", "3", "3", "Cy"),
		ev(t, "2017-03-01 07:30:00", "3", "3", "Cy"),
		ev(t, "2017-03-01 19:00:00", "12", "1", "Ava"),
		ev(t, "2017-03-01 19:59:00", "12", "4", "Dee"),
		ev(t, "2017-03-02 05:00:00", "3", "2", "Ben"),
	}
	for _, p := range []Policy{PolicyExact, PolicyPredict} {
		first, err := Run(context.Background(), events, Options{Policy: p, Workers: 3}, discard)
		if err != nil {
			t.Fatalf("%s: Run: %v", p, err)
		}
		if first.Tours() != len(events) {
			t.Errorf("%s: tours = %d, want %d", p, first.Tours(), len(events))
		}
		second, err := Run(context.Background(), events, Options{Policy: p, Workers: 1}, discard)
		if err != nil {
			t.Fatalf("%s: Run: %v", p, err)
		}
		if !reflect.DeepEqual(first.Records, second.Records) {
			t.Errorf("%s: records differ between runs", p)
		}
		// Receivers sort numerically: 3 before 12.
		if first.Records[0].ReceiverID != "3" {
			t.Errorf("%s: first receiver = %s, want 3", p, first.Records[0].ReceiverID)
		}
	}
}

func TestCompareIDs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b string
		want int
	}{
		{"3", "12", -1},
		{"12", "3", 1},
		{"7", "7", 0},
		{"abc", "abd", -1},
		{"12", "abc", -1},
	}
	for _, tt := range tests {
		if got := compareIDs(tt.a, tt.b); got != tt.want {
			t.Errorf("compareIDs(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
