package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/albapepper/tour-bundler/internal/config"
	"github.com/albapepper/tour-bundler/internal/dataset"
	"github.com/albapepper/tour-bundler/internal/notifications"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

const scenarioCSV = "2017-03-01 09:00:00,1,10,Ava\n2017-03-01 09:05:00,1,10,Ava\n2017-03-01 14:00:00,1,11,Ben\n"

func writeInput(t *testing.T, body string) (dir, input string) {
	t.Helper()
	dir = t.TempDir()
	input = filepath.Join(dir, "events.csv")
	if err := os.WriteFile(input, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, input
}

func testConfig(policy string) *config.Config {
	return &config.Config{Policy: policy, Workers: 2, Timezone: "UTC", Location: time.UTC}
}

func TestRunBundlePredict(t *testing.T) {
	dir, input := writeInput(t, scenarioCSV)
	output := filepath.Join(dir, "out.csv")
	cfg := testConfig("predict")
	cfg.MetricsTextfile = filepath.Join(dir, "bundler.prom")

	res, err := runBundle(context.Background(), cfg, input, output, discard)
	if err != nil {
		t.Fatalf("runBundle: %v", err)
	}
	if res.Tours() != 3 {
		t.Errorf("tours = %d, want 3", res.Tours())
	}

	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	want := "receiver_id,notification_sent,timestamp_first_tour,tours,message\n" +
		"1,2017-03-01 09:42:00,2017-03-01 09:00:00,2,Ava went on a tour\n" +
		"1,2017-03-01 14:37:00,2017-03-01 14:00:00,1,Ben went on a tour\n"
	if string(got) != want {
		t.Fatalf("output =\n%s\nwant\n%s", got, want)
	}

	if _, err := os.Stat(cfg.MetricsTextfile); err != nil {
		t.Errorf("metrics textfile: %v", err)
	}
}

func TestRunBundleByteIdentical(t *testing.T) {
	var rows []string
	for i := 0; i < 60; i++ {
		ts := time.Date(2017, 3, 1+i%3, i%24, (i*13)%60, 0, 0, time.UTC)
		rows = append(rows, strings.Join([]string{
			ts.Format("2006-01-02 15:04:05"),
			[]string{"1", "2", "10"}[i%3],
			[]string{"a", "b", "c", "d", "e", "f"}[i%6],
			[]string{"Ava", "Ben", "Cy", "Dee", "Eve", "Fay"}[i%6],
		}, ","))
	}
	dir, input := writeInput(t, strings.Join(rows, "\n")+"\n")

	for _, policy := range []string{"exact", "predict"} {
		a := filepath.Join(dir, policy+"-a.csv")
		b := filepath.Join(dir, policy+"-b.csv")
		cfg := testConfig(policy)
		if _, err := runBundle(context.Background(), cfg, input, a, discard); err != nil {
			t.Fatalf("%s: %v", policy, err)
		}
		cfg.Workers = 7
		if _, err := runBundle(context.Background(), cfg, input, b, discard); err != nil {
			t.Fatalf("%s: %v", policy, err)
		}
		x, _ := os.ReadFile(a)
		y, _ := os.ReadFile(b)
		if !bytes.Equal(x, y) {
			t.Errorf("%s: outputs differ between runs", policy)
		}

		events, err := dataset.ReadFile(input, time.UTC)
		if err != nil {
			t.Fatal(err)
		}
		res, err := notifications.Run(context.Background(), events, notifications.Options{Policy: notifications.Policy(policy)}, discard)
		if err != nil {
			t.Fatal(err)
		}
		if res.Tours() != len(rows) {
			t.Errorf("%s: tours = %d, want %d", policy, res.Tours(), len(rows))
		}
	}
}

func TestRunBundleFailuresWriteNothing(t *testing.T) {
	tests := []struct {
		name    string
		policy  string
		body    string
		wantErr error
	}{
		{name: "malformed row", policy: "exact", body: scenarioCSV + "tomorrow,1,10,Ava\n", wantErr: dataset.ErrMalformedInput},
		{name: "unknown policy", policy: "hourly", body: scenarioCSV, wantErr: notifications.ErrInvalidPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, input := writeInput(t, tt.body)
			output := filepath.Join(dir, "out.csv")
			_, err := runBundle(context.Background(), testConfig(tt.policy), input, output, discard)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if _, err := os.Stat(output); !os.IsNotExist(err) {
				t.Fatalf("output exists after failed run (stat err %v)", err)
			}
		})
	}
}

func TestRunBundleEmptyInput(t *testing.T) {
	dir, input := writeInput(t, "")
	output := filepath.Join(dir, "out.csv")
	if _, err := runBundle(context.Background(), testConfig("predict"), input, output, discard); err != nil {
		t.Fatalf("runBundle: %v", err)
	}
	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != strings.Join(dataset.Header, ",")+"\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestThresholdsCommand(t *testing.T) {
	t.Setenv("BUNDLER_THRESHOLDS_FILE", "")
	cmd := thresholdsCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"5 < hour < 20", ">= 5 friends", "37", "98", "22", "49"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}
