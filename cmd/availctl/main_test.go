package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/hackgods/provider-availability/internal/schedule"
)

func writeSnapshot(t *testing.T) string {
	t.Helper()
	hours := schedule.WeeklyHours{
		time.Monday: {Start: schedule.ClockOf(9, 0), End: schedule.ClockOf(10, 0), Enabled: true},
	}
	snap := schedule.Snapshot{
		Providers: []schedule.Provider{{ID: "p1", Status: schedule.ProviderActive, WorkingHours: hours}},
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("encode snapshot: %v", err)
	}
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	cmd := newRootCmd(viper.New())
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return out, cmd.Execute()
}

func TestStatsCmd_Granularity(t *testing.T) {
	path := writeSnapshot(t)

	out, err := runCLI(t, "stats", "--snapshot", path, "--date", "2024-01-15", "--granularity", "15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var stats schedule.Statistics
	if err := json.Unmarshal(out.Bytes(), &stats); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if stats.Granularity != 15 {
		t.Errorf("expected granularity 15, got %d", stats.Granularity)
	}
	if stats.AvailableSlots != 4 {
		t.Errorf("expected 4 quarter-hour slots, got %d", stats.AvailableSlots)
	}
}

func TestStatsCmd_GranularityFromEnv(t *testing.T) {
	path := writeSnapshot(t)
	t.Setenv("AVAILCTL_GRANULARITY", "20")

	out, err := runCLI(t, "stats", "--snapshot", path, "--date", "2024-01-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var stats schedule.Statistics
	if err := json.Unmarshal(out.Bytes(), &stats); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if stats.Granularity != 20 || stats.AvailableSlots != 3 {
		t.Errorf("expected 3 slots at 20 minutes, got %d at %d", stats.AvailableSlots, stats.Granularity)
	}
}

func TestStatsCmd_InvalidGranularity(t *testing.T) {
	path := writeSnapshot(t)

	for _, g := range []string{"0", "-15", "1441"} {
		_, err := runCLI(t, "stats", "--snapshot", path, "--date", "2024-01-15", "--granularity="+g)
		if !errors.Is(err, schedule.ErrInvalidGranularity) {
			t.Errorf("granularity %s: expected ErrInvalidGranularity, got %v", g, err)
		}
	}
}
