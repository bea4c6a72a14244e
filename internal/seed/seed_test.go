package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/beacon/internal/domain"
)

var testNow = time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

// TestBuiltinDataset verifies the embedded dataset decodes with relative timestamps.
func TestBuiltinDataset(t *testing.T) {
	out := Builtin(testNow)
	if len(out.Initiatives) != 4 || len(out.Updates) != 4 {
		t.Fatalf("unexpected dataset sizes %d/%d", len(out.Initiatives), len(out.Updates))
	}
	ids := []int64{}
	for _, initiative := range out.Initiatives {
		ids = append(ids, initiative.ID)
		if initiative.Archived {
			t.Fatalf("expected builtin record %d unarchived", initiative.ID)
		}
	}
	if ids[0] != 1 || ids[1] != 2 || ids[2] != 4 || ids[3] != 5 {
		t.Fatalf("unexpected ids %v", ids)
	}
	first := out.Initiatives[0]
	if first.ProjectID != "HR-2024-001" || first.Progress != 75 || first.Status != domain.StatusOnTrack {
		t.Fatalf("unexpected first record %#v", first)
	}
	if len(first.KPIs) != 2 || first.Integrations[0].Requirements[1] != "Data Sync" || first.Timeline.TotalWeeks() != 16 {
		t.Fatalf("unexpected nested collections %#v", first)
	}
	if !out.Updates[0].Timestamp.Equal(testNow.Add(-2*time.Hour)) || !out.Updates[3].Timestamp.Equal(testNow.Add(-72*time.Hour)) {
		t.Fatalf("unexpected relative timestamps %s / %s", out.Updates[0].Timestamp, out.Updates[3].Timestamp)
	}
}

// TestLoadFileFormats verifies YAML and JSON seeds decode, and unknown formats fail.
func TestLoadFileFormats(t *testing.T) {
	dir := t.TempDir()
	dataset := Builtin(testNow)

	for _, format := range []string{"yaml", "json"} {
		t.Run(format, func(t *testing.T) {
			raw, err := Encode(dataset, format)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			path := filepath.Join(dir, "seed."+format)
			if err := os.WriteFile(path, raw, 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			got, err := FileSource{Path: path, Clock: func() time.Time { return testNow }}.LoadSeed(context.Background())
			if err != nil {
				t.Fatalf("LoadSeed() error = %v", err)
			}
			if len(got.Initiatives) != 4 || got.Initiatives[3].Title != "Remote Work Policy Enhancement" {
				t.Fatalf("unexpected initiatives %#v", got.Initiatives)
			}
			if !got.Updates[1].Timestamp.Equal(dataset.Updates[1].Timestamp) {
				t.Fatalf("expected absolute timestamps preserved, got %s", got.Updates[1].Timestamp)
			}
		})
	}

	txt := filepath.Join(dir, "seed.txt")
	if err := os.WriteFile(txt, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := LoadFile(txt, testNow); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.yaml"), testNow); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

// TestLoadFileRejectsInvalidContent verifies validation of decoded records.
func TestLoadFileRejectsInvalidContent(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown field": "initiatives:\n  - id: 1\n    title: x\n    status: on-track\n    color: red\n",
		"bad status":    "initiatives:\n  - id: 1\n    title: x\n    status: paused\n",
		"bad age":       "updates:\n  - id: 1\n    message: hi\n    type: comment\n    age: yesterday\n",
		"bad type":      "updates:\n  - id: 1\n    message: hi\n    type: rumor\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yaml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if _, err := LoadFile(path, testNow); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

// TestBuiltinSourceHonorsContext verifies cancellation is checked before loading.
func TestBuiltinSourceHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (BuiltinSource{}).LoadSeed(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
