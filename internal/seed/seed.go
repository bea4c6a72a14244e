// Package seed loads initial datasets from the embedded defaults or from YAML/JSON files.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evanschultz/beacon/internal/app"
	"github.com/evanschultz/beacon/internal/domain"
)

//go:embed builtin.yaml
var builtinYAML []byte

// ErrUnsupportedFormat is returned for seed files that are neither YAML nor JSON.
var ErrUnsupportedFormat = errors.New("unsupported seed format")

// file is the on-disk seed layout.
type file struct {
	Initiatives []domain.Initiative `json:"initiatives" yaml:"initiatives"`
	Updates     []fileUpdate        `json:"updates" yaml:"updates"`
}

// fileUpdate carries either an absolute timestamp or an age relative to load time.
type fileUpdate struct {
	ID         int64             `json:"id" yaml:"id"`
	Initiative string            `json:"initiative" yaml:"initiative"`
	Message    string            `json:"message" yaml:"message"`
	Timestamp  *time.Time        `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Age        string            `json:"age,omitempty" yaml:"age,omitempty"`
	User       string            `json:"user" yaml:"user"`
	Type       domain.UpdateType `json:"type" yaml:"type"`
}

// Builtin returns the default dataset with update timestamps relative to now.
func Builtin(now time.Time) app.Seed {
	out, err := decode(builtinYAML, "yaml", now)
	if err != nil {
		panic(fmt.Sprintf("seed: decode builtin dataset: %v", err))
	}
	return out
}

// LoadFile reads a YAML or JSON seed file, chosen by extension.
func LoadFile(path string, now time.Time) (app.Seed, error) {
	path = strings.TrimSpace(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return app.Seed{}, fmt.Errorf("read seed file %q: %w", path, err)
	}
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	case ".json":
		format = "json"
	default:
		return app.Seed{}, fmt.Errorf("%q: %w", path, ErrUnsupportedFormat)
	}
	out, err := decode(data, format, now)
	if err != nil {
		return app.Seed{}, fmt.Errorf("decode seed file %q: %w", path, err)
	}
	return out, nil
}

// BuiltinSource serves the embedded dataset.
type BuiltinSource struct {
	Clock func() time.Time
}

// LoadSeed implements app.SeedSource.
func (b BuiltinSource) LoadSeed(ctx context.Context) (app.Seed, error) {
	if err := ctx.Err(); err != nil {
		return app.Seed{}, err
	}
	return Builtin(clockOrNow(b.Clock)), nil
}

// FileSource serves a dataset read from Path on every load.
type FileSource struct {
	Path  string
	Clock func() time.Time
}

// LoadSeed implements app.SeedSource.
func (f FileSource) LoadSeed(ctx context.Context) (app.Seed, error) {
	if err := ctx.Err(); err != nil {
		return app.Seed{}, err
	}
	return LoadFile(f.Path, clockOrNow(f.Clock))
}

// Encode renders a dataset in the seed file layout. Timestamps are written as absolute values.
func Encode(in app.Seed, format string) ([]byte, error) {
	out := file{Initiatives: in.Initiatives, Updates: make([]fileUpdate, 0, len(in.Updates))}
	for _, up := range in.Updates {
		ts := up.Timestamp.UTC()
		out.Updates = append(out.Updates, fileUpdate{
			ID:         up.ID,
			Initiative: up.Initiative,
			Message:    up.Message,
			Timestamp:  &ts,
			User:       up.User,
			Type:       up.Type,
		})
	}
	switch format {
	case "json":
		return json.MarshalIndent(out, "", "  ")
	case "yaml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
}

func decode(data []byte, format string, now time.Time) (app.Seed, error) {
	var raw file
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&raw); err != nil {
			return app.Seed{}, err
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil {
			return app.Seed{}, err
		}
	}
	out := app.Seed{
		Initiatives: raw.Initiatives,
		Updates:     make([]domain.Update, 0, len(raw.Updates)),
	}
	if out.Initiatives == nil {
		out.Initiatives = []domain.Initiative{}
	}
	for i := range out.Initiatives {
		if err := out.Initiatives[i].Validate(); err != nil {
			return app.Seed{}, fmt.Errorf("initiatives[%d]: %w", i, err)
		}
	}
	for i, up := range raw.Updates {
		ts, err := up.resolve(now)
		if err != nil {
			return app.Seed{}, fmt.Errorf("updates[%d]: %w", i, err)
		}
		if !domain.IsValidUpdateType(up.Type) {
			return app.Seed{}, fmt.Errorf("updates[%d]: %w", i, domain.ErrInvalidUpdateType)
		}
		out.Updates = append(out.Updates, domain.Update{
			ID:         up.ID,
			Initiative: up.Initiative,
			Message:    up.Message,
			Timestamp:  ts,
			User:       up.User,
			Type:       up.Type,
		})
	}
	return out, nil
}

func (u fileUpdate) resolve(now time.Time) (time.Time, error) {
	if u.Timestamp != nil {
		return u.Timestamp.UTC(), nil
	}
	if strings.TrimSpace(u.Age) == "" {
		return now.UTC(), nil
	}
	age, err := time.ParseDuration(strings.TrimSpace(u.Age))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse age %q: %w", u.Age, err)
	}
	return now.Add(-age).UTC(), nil
}

func clockOrNow(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now()
	}
	return clock()
}
