package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"SPEAKER_TRACK/go-backend/internal/tracker"
)

// ErrInvalidOptions is the tracker's sentinel so callers of this package can
// match option errors without importing the tracker.
var ErrInvalidOptions = tracker.ErrInvalidOptions

// LoadTrackerOptions reads a YAML options file over the defaults. An empty
// path returns the defaults. Unknown keys are rejected.
func LoadTrackerOptions(path string) (tracker.Options, error) {
	opts := tracker.DefaultOptions()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read tracker options: %w", err)
	}
	return ParseTrackerOptions(data)
}

// ParseTrackerOptions decodes YAML options over the defaults and validates
// the result.
func ParseTrackerOptions(data []byte) (tracker.Options, error) {
	opts := tracker.DefaultOptions()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return tracker.DefaultOptions(), fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	if err := opts.Validate(); err != nil {
		return tracker.DefaultOptions(), err
	}
	return opts, nil
}
