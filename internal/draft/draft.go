// Package draft persists in-progress form values as a single JSON blob in a
// string-keyed store.
package draft

import (
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/roelfdiedericks/gointake/internal/schema"
)

// DefaultKey is the storage key of the one draft.
const DefaultKey = "legal_intake_draft"

// ErrNotFound is returned by KV.Get when the key holds nothing.
var ErrNotFound = errors.New("draft: not found")

// KV is the key-value capability the form store persists through.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// Store is a KV that owns resources.
type Store interface {
	KV
	Close() error
}

// Draft is the persisted snapshot.
type Draft struct {
	Value     schema.FormValue `json:"value"`
	Timestamp string           `json:"timestamp"`
}

// ParseError reports a stored blob that could not be decoded.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("draft: corrupt blob: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// New stamps value with the current time in ISO-8601 form.
func New(value schema.FormValue, at time.Time) Draft {
	return Draft{Value: value, Timestamp: at.UTC().Format("2006-01-02T15:04:05.000Z07:00")}
}

// SavedAt parses the timestamp; the zero time when absent or malformed.
func (d Draft) SavedAt() time.Time {
	t, err := time.Parse(time.RFC3339Nano, d.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Encode serializes a draft.
func Encode(d Draft) (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("draft: encode: %w", err)
	}
	return string(data), nil
}

// Decode parses a stored blob. Anything that is not an object with a value
// map yields a *ParseError.
func Decode(blob string) (Draft, error) {
	var raw struct {
		Value     *schema.FormValue `json:"value"`
		Timestamp string            `json:"timestamp"`
	}
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return Draft{}, &ParseError{Err: err}
	}
	if raw.Value == nil {
		return Draft{}, &ParseError{Err: errors.New("missing value")}
	}
	d := Draft{Value: *raw.Value, Timestamp: raw.Timestamp}
	for id, sv := range d.Value {
		if sv == nil {
			d.Value[id] = schema.SectionValues{}
		}
	}
	return d, nil
}

// Load reads and decodes the draft under key. A missing draft is
// ErrNotFound; a corrupt one is a *ParseError.
func Load(kv KV, key string) (Draft, error) {
	blob, err := kv.Get(key)
	if err != nil {
		return Draft{}, err
	}
	return Decode(blob)
}

// Save encodes d and stores it under key.
func Save(kv KV, key string, d Draft) error {
	blob, err := Encode(d)
	if err != nil {
		return err
	}
	return kv.Set(key, blob)
}
