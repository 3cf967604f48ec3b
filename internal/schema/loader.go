package schema

import (
	"context"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	. "github.com/roelfdiedericks/gointake/internal/logging"
)

// LoadError reports a schema that could not be fetched or decoded.
// Nothing is cached when it is returned, so the caller may retry.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load intake schema from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader fetches, normalizes and caches a schema. The first successful Load
// wins; later calls return the cached schema without fetching.
type Loader struct {
	src Source

	mu     sync.Mutex
	schema *Schema
}

// NewLoader creates a loader for src.
func NewLoader(src Source) *Loader {
	return &Loader{src: src}
}

// Load returns the cached schema, fetching it on first use.
func (l *Loader) Load(ctx context.Context) (*Schema, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.schema != nil {
		return l.schema, nil
	}

	start := time.Now()
	data, err := l.src.Fetch(ctx)
	if err != nil {
		L_error("schema: fetch failed", "source", l.src.String(), "error", err)
		return nil, &LoadError{Source: l.src.String(), Err: err}
	}

	s, err := Parse(data)
	if err != nil {
		L_error("schema: parse failed", "source", l.src.String(), "error", err)
		return nil, &LoadError{Source: l.src.String(), Err: err}
	}

	l.schema = s
	L_elapsed(start, "schema: loaded", "source", l.src.String(), "title", s.Title, "sections", len(s.Sections))
	return s, nil
}

// Schema returns the cached schema, or nil before a successful Load.
func (l *Loader) Schema() *Schema {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.schema
}

// FieldByID searches every section, then one level into repeater item fields.
func (l *Loader) FieldByID(id string) *Field {
	s := l.Schema()
	if s == nil {
		return nil
	}
	return s.FieldByID(id)
}

// SectionByID returns the section with the given id, or nil.
func (l *Loader) SectionByID(id string) *Section {
	s := l.Schema()
	if s == nil {
		return nil
	}
	return s.SectionByID(id)
}

// Parse decodes and normalizes a JSON schema document.
func Parse(data []byte) (*Schema, error) {
	var probe struct {
		Sections json.RawMessage `json:"sections"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("malformed schema: %w", err)
	}
	if len(probe.Sections) == 0 || string(probe.Sections) == "null" {
		return nil, fmt.Errorf("malformed schema: missing sections")
	}

	// keys absent from the document keep these defaults
	s := Schema{UI: UIConfig{AllowDraftResume: true}}
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("malformed schema: %w", err)
	}
	if len(s.Sections) == 0 {
		return nil, fmt.Errorf("malformed schema: no sections")
	}
	normalize(&s)
	return &s, nil
}

func normalize(s *Schema) {
	for i := range s.Sections {
		s.Sections[i].Fields = normalizeFields(s.Sections[i].Fields)
	}
}

// normalizeFields defaults the type to text and drops null entries.
// Required already defaults to false when absent.
func normalizeFields(fields []*Field) []*Field {
	out := fields[:0]
	for _, f := range fields {
		if f == nil {
			continue
		}
		if f.Type == "" {
			f.Type = TypeText
		}
		if len(f.ItemFields) > 0 {
			f.ItemFields = normalizeFields(f.ItemFields)
		}
		out = append(out, f)
	}
	return out
}

// SectionByID returns the section with the given id, or nil.
func (s *Schema) SectionByID(id string) *Section {
	for i := range s.Sections {
		if s.Sections[i].ID == id {
			return &s.Sections[i]
		}
	}
	return nil
}

// FieldByID searches every section, then one level into repeater item fields.
func (s *Schema) FieldByID(id string) *Field {
	for i := range s.Sections {
		if f := s.Sections[i].Field(id); f != nil {
			return f
		}
		for _, f := range s.Sections[i].Fields {
			if f.Type != TypeRepeater {
				continue
			}
			if it := f.ItemField(id); it != nil {
				return it
			}
		}
	}
	return nil
}
