package draft

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/itchyny/gojq"

	"github.com/roelfdiedericks/gointake/internal/schema"
)

// QueryOptions shapes Query output like jq's -r and -c flags.
type QueryOptions struct {
	Raw     bool
	Compact bool
}

// Query runs a jq expression over a form value. The value goes through a
// JSON round trip first, since gojq only walks plain JSON types.
func Query(value schema.FormValue, query string, opts QueryOptions) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode form value: %w", err)
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return "", fmt.Errorf("failed to decode form value: %w", err)
	}

	if strings.TrimSpace(query) == "" {
		query = "."
	}
	parsed, err := gojq.Parse(query)
	if err != nil {
		return "", fmt.Errorf("invalid jq query: %w", err)
	}

	var results []any
	iter := parsed.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return "", fmt.Errorf("jq error: %w", err)
		}
		results = append(results, v)
	}
	return formatResults(results, opts)
}

func formatResults(results []any, opts QueryOptions) (string, error) {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		if s, ok := r.(string); ok && opts.Raw {
			lines = append(lines, s)
			continue
		}
		var b []byte
		var err error
		if opts.Compact {
			b, err = json.Marshal(r)
		} else {
			b, err = json.MarshalIndent(r, "", "  ")
		}
		if err != nil {
			return "", fmt.Errorf("failed to encode result: %w", err)
		}
		lines = append(lines, string(b))
	}
	return strings.Join(lines, "\n"), nil
}
