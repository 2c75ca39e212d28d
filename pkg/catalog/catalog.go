package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"github.com/sourcegraph/conc/pool"

	"github.com/UjwalAKrishna/drawrag-core/pkg/registry"
)

// decodeCatalog extracts the definition set from an evaluated catalog
// value. The definitions struct must be fully concrete; a single
// underspecified entry rejects the whole catalog. Entries marshal
// through JSON serially, then decode on a bounded worker pool.
func decodeCatalog(value cue.Value, parallelism int) ([]registry.Definition, error) {
	defsValue := value.LookupPath(cue.ParsePath("definitions"))
	if !defsValue.Exists() {
		return nil, errors.New("catalog has no definitions struct")
	}
	if err := defsValue.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("catalog failed validation: %w", err)
	}

	type entry struct {
		key  string
		data []byte
	}
	var entries []entry

	iter, err := defsValue.Fields()
	if err != nil {
		return nil, fmt.Errorf("catalog definitions are not a struct: %w", err)
	}
	for iter.Next() {
		key := iter.Selector().Unquoted()
		data, err := iter.Value().MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("definition %s: %w", key, err)
		}
		entries = append(entries, entry{key: key, data: data})
	}
	if len(entries) == 0 {
		return nil, errors.New("catalog defines no components")
	}

	out := make([]registry.Definition, len(entries))
	p := pool.New().WithMaxGoroutines(parallelism).WithErrors()
	for i, e := range entries {
		p.Go(func() error {
			def, err := parseDefinition(e.data)
			if err != nil {
				return fmt.Errorf("definition %s: %w", e.key, err)
			}
			if key := def.Category + "/" + def.Subtype; key != e.key {
				return fmt.Errorf("definition %s: key does not match %s", e.key, key)
			}
			out[i] = def
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// parseDefinition decodes one definition from its JSON form. Numbers
// decode through json.Number so integer defaults stay integers instead
// of collapsing to float64.
func parseDefinition(data []byte) (registry.Definition, error) {
	var raw struct {
		Name           string         `json:"name"`
		Icon           string         `json:"icon"`
		Category       string         `json:"category"`
		Subtype        string         `json:"subtype"`
		Description    string         `json:"description"`
		DefaultConfig  map[string]any `json:"defaultConfig"`
		RequiredFields []string       `json:"requiredFields"`
		Inputs         int            `json:"inputs"`
		Outputs        int            `json:"outputs"`
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return registry.Definition{}, err
	}

	var cfg map[string]any
	if raw.DefaultConfig != nil {
		cfg = convertNumbers(raw.DefaultConfig).(map[string]any)
	}

	return registry.Definition{
		Name:           raw.Name,
		Icon:           raw.Icon,
		Category:       raw.Category,
		Subtype:        raw.Subtype,
		Description:    raw.Description,
		DefaultConfig:  cfg,
		RequiredFields: raw.RequiredFields,
		Inputs:         raw.Inputs,
		Outputs:        raw.Outputs,
	}, nil
}

// convertNumbers recursively converts json.Number values to native Go
// types, preferring integers.
func convertNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(string(val), 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(string(val), 64); err == nil {
			return f
		}
		return string(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = convertNumbers(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = convertNumbers(item)
		}
		return out
	default:
		return v
	}
}
