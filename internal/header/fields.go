package header

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadFields reads extra header fields from a flat TOML or YAML table of
// string values. The format follows the file extension; anything other than
// .yaml or .yml is read as TOML. Names must be HTTP tokens and may not
// name a field the engine sets itself.
func LoadFields(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fields file: %w", err)
	}

	raw := make(map[string]interface{})
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = toml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse fields file: %w", err)
	}

	fields := make(map[string]string, len(raw))
	for name, v := range raw {
		if !ValidFieldName(name) {
			return nil, fmt.Errorf("parse fields file: invalid field name %q", name)
		}
		if EngineField(name) {
			return nil, fmt.Errorf("parse fields file: field %q is set by the engine", name)
		}
		switch v := v.(type) {
		case string:
			fields[name] = v
		case map[string]interface{}, []interface{}:
			return nil, fmt.Errorf("parse fields file: field %q is not a scalar", name)
		default:
			fields[name] = fmt.Sprint(v)
		}
	}
	return fields, nil
}

func sortedNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
