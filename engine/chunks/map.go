// Package chunks resolves neighbour labels to the document chunk records
// stored in remote JSON files.
package chunks

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Map is the static label → chunk filename lookup bundled with the service.
type Map map[int64]string

// LoadMap reads a chunk map file: a JSON object keyed by decimal label.
func LoadMap(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chunks: read map %s: %w", path, err)
	}
	m, err := ParseMap(data)
	if err != nil {
		return nil, fmt.Errorf("chunks: %s: %w", path, err)
	}
	return m, nil
}

// ParseMap decodes a chunk map document.
func ParseMap(data []byte) (Map, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode chunk map: %w", err)
	}
	m := make(Map, len(raw))
	for k, file := range raw {
		label, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chunk map key %q is not an integer label", k)
		}
		m[label] = file
	}
	return m, nil
}

// Lookup returns the filename holding label. Empty filenames count as unmapped.
func (m Map) Lookup(label int64) (string, bool) {
	file, ok := m[label]
	if !ok || file == "" {
		return "", false
	}
	return file, true
}
