package mapping

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads and validates a JSON mapping file.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file: %w", err)
	}

	var m File
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse mapping json: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
