package selectors

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadFile returns the defaults overlaid with the JSON cache file at path.
// A missing file is not an error: the defaults are returned unchanged so a
// first run works without any configuration. A present but malformed file
// IS an error, because silently ignoring an operator's edits would be
// worse than failing the run.
func LoadFile(path string) (*Registry, error) {
	r := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("selectors: read %s: %w", path, err)
	}

	var sets map[string][]string
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("selectors: parse %s: %w", path, err)
	}

	r.Merge(sets)
	return r, nil
}

// SaveFile writes the current sets as the JSON cache file, atomically
// (write .tmp then rename) so an editor or a concurrent reader never sees
// a partial file.
func (r *Registry) SaveFile(path string) error {
	data, err := json.MarshalIndent(r.Sets(), "", "  ")
	if err != nil {
		return fmt.Errorf("selectors: marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("selectors: write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("selectors: rename: %w", err)
	}
	return nil
}
