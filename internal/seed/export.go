package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const directoryPermission = 0o755

// WriteJSON writes ds to path as indented JSON, creating parent directories
// as needed.
func WriteJSON(path string, ds Dataset) error {
	if path == "" {
		return fmt.Errorf("output path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode dataset: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}
