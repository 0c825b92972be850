package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadFixture reads testdata/<name> relative to the calling package.
func LoadFixture(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join("testdata", name))
}

// LoadJSON decodes testdata/<name> into v.
func LoadJSON(name string, v any) error {
	data, err := LoadFixture(name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode fixture %s: %w", name, err)
	}
	return nil
}
