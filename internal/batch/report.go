package batch

import (
	"encoding/json"
	"os"
)

// WriteReport writes the per-target batch results as JSON.
func WriteReport(path string, results []Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
