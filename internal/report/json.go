package report

import (
	"encoding/json"

	"github.com/routewarden/routewarden/internal/finding"
)

// JSON renders result as indented JSON (spec §6).
func JSON(result finding.ScanResult) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}
