package ingest

import "github.com/banshee-data/equipment.report/internal/equipment"

// ValidateColumns fails with a missing-columns error listing, in the
// order of required, every required name absent from the header.
// Only presence is checked here.
func ValidateColumns(t *Table, required []string) error {
	var missing []string
	for _, name := range required {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return equipment.MissingColumns(missing)
	}
	return nil
}
