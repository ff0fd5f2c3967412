package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"collector/internal/core/job"
	"collector/internal/utils/urlutil"
)

// ReadDoctorTable loads previously extracted personnel records from the job's
// input object. The validation job re-checks these against their source pages.
func ReadDoctorTable(ctx context.Context, store Store, spec job.Spec) ([]job.DoctorRecord, error) {
	raw, err := store.ReadFile(ctx, spec.InputPath())
	if err != nil {
		return nil, fmt.Errorf("read record table %s: %w", spec.InputPath(), err)
	}

	r := csv.NewReader(strings.NewReader(string(raw)))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse record table %s: %w", spec.InputPath(), err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("record table %s is empty", spec.InputPath())
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"fac_id_unif", "url", "name"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("record table %s: required column %s not found", spec.InputPath(), required)
		}
	}

	pick := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []job.DoctorRecord
	for _, row := range rows[1:] {
		rec := job.DoctorRecord{
			FacIDUnif:   pick(row, "fac_id_unif"),
			URL:         pick(row, "url"),
			OutputOrder: pick(row, "output_order"),
			Department:  pick(row, "department"),
			Position:    pick(row, "position"),
			Name:        pick(row, "name"),
			Specialty:   pick(row, "specialty"),
			Licence:     pick(row, "licence"),
			Others:      pick(row, "others"),
		}
		if rec.Name == "" || !urlutil.IsValid(rec.URL) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
