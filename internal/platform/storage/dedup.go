package storage

import (
	"sort"
	"strings"

	"collector/internal/config"
	"collector/internal/core/job"
)

// DedupRows removes duplicates before writing. Page classifications keep the
// freshest row per (facility, url); everything else collapses on the whole
// row.
func DedupRows(spec job.Spec, rows [][]string) [][]string {
	if spec.Type == config.JobURLCollect {
		return dedupLatestPerPage(rows)
	}
	return dedupDistinct(rows)
}

func dedupDistinct(rows [][]string) [][]string {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0]
	for _, row := range rows {
		key := strings.Join(row, "\t")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

// url_collect column offsets.
const (
	colFacID          = 0
	colURL            = 1
	colUpdateDatetime = 5
)

// dedupLatestPerPage keeps, for each (fac_id_unif, url), the row with the
// newest update_datetime. The timestamp format sorts lexicographically.
func dedupLatestPerPage(rows [][]string) [][]string {
	sorted := make([][]string, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return cell(sorted[i], colUpdateDatetime) > cell(sorted[j], colUpdateDatetime)
	})

	seen := make(map[string]struct{}, len(sorted))
	var out [][]string
	for _, row := range sorted {
		key := cell(row, colFacID) + "\t" + cell(row, colURL)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
