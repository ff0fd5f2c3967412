// Package validate cross-checks extracted personnel records against the page
// content they were extracted from, and collapses duplicates.
package validate

import (
	"strings"

	"collector/internal/core/job"
	"collector/internal/logger"
)

// Service attests records against source text. Stateless; one instance is
// shared by all workers.
type Service struct {
	log *logger.Logger
}

func New() *Service {
	return &Service{log: logger.New("Validator")}
}

// Normalize unifies whitespace and punctuation so substring checks survive
// the formatting differences between HTML text and model output.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "　", " ")
	s = strings.ReplaceAll(s, "，", ",")
	s = strings.ReplaceAll(s, "。", ".")
	return strings.Join(strings.Fields(s), " ")
}

// attested reports whether value appears in the normalized source. Short
// whitespace-joined values are also checked with spaces removed, since names
// are frequently rendered as 田中　一 on the page and 田中一 by the model.
func attested(value, normalizedSource string) bool {
	v := Normalize(value)
	if v == "" {
		return true
	}
	if strings.Contains(normalizedSource, v) {
		return true
	}
	compact := strings.ReplaceAll(v, " ", "")
	return strings.Contains(strings.ReplaceAll(normalizedSource, " ", ""), compact)
}

// Attest checks each textual field of a record against the source content.
// Unattested name or department rejects the record; unattested secondary
// fields are blanked. The boolean reports whether the record survives.
func (s *Service) Attest(rec *job.DoctorRecord, source string) bool {
	src := Normalize(source)

	if !attested(rec.Name, src) {
		s.log.LogDebugf("dropping record: name %q not found in source", rec.Name)
		return false
	}
	if !attested(rec.Department, src) {
		s.log.LogDebugf("dropping record: department %q not found in source", rec.Department)
		return false
	}
	if !attested(rec.Position, src) {
		rec.Position = ""
	}
	if !attestedParts(rec.Specialty, src) {
		rec.Specialty = ""
	}
	if !attestedParts(rec.Licence, src) {
		rec.Licence = ""
	}
	if !attested(rec.Others, src) {
		rec.Others = ""
	}
	return true
}

// attestedParts checks slash-joined multi-value fields part by part; the
// field survives if any part is attested.
func attestedParts(value, normalizedSource string) bool {
	if strings.TrimSpace(value) == "" {
		return true
	}
	for _, part := range strings.Split(value, "/") {
		if attested(part, normalizedSource) {
			return true
		}
	}
	return false
}

// Signature is the dedup key of a record: its normalized content fields,
// excluding volatile columns like output_order and timestamps.
func Signature(rec job.DoctorRecord) string {
	parts := []string{
		rec.Department, rec.Name, rec.Position, rec.Specialty, rec.Licence, rec.Others,
	}
	for i := range parts {
		parts[i] = Normalize(parts[i])
	}
	return strings.Join(parts, "\t")
}

// Dedup collapses records with identical signatures, keeping the first
// occurrence. Returns the kept records and the number removed.
func (s *Service) Dedup(records []job.DoctorRecord) ([]job.DoctorRecord, int) {
	seen := make(map[string]struct{}, len(records))
	kept := records[:0]
	removed := 0
	for _, rec := range records {
		sig := Signature(rec)
		if _, dup := seen[sig]; dup {
			removed++
			continue
		}
		seen[sig] = struct{}{}
		kept = append(kept, rec)
	}
	if removed > 0 {
		s.log.LogInfof("removed %d duplicate records", removed)
	}
	return kept, removed
}
