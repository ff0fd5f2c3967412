// Package decode turns raw model responses into typed records. The model is
// asked for tab-separated lines but routinely wraps them in code fences,
// repeats the header, pads columns or swaps fields; everything here exists to
// absorb that.
package decode

import (
	"strings"

	"collector/internal/core/job"
	"collector/internal/logger"
)

var log = logger.New("Decoder")

// headerTokens identify an echoed header line.
var headerTokens = []string{"fac_id_unif", "url", "department"}

// Lines strips code fences and returns the data lines of a response, with any
// echoed header removed.
func Lines(raw string) []string {
	raw = codeFenceRe.ReplaceAllString(raw, "")
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if isHeaderLine(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	hits := 0
	for _, tok := range headerTokens {
		if strings.Contains(lower, tok) {
			hits++
		}
	}
	return hits >= 2
}

// URLCollect parses a page-classification response. Lines with the full
// column set carry facility id and page title; shorter lines at least
// (url, type, department).
func URLCollect(raw string) []job.URLRecord {
	var records []job.URLRecord
	for _, line := range Lines(raw) {
		fields := splitFields(line)
		switch {
		case len(fields) >= 7:
			records = append(records, job.URLRecord{
				FacIDUnif:  fields[0],
				URL:        fields[1],
				Type:       NormalizeTypeCode(fields[2]),
				Department: fields[3],
				PageTitle:  fields[4],
			})
		case len(fields) >= 3:
			records = append(records, job.URLRecord{
				URL:        fields[0],
				Type:       NormalizeTypeCode(fields[1]),
				Department: fields[2],
			})
		default:
			log.LogDebugf("url_collect: dropped short line (%d fields)", len(fields))
		}
	}
	return records
}

// DoctorInfo parses a personnel extraction response. Each line is
// (output_order, department, position, name, ...); trailing free-text columns
// are mined for specialty, licence and leftovers.
func DoctorInfo(raw string) []job.DoctorRecord {
	var records []job.DoctorRecord
	for _, line := range Lines(raw) {
		fields := splitFields(line)
		if len(fields) < 4 {
			log.LogDebugf("doctor_info: dropped short line (%d fields)", len(fields))
			continue
		}
		rec := job.DoctorRecord{
			OutputOrder: fields[0],
			Department:  fields[1],
			Position:    fields[2],
			Name:        fields[3],
		}

		trailing := fields[4:]
		// A URL in the final column is the per-doctor source page, not data.
		if n := len(trailing); n > 0 && urlFieldRe.MatchString(trailing[n-1]) {
			trailing = trailing[:n-1]
		}
		rec.Specialty, rec.Licence, rec.Others = mineTrailing(trailing)

		repairSwappedName(&rec)
		records = append(records, rec)
	}
	return records
}

// mineTrailing splits free-text columns into specialty terms, licences, and
// everything else.
func mineTrailing(fields []string) (specialty, licence, others string) {
	var specialties, licences, rest []string
	seenLicence := map[string]struct{}{}

	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		matched := false
		for _, term := range specialtyTerms {
			if strings.Contains(f, term) {
				specialties = appendUnique(specialties, term)
				matched = true
			}
		}
		for _, p := range licencePatterns {
			for _, m := range p.FindAllString(f, -1) {
				if _, dup := seenLicence[m]; !dup {
					seenLicence[m] = struct{}{}
					licences = append(licences, m)
				}
				matched = true
			}
		}
		if !matched {
			rest = append(rest, f)
		}
	}
	return strings.Join(specialties, "/"), strings.Join(licences, "/"), strings.Join(rest, " ")
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// repairSwappedName fixes rows where the model emitted (name, position) in
// (position, name) order. The name column holding a job title is the tell.
func repairSwappedName(rec *job.DoctorRecord) {
	nameLooksLikeTitle := matchesAny(rec.Name, positionPatterns)
	positionLooksLikeTitle := matchesAny(rec.Position, positionPatterns)
	if nameLooksLikeTitle && !positionLooksLikeTitle && !urlFieldRe.MatchString(rec.Position) {
		rec.Name, rec.Position = rec.Position, rec.Name
	}
}

// Outpatient parses a schedule extraction response into the 14-column record.
// The model fills the first twelve columns; timestamps and version are stamped
// by the caller.
func Outpatient(raw string) []job.OutpatientRecord {
	var records []job.OutpatientRecord
	for _, line := range Lines(raw) {
		fields := splitFields(line)
		if len(fields) < 12 {
			log.LogDebugf("outpatient: dropped short line (%d fields)", len(fields))
			continue
		}
		rec := job.OutpatientRecord{
			FacIDUnif:          fields[0],
			FacNm:              fields[1],
			Department:         fields[2],
			DayOfWeek:          fields[3],
			FirstFollowupVisit: fields[4],
			DoctorsName:        fields[5],
			Position:           fields[6],
			ChargeWeek:         fields[7],
			ChargeDate:         fields[8],
			Specialty:          fields[9],
			UpdateDate:         fields[10],
			URLSingleTable:     fields[11],
		}
		relocateTimeText(&rec)
		records = append(records, rec)
	}
	return records
}

// relocateTimeText moves clinic-hour strings that landed in specialty into
// charge_date where downstream consumers expect them.
func relocateTimeText(rec *job.OutpatientRecord) {
	if rec.Specialty == "" {
		return
	}
	if matchesAny(rec.Specialty, timeRangePatterns) {
		if rec.ChargeDate == "" {
			rec.ChargeDate = rec.Specialty
		} else {
			rec.ChargeDate = rec.ChargeDate + " " + rec.Specialty
		}
		rec.Specialty = ""
	}
}

func splitFields(line string) []string {
	parts := strings.Split(line, "\t")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
