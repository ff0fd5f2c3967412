package decode

import (
	"strings"

	"collector/internal/core/job"
)

// IsFabricatedName reports whether a name matches the placeholder people the
// model falls back to when a page has no real roster.
func IsFabricatedName(name string) bool {
	return matchesAny(name, fakeNamePatterns)
}

// IsDepartmentAsName reports whether a department label leaked into the name
// column.
func IsDepartmentAsName(name string) bool {
	return matchesAny(name, nameIsDepartmentPatterns)
}

// IsSampleValue reports whether a name or department is copied from prompt
// examples.
func IsSampleValue(v string) bool {
	v = strings.TrimSpace(v)
	for _, s := range sampleNames {
		if v == s {
			return true
		}
	}
	for _, s := range sampleDepartments {
		if v == s {
			return true
		}
	}
	return false
}

// IsSampleFacilityID reports whether a facility id is an example value.
func IsSampleFacilityID(id string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, s := range sampleFacilityIDs {
		if id == s {
			return true
		}
	}
	return false
}

// BlankPlaceholder returns "" for masked values like 〇〇大学 and the input
// otherwise. Applied to secondary fields only; a placeholder name rejects the
// whole record instead.
func BlankPlaceholder(v string) string {
	if matchesAny(strings.TrimSpace(v), placeholderPatterns) {
		return ""
	}
	return v
}

// FilterDoctorRecords drops fabricated or sample records and blanks
// placeholder secondary fields. Returns the kept records and the number
// dropped.
func FilterDoctorRecords(records []job.DoctorRecord) ([]job.DoctorRecord, int) {
	kept := records[:0]
	dropped := 0
	for _, rec := range records {
		if rec.Name == "" ||
			IsFabricatedName(rec.Name) ||
			IsDepartmentAsName(rec.Name) ||
			IsSampleValue(rec.Name) ||
			IsSampleValue(rec.Department) {
			dropped++
			continue
		}
		rec.Specialty = BlankPlaceholder(rec.Specialty)
		rec.Licence = BlankPlaceholder(rec.Licence)
		rec.Others = BlankPlaceholder(rec.Others)
		kept = append(kept, rec)
	}
	return kept, dropped
}
