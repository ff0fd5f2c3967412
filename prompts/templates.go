package prompts

import (
	"strings"

	"collector/internal/core/job"
)

// RenderValidation fills the doctor fields into a validation prompt. Prompts
// loaded from the bucket use the same {name} style placeholders as the
// built-in default; placeholders absent from the prompt are simply ignored.
func RenderValidation(base string, f job.DoctorFields) string {
	r := strings.NewReplacer(
		"{name}", f.Name,
		"{department}", f.Department,
		"{position}", f.Position,
		"{specialty}", f.Specialty,
		"{licence}", f.Licence,
		"{others}", f.Others,
	)
	return r.Replace(base)
}
