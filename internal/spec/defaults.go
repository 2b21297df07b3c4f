package spec

// Defaults is the single table of fallback values for spec fields. Records
// are normalized against it once, when they are loaded or published, so
// the renderers never need their own fallbacks.
var Defaults = struct {
	Status      Status
	Priority    Priority
	Assignee    string
	Category    string
	DateDisplay string
}{
	Status:      StatusDraft,
	Priority:    PriorityMedium,
	Assignee:    "Kang",
	Category:    "nextpm-feature",
	DateDisplay: "-",
}

// Normalize fills the fields a loaded record may omit. Numeric fields
// already decode to zero when absent.
func Normalize(r Record) Record {
	if r.Status == "" {
		r.Status = Defaults.Status
	}
	if r.Priority == "" {
		r.Priority = Defaults.Priority
	}
	if r.Assignee == "" {
		r.Assignee = Defaults.Assignee
	}
	if r.Category == "" {
		r.Category = Defaults.Category
	}
	if r.Demonstrates == nil {
		r.Demonstrates = []string{}
	}
	return r
}

// NormalizeAll returns normalized copies; the input slice is left as is.
func NormalizeAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = Normalize(r)
	}
	return out
}
