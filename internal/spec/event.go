package spec

// EventType tags the variant of a timeline event.
type EventType string

const (
	EventSpecCreated EventType = "spec_created"
	EventCommit      EventType = "commit"
	EventPRMerged    EventType = "pr_merged"
)

// Event is one entry of the activity timeline. Only the fields of the
// variant named by Type are meaningful.
type Event struct {
	Type   EventType `json:"type"`
	SpecID string    `json:"spec_id"`
	Date   string    `json:"date"`

	// spec_created
	Title  string `json:"title,omitempty"`
	Status Status `json:"status,omitempty"`

	// commit
	Hash         string `json:"hash,omitempty"`
	Message      string `json:"message,omitempty"`
	Author       string `json:"author,omitempty"`
	FilesChanged int    `json:"files_changed,omitempty"`

	// pr_merged; Title and Author are shared with the variants above
	PRNumber  int    `json:"pr_number,omitempty"`
	Branch    string `json:"branch,omitempty"`
	GitHubURL string `json:"github_url,omitempty"`
}

// Timeline is the activity timeline document.
type Timeline struct {
	GeneratedAt string  `json:"generated_at,omitempty"`
	Events      []Event `json:"events"`
}

// Group is the events of one spec in source order.
type Group struct {
	SpecID string
	Events []Event
}

// GroupBySpec splits events into per-spec groups ordered by the first
// appearance of each spec id. Event order inside a group is preserved.
func GroupBySpec(events []Event) []Group {
	positions := make(map[string]int)
	groups := make([]Group, 0)
	for _, event := range events {
		pos, ok := positions[event.SpecID]
		if !ok {
			pos = len(groups)
			positions[event.SpecID] = pos
			groups = append(groups, Group{SpecID: event.SpecID})
		}
		groups[pos].Events = append(groups[pos].Events, event)
	}
	return groups
}

// Created returns the group's spec_created event, if any.
func (g Group) Created() (Event, bool) {
	for _, event := range g.Events {
		if event.Type == EventSpecCreated {
			return event, true
		}
	}
	return Event{}, false
}

// OfType returns the group's events of one variant in source order.
func (g Group) OfType(t EventType) []Event {
	out := make([]Event, 0)
	for _, event := range g.Events {
		if event.Type == t {
			out = append(out, event)
		}
	}
	return out
}
