package flow

import "strings"

// ReportSection is the collected output of one role within a report.
// A role that ran more than once contributes a single section with its
// outputs joined by a single space, in execution order.
type ReportSection struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Report is the assembled result of a completed run.
//
// Assembly is a pure function of the final state: assembling the same state
// twice yields identical reports, and assembling never mutates the state.
type Report struct {
	// Task is the original topic the run analyzed.
	Task string `json:"task"`

	// Sections holds per-role output in order of each role's first
	// appearance in the history.
	Sections []ReportSection `json:"sections"`

	// Full is every history entry's text joined with a single space, in
	// execution order.
	Full string `json:"full"`
}

// AssembleReport builds a Report from the final state of a run. Degraded
// entries (inline error text) are included as-is so the report reflects what
// actually happened.
func AssembleReport(state State) Report {
	report := Report{Task: state.Task}

	texts := make([]string, 0, len(state.History))
	byRole := make(map[Role]int)

	for _, entry := range state.History {
		texts = append(texts, entry.Text)

		idx, seen := byRole[entry.Role]
		if !seen {
			byRole[entry.Role] = len(report.Sections)
			report.Sections = append(report.Sections, ReportSection{Role: entry.Role, Text: entry.Text})
			continue
		}
		report.Sections[idx].Text += " " + entry.Text
	}

	report.Full = strings.Join(texts, " ")
	return report
}

// Section returns the text for the given role and whether the role produced
// any output.
func (r Report) Section(role Role) (string, bool) {
	for _, s := range r.Sections {
		if s.Role == role {
			return s.Text, true
		}
	}
	return "", false
}

// String renders the report for display: the task line followed by one
// titled block per section.
func (r Report) String() string {
	var sb strings.Builder
	if r.Task != "" {
		sb.WriteString("Task: ")
		sb.WriteString(r.Task)
		sb.WriteString("\n\n")
	}
	for i, s := range r.Sections {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(string(s.Role))
		sb.WriteString(" Analysis:\n")
		sb.WriteString(s.Text)
	}
	return sb.String()
}
