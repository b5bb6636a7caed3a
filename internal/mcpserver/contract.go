package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/recruitflow/internal/schedule"
)

// RulesDocument renders the scheduling rules of v as Markdown for LLM
// consumers. Rules are listed in the order they are evaluated; the first
// failing rule is the one reported.
func RulesDocument(v *schedule.Validator) string {
	var b strings.Builder
	b.WriteString("# Recruitflow Scheduling Rules\n\n")
	fmt.Fprintf(&b, "Times are evaluated in the **%s** time zone. ", v.Location())
	fmt.Fprintf(&b, "Current time: %s.\n\n", v.Now().Format("Monday 2006-01-02 15:04 MST"))

	b.WriteString("## Rules\n\n")
	for i, r := range v.Rules() {
		fmt.Fprintf(&b, "%d. `%s`: %s\n", i+1, r.Reason, r.Description)
	}

	b.WriteString(`
## Interview lifecycle

- A candidate may hold at most one ` + "`scheduled`" + ` interview.
- ` + "`scheduled`" + ` interviews can be rescheduled, cancelled, marked no-show, or completed
  by submitting feedback. Every other status is final.
- Cancelling or marking a no-show leaves the candidate's status unchanged.
- Candidates in ` + "`hired`, `rejected` or `terminated`" + ` cannot be scheduled.

## Ratings

Four categories (technical_skills, communication, problem_solving, cultural_fit) are
scored 0-5, where 0 means "not rated" and still counts toward the average. The overall
rating is the mean of the four, rounded half-up to the nearest 0.5.
`)
	return b.String()
}
