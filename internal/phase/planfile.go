package phase

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/cadre-run/cadre/internal/core"
)

// planFence matches a fenced code block whose fence tag is the literal
// string "cadre-json", capturing its content.
var planFence = regexp.MustCompile("(?s)```cadre-json\\s*\\n(.*?)```")

// sessionWire mirrors one element of the plan file's cadre-json array.
type sessionWire struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Files              []string        `json:"files"`
	Dependencies       []string        `json:"dependencies"`
	Complexity         core.Complexity `json:"complexity"`
	AcceptanceCriteria []string        `json:"acceptanceCriteria"`
}

// ParsePlan extracts the cadre-json fenced block from a planner-produced
// markdown document and converts each session object into a core.Session.
// A missing or malformed block is a parse error, failing the phase.
func ParsePlan(doc []byte, maxRetriesPerTask int) ([]*core.Session, error) {
	m := planFence.FindSubmatch(doc)
	if m == nil {
		return nil, core.ErrValidation("PLAN_PARSE_FAILED", "plan file has no cadre-json fenced block")
	}

	var wire []sessionWire
	if err := json.Unmarshal(m[1], &wire); err != nil {
		return nil, core.ErrValidation("PLAN_PARSE_FAILED", fmt.Sprintf("plan cadre-json block is malformed: %v", err))
	}

	sessions := make([]*core.Session, 0, len(wire))
	for _, w := range wire {
		deps := make([]core.SessionID, 0, len(w.Dependencies))
		for _, d := range w.Dependencies {
			deps = append(deps, core.SessionID(d))
		}
		step := core.Step{
			ID:                 w.ID,
			Files:              w.Files,
			Complexity:         w.Complexity,
			AcceptanceCriteria: w.AcceptanceCriteria,
		}
		id := w.ID
		if id == "" {
			// A planner omitting a session id is tolerated, not rejected — it
			// cannot collide with any dependency reference, since nothing
			// could have named this session before it existed.
			id = uuid.New().String()
		}
		sessions = append(sessions, core.NewSession(core.SessionID(id), w.Name, w.Description, []core.Step{step}, deps, maxRetriesPerTask))
	}
	return sessions, nil
}
