package phase

import "testing"

const validPlan = "# Plan\n\nSome prose.\n\n```cadre-json\n" + `[
  {"id": "s1", "name": "Add handler", "description": "desc", "files": ["a.go"], "dependencies": [], "complexity": "simple", "acceptanceCriteria": ["compiles"]},
  {"id": "s2", "name": "Wire handler", "description": "desc", "files": ["b.go"], "dependencies": ["s1"], "complexity": "moderate", "acceptanceCriteria": []}
]` + "\n```\n"

func TestParsePlan_ValidBlock(t *testing.T) {
	sessions, err := ParsePlan([]byte(validPlan), 2)
	if err != nil {
		t.Fatalf("ParsePlan() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len(sessions) = %d, want 2", len(sessions))
	}
	if sessions[0].ID != "s1" || len(sessions[1].Dependencies) != 1 || sessions[1].Dependencies[0] != "s1" {
		t.Errorf("sessions = %+v", sessions)
	}
	if sessions[0].MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", sessions[0].MaxRetries)
	}
}

func TestParsePlan_MissingBlock(t *testing.T) {
	if _, err := ParsePlan([]byte("# Plan\n\nno fenced block here"), 2); err == nil {
		t.Fatal("expected parse error for missing cadre-json block")
	}
}

func TestParsePlan_MalformedJSON(t *testing.T) {
	doc := "```cadre-json\n{not valid json\n```\n"
	if _, err := ParsePlan([]byte(doc), 2); err == nil {
		t.Fatal("expected parse error for malformed JSON")
	}
}
