package replay

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/treegen/internal/transition"
)

func TestLoadFixture_Scenario(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "generator_scenario.json"))
	if err != nil {
		t.Fatalf("LoadFixture failed: %v", err)
	}
	if f.Description == "" {
		t.Error("expected non-empty description")
	}
	if len(f.Actions) != 6 {
		t.Fatalf("expected 6 actions, got %d", len(f.Actions))
	}
	if f.Actions[0].Text != "ADD(A, X)" {
		t.Errorf("action 0 text = %q", f.Actions[0].Text)
	}
	if f.Actions[2].Text != "" || f.Actions[2].ID != 2 {
		t.Errorf("action 2 = %+v, want id 2", f.Actions[2])
	}
	if f.Expected == nil || len(f.Expected.Tokens) != 2 {
		t.Fatalf("expected 2 tokens in expected section, got %+v", f.Expected)
	}
}

func TestLoadFixture_Errors(t *testing.T) {
	if _, err := LoadFixture(filepath.Join("testdata", "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := WriteFixture(path, &Fixture{}); err != nil {
		t.Fatalf("WriteFixture: %v", err)
	}
	f, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("reload empty fixture: %v", err)
	}
	if len(f.Actions) != 0 {
		t.Errorf("expected no actions, got %d", len(f.Actions))
	}
}

func TestBuild_ResolvesActions(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "generator_scenario.json"))
	if err != nil {
		t.Fatalf("LoadFixture failed: %v", err)
	}
	sys, ids, err := f.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if sys.Name() != transition.NameGenerator {
		t.Errorf("system = %s", sys.Name())
	}
	want := []int{1, 3, 2, 4, 0, 0}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestBuild_Errors(t *testing.T) {
	f := &Fixture{
		System: "shift-reduce",
		Vocab:  FixtureVocab{Labels: []string{"A"}, Tags: []string{"X"}, Words: []string{"w"}},
	}
	if _, _, err := f.Build(); err == nil {
		t.Error("expected error for unknown system")
	}

	f.System = ""
	f.Actions = []FixtureAction{{ID: -1, Text: "ADD(Z, X)"}}
	if _, _, err := f.Build(); err == nil {
		t.Error("expected error for unknown label")
	}
}

func TestFixtureAction_JSON(t *testing.T) {
	var actions []FixtureAction
	if err := json.Unmarshal([]byte(`["COLLAPSE", 7, " 3"]`), &actions); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if actions[0].Text != "COLLAPSE" || actions[1].ID != 7 || actions[2].Text != " 3" {
		t.Errorf("unexpected actions %+v", actions)
	}

	data, err := json.Marshal([]FixtureAction{{ID: 1, Text: "ADD(A, X)"}, {ID: 4}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["ADD(A, X)",4]` {
		t.Errorf("marshal = %s", data)
	}

	var bad FixtureAction
	if err := json.Unmarshal([]byte(`{"id": 1}`), &bad); err == nil {
		t.Error("expected error for object action")
	}
}
