package replay

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/beacon/internal/agents"
	"github.com/ShayCichocki/beacon/internal/publisher"
	"github.com/ShayCichocki/beacon/internal/session"
	"github.com/ShayCichocki/beacon/pkg/models"
)

const sampleScenario = `name: kitchen-fire
description: critical fire call
turns:
  - speaker: caller
    text: "my kitchen is on fire and the flames are spreading"
    delay_ms: 100
  - speaker: caller
    text: "I'm at 42 Elm Street"
    delay_ms: 200
`

type fireInvoker struct{}

func (fireInvoker) Invoke(_ context.Context, kind agents.Kind, req agents.Request) (*agents.Result, error) {
	if kind == agents.KindRouter {
		var end int64 = -1
		if len(req.Window) > 0 {
			end = req.Window[len(req.Window)-1].Seq
		}
		return &agents.Result{Classification: &models.Classification{
			Severity:     models.SeverityCritical,
			Confidence:   0.95,
			WindowEndSeq: end,
		}}, nil
	}
	return &agents.Result{Report: &agents.Report{
		CallType: "Structure Fire",
		Summary:  "kitchen fire, spreading",
		Dispatch: &models.Dispatch{Fire: true, Ambulance: true, Priority: "IMMEDIATE"},
	}}, nil
}

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "fire.yaml", sampleScenario)
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if sc.Name != "kitchen-fire" {
		t.Errorf("name = %q", sc.Name)
	}
	if len(sc.Turns) != 2 || sc.Turns[1].DelayMS != 200 {
		t.Errorf("turns = %+v", sc.Turns)
	}
}

func TestLoadScenarioDefaultsNameFromFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "unnamed.yaml", "turns:\n  - text: \"help\"\n")
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if sc.Name != "unnamed" {
		t.Errorf("name = %q", sc.Name)
	}
}

func TestLoadScenarioRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		file, content string
	}{
		{"empty.yaml", "name: empty\n"},
		{"notext.yaml", "turns:\n  - speaker: caller\n    text: \"\"\n"},
		{"badspeaker.yaml", "turns:\n  - speaker: operator\n    text: \"hi\"\n"},
	}
	for _, tt := range tests {
		path := writeScenario(t, dir, tt.file, tt.content)
		if _, err := LoadScenario(path); err == nil {
			t.Errorf("%s: expected error", tt.file)
		}
	}
}

func TestLoadDirSortsByFilename(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "b.yaml", "name: second\nturns:\n  - text: \"two\"\n")
	writeScenario(t, dir, "a.yml", "name: first\nturns:\n  - text: \"one\"\n")
	writeScenario(t, dir, "notes.txt", "not a scenario")

	scenarios, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(scenarios) != 2 {
		t.Fatalf("loaded %d scenarios", len(scenarios))
	}
	if scenarios[0].Name != "first" || scenarios[1].Name != "second" {
		t.Errorf("order = %s, %s", scenarios[0].Name, scenarios[1].Name)
	}
}

func TestRunProducesIncident(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "fire.yaml", sampleScenario)
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}

	cfg := session.DefaultConfig()
	cfg.RetryBackoff = 5 * time.Millisecond
	store := session.NewStore(cfg, fireInvoker{}, publisher.New(), nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		store.Close(ctx)
	})

	var out bytes.Buffer
	runner := NewRunner(store, &out)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rec, err := runner.Run(ctx, sc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rec.Severity != models.SeverityCritical {
		t.Errorf("severity = %s", rec.Severity)
	}
	if rec.CallType != "Structure Fire" {
		t.Errorf("call type = %q", rec.CallType)
	}
	if !strings.Contains(out.String(), "kitchen-fire") {
		t.Errorf("output missing scenario name:\n%s", out.String())
	}
	if store.Len() != 0 {
		t.Errorf("store has %d sessions after run", store.Len())
	}
}
