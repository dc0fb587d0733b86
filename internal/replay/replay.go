// Package replay runs recorded call scenarios through the full triage
// pipeline without a telephony gateway. Scenarios are YAML files describing
// caller turns; the runner feeds them into a session at recorded pacing and
// reports the resulting incident record.
package replay

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/beacon/internal/session"
	"github.com/ShayCichocki/beacon/pkg/models"
)

// Turn is one scripted utterance.
type Turn struct {
	Speaker string `yaml:"speaker"`
	Text    string `yaml:"text"`
	DelayMS int    `yaml:"delay_ms"`
}

// Scenario is a scripted call.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Turns       []Turn `yaml:"turns"`
}

// LoadScenario reads and validates one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if len(sc.Turns) == 0 {
		return nil, fmt.Errorf("scenario %s has no turns", sc.Name)
	}
	for i, t := range sc.Turns {
		if strings.TrimSpace(t.Text) == "" {
			return nil, fmt.Errorf("scenario %s: turn %d has no text", sc.Name, i)
		}
		switch t.Speaker {
		case "", "caller", "system":
		default:
			return nil, fmt.Errorf("scenario %s: turn %d has unknown speaker %q", sc.Name, i, t.Speaker)
		}
	}
	return &sc, nil
}

// LoadDir loads every .yaml/.yml scenario in dir, sorted by filename.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	var out []*Scenario
	for _, p := range paths {
		sc, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// Runner feeds scenarios through a session store.
type Runner struct {
	store *session.Store
	out   io.Writer

	// Pace plays turn delays in real time. Off by default so test suites
	// finish quickly.
	Pace bool
}

// NewRunner creates a runner. out receives progress output; pass io.Discard
// to silence it.
func NewRunner(store *session.Store, out io.Writer) *Runner {
	return &Runner{store: store, out: out}
}

// Run plays one scenario and returns the terminal incident record.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*models.IncidentRecord, error) {
	callID := "replay-" + uuid.New().String()[:8]

	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(r.out, "▶ %s", sc.Name)
	if sc.Description != "" {
		fmt.Fprintf(r.out, "  (%s)", sc.Description)
	}
	fmt.Fprintf(r.out, "  [%s]\n", callID)

	ctrl := r.store.GetOrCreate(callID)
	for i, t := range sc.Turns {
		if r.Pace && t.DelayMS > 0 {
			select {
			case <-time.After(time.Duration(t.DelayMS) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		speaker := models.SpeakerCaller
		if t.Speaker == "system" {
			speaker = models.SpeakerSystem
		}
		fmt.Fprintf(r.out, "  %-7s %s\n", speaker+":", t.Text)
		ctrl.Ingest(models.Utterance{
			Speaker:   speaker,
			Text:      t.Text,
			Seq:       int64(i),
			Timestamp: time.Now(),
		})
	}

	// Let in-flight analysis land before ending the call.
	settle := time.NewTimer(200 * time.Millisecond)
	select {
	case <-settle.C:
	case <-ctx.Done():
		settle.Stop()
	}

	ctrl.End()
	select {
	case <-ctrl.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	rec := ctrl.Snapshot()
	r.printResult(rec)
	r.store.Evict(callID)
	return rec, nil
}

// RunAll plays every scenario in order, stopping on the first error.
func (r *Runner) RunAll(ctx context.Context, scenarios []*Scenario) error {
	for _, sc := range scenarios {
		if _, err := r.Run(ctx, sc); err != nil {
			return fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		fmt.Fprintln(r.out)
	}
	return nil
}

func (r *Runner) printResult(rec *models.IncidentRecord) {
	sevColor := color.New(color.FgGreen)
	switch rec.Severity {
	case models.SeverityCritical:
		sevColor = color.New(color.FgRed, color.Bold)
	case models.SeverityStandard:
		sevColor = color.New(color.FgYellow)
	}

	fmt.Fprintf(r.out, "  severity: ")
	if rec.Severity == "" {
		fmt.Fprintf(r.out, "(unclassified)")
	} else {
		sevColor.Fprintf(r.out, "%s", rec.Severity)
	}
	fmt.Fprintf(r.out, "  status: %s", rec.Status)
	if rec.Degraded {
		color.New(color.FgRed).Fprintf(r.out, "  DEGRADED")
	}
	fmt.Fprintln(r.out)

	if rec.CallType != "" {
		fmt.Fprintf(r.out, "  type: %s\n", rec.CallType)
	}
	if rec.Summary != "" {
		fmt.Fprintf(r.out, "  summary: %s\n", rec.Summary)
	}
	if rec.Location != nil && rec.Location.RawText != "" {
		fmt.Fprintf(r.out, "  location: %s\n", rec.Location.RawText)
	}
	if rec.Dispatch != nil {
		var units []string
		if rec.Dispatch.Police {
			units = append(units, "police")
		}
		if rec.Dispatch.Ambulance {
			units = append(units, "ambulance")
		}
		if rec.Dispatch.Fire {
			units = append(units, "fire")
		}
		if rec.Dispatch.SWAT {
			units = append(units, "swat")
		}
		fmt.Fprintf(r.out, "  dispatch: %s (priority %s)\n", strings.Join(units, ", "), rec.Dispatch.Priority)
	}
}
