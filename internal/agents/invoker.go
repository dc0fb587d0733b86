// Package agents implements the reasoning agents behind Beacon's triage
// pipeline: a fast severity router, a deep-analysis triage agent for critical
// calls, and a lighter info agent for everything else. All three are invoked
// through a uniform request/response boundary so the backend can be swapped
// or faked without touching the session controller.
package agents

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/beacon/internal/api"
	"github.com/ShayCichocki/beacon/pkg/models"
)

// Kind identifies which agent to invoke.
type Kind string

const (
	// KindRouter is the fast severity classifier.
	KindRouter Kind = "router"
	// KindTriage is the deep-analysis agent for critical calls.
	KindTriage Kind = "triage"
	// KindInfo is the context agent for non-critical calls.
	KindInfo Kind = "info"
)

// Request carries a transcript window and the prior classification, if any,
// into an agent invocation.
type Request struct {
	// CallID identifies the session, for logging only. Agents never touch
	// session state.
	CallID string
	// Window is the ordered transcript accumulated so far.
	Window []models.Utterance
	// Prior is the active classification. Required for triage and info,
	// ignored by the router.
	Prior *models.Classification
}

// Report is the partial incident produced by the triage and info agents.
// The session controller owns the merge; agents only return fields.
type Report struct {
	// CallType categorizes the call (e.g. "Traffic Accident").
	CallType string
	// Summary describes the situation for the dashboard.
	Summary string
	// Emotion is populated by triage only.
	Emotion *models.Emotion
	// Location carries extracted location text, geocode pending.
	Location *models.Location
	// Dispatch is populated by triage only.
	Dispatch *models.Dispatch
	// ResponderMessage is the advisory speech output for the caller.
	ResponderMessage string
	// Confidence is the agent's self-reported confidence in [0,1].
	Confidence float64
}

// Result is the union of agent outputs. Exactly one field is set,
// depending on the kind invoked.
type Result struct {
	Classification *models.Classification
	Report         *Report
}

// Invoker is the uniform agent invocation boundary. Implementations must be
// side-effect-free beyond returning their result, and must respect ctx.
type Invoker interface {
	Invoke(ctx context.Context, kind Kind, req Request) (*Result, error)
}

// Backend is the completion surface agents run on. *api.Client satisfies it.
type Backend interface {
	Complete(ctx context.Context, req api.CompleteRequest) (string, error)
}

// Models selects which model serves each agent.
type Models struct {
	Router string
	Triage string
	Info   string
}

// Set implements Invoker over a shared backend.
type Set struct {
	router *Router
	triage *Triage
	info   *Info
}

// NewSet builds the standard agent set.
func NewSet(backend Backend, m Models) *Set {
	return &Set{
		router: NewRouter(backend, m.Router),
		triage: NewTriage(backend, m.Triage),
		info:   NewInfo(backend, m.Info),
	}
}

// Invoke dispatches to the named agent.
func (s *Set) Invoke(ctx context.Context, kind Kind, req Request) (*Result, error) {
	switch kind {
	case KindRouter:
		c, err := s.router.Classify(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Result{Classification: c}, nil
	case KindTriage:
		r, err := s.triage.Analyze(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Result{Report: r}, nil
	case KindInfo:
		r, err := s.info.Process(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Result{Report: r}, nil
	default:
		return nil, fmt.Errorf("unknown agent kind %q", kind)
	}
}
