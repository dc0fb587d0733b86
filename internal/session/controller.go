package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ShayCichocki/beacon/internal/agents"
	"github.com/ShayCichocki/beacon/pkg/models"
)

// Sink receives incident record snapshots as they change. Implementations
// must not block: the publisher satisfies this with a clone-and-swap.
type Sink interface {
	Publish(rec *models.IncidentRecord)
}

// Archiver persists terminal snapshots. Optional.
type Archiver interface {
	SaveSnapshot(rec *models.IncidentRecord) error
}

// Controller owns one call session. All state transitions happen on the
// controller's run goroutine; transcript ingestion appends under the lock
// and never waits on agent work.
type Controller struct {
	callID  string
	cfg     Config
	invoker agents.Invoker
	sink    Sink
	archive Archiver

	mu             sync.Mutex
	state          State
	rec            *models.IncidentRecord
	classification *models.Classification
	reseq          *resequencer
	endRequested   bool
	lastActivity   time.Time

	// workCtx covers in-flight agent calls so a call-end signal can cancel
	// them without touching any other session.
	workCtx    context.Context
	cancelWork context.CancelFunc

	notify chan struct{}
	endCh  chan struct{}
	done   chan struct{}

	endOnce sync.Once
}

// NewController creates and starts a session controller for callID.
func NewController(callID string, cfg Config, invoker agents.Invoker, sink Sink, archive Archiver) *Controller {
	now := time.Now()
	workCtx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		callID:  callID,
		cfg:     cfg,
		invoker: invoker,
		sink:    sink,
		archive: archive,
		state:   StateRinging,
		rec: &models.IncidentRecord{
			CallID:    callID,
			Status:    models.StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		},
		reseq:        newResequencer(callID, cfg.ReorderWindow),
		lastActivity: now,
		workCtx:      workCtx,
		cancelWork:   cancel,
		notify:       make(chan struct{}, 1),
		endCh:        make(chan struct{}),
		done:         make(chan struct{}),
	}
	go c.run()
	return c
}

// CallID returns the call identifier.
func (c *Controller) CallID() string { return c.callID }

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a deep copy of the incident record.
func (c *Controller) Snapshot() *models.IncidentRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.Clone()
}

// LastActivity returns when the transport last touched this session.
func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// Done closes once the session reaches a terminal state and its final
// snapshot has been flushed.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Ingest appends one utterance. It resequences by Seq, never blocks on
// agent work, and is safe to call at high frequency from the transport
// goroutine. Input past a terminal state is dropped.
func (c *Controller) Ingest(u models.Utterance) {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	ready := c.reseq.push(u)
	c.lastActivity = time.Now()
	changed := len(ready) > 0
	for _, r := range ready {
		c.rec.Transcript = append(c.rec.Transcript, r)
	}
	if changed {
		c.rec.UpdatedAt = time.Now()
		if c.state == StateRinging && c.hasCallerSpeech() {
			c.setStateLocked(StateActive)
		}
	}
	snap := c.rec.Clone()
	c.mu.Unlock()

	if changed {
		c.sink.Publish(snap)
		c.wake()
	}
}

// End delivers the call-end signal. It cancels any in-flight agent call and
// forces the terminal flush. Safe to call more than once.
func (c *Controller) End() {
	c.endOnce.Do(func() {
		c.mu.Lock()
		c.endRequested = true
		c.mu.Unlock()
		c.cancelWork()
		close(c.endCh)
	})
}

// ResponderMessage returns the latest advisory speech output for the caller.
func (c *Controller) ResponderMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.ResponderMessage
}

func (c *Controller) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// run is the session task. Agent invocations are the only points where it
// waits; everything between them is a sequential state transition.
func (c *Controller) run() {
	defer close(c.done)

	for {
		select {
		case <-c.notify:
		case <-c.endCh:
		}

		if c.ended() {
			c.finish()
			return
		}

		if !c.shouldClassify() {
			continue
		}

		if terminal := c.classifyAndAnalyze(); terminal {
			c.finish()
			return
		}

		if c.ended() {
			c.finish()
			return
		}
	}
}

func (c *Controller) ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endRequested
}

func (c *Controller) hasCallerSpeech() bool {
	for _, u := range c.rec.Transcript {
		if u.Speaker == models.SpeakerCaller && strings.TrimSpace(u.Text) != "" {
			return true
		}
	}
	return false
}

// shouldClassify decides whether enough new caller content exists to invoke
// the router. The first classification waits for MinClassifyTokens; after
// that, only material new text (ReclassifyRunes) triggers another pass.
func (c *Controller) shouldClassify() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return false
	}
	if c.classification == nil {
		text := c.rec.CallerText(-1)
		return countTokens(text) >= c.cfg.MinClassifyTokens
	}

	fresh := c.newCallerTextLocked()
	return utf8.RuneCountInString(fresh) >= c.cfg.ReclassifyRunes
}

// newCallerTextLocked returns caller text past the classified window.
func (c *Controller) newCallerTextLocked() string {
	var b strings.Builder
	for _, u := range c.rec.Transcript {
		if u.Seq <= c.classification.WindowEndSeq || u.Speaker != models.SpeakerCaller {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(u.Text)
	}
	return b.String()
}

// classifyAndAnalyze runs one full ACTIVE → CLASSIFIED → ANALYZING → ACTIVE
// cycle. Returns true when the session reached a terminal disposition.
func (c *Controller) classifyAndAnalyze() bool {
	window := c.windowSnapshot()

	result, err := c.invokeWithRetry(agents.KindRouter, agents.Request{
		CallID: c.callID,
		Window: window,
	}, c.cfg.ClassifyTimeout)
	if err != nil {
		if c.ended() {
			return true
		}
		log.Printf("[session] call %s: classification failed permanently: %v", c.callID, err)
		c.mergeDegraded(err)
		return true
	}

	c.mu.Lock()
	c.classification = result.Classification
	c.rec.Severity = result.Classification.Severity
	c.rec.Confidence = result.Classification.Confidence
	c.rec.UpdatedAt = time.Now()
	c.setStateLocked(StateClassified)

	kind := agents.KindInfo
	if result.Classification.Severity == models.SeverityCritical {
		kind = agents.KindTriage
	}
	c.setStateLocked(StateAnalyzing)
	prior := c.classification
	snap := c.rec.Clone()
	c.mu.Unlock()
	c.sink.Publish(snap)

	analysis, err := c.invokeWithRetry(kind, agents.Request{
		CallID: c.callID,
		Window: window,
		Prior:  prior,
	}, c.cfg.AnalysisTimeout)
	if err != nil {
		if c.ended() {
			return true
		}
		log.Printf("[session] call %s: analysis failed permanently: %v", c.callID, err)
		c.mergeDegraded(err)
		return true
	}

	c.mergeReport(analysis.Report)

	// Utterances queued during analysis get exactly one re-evaluation on the
	// next loop iteration; shouldClassify applies the re-classification
	// heuristic to them.
	c.mu.Lock()
	c.setStateLocked(StateActive)
	c.mu.Unlock()
	c.wake()
	return false
}

// windowSnapshot copies the transcript for an agent invocation.
func (c *Controller) windowSnapshot() []models.Utterance {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Utterance(nil), c.rec.Transcript...)
}

// invokeWithRetry applies the retry policy: timeouts and unavailability are
// retried up to MaxRetries with doubling backoff; malformed output is
// permanent for the window, since replaying the identical input would
// likely reproduce it.
func (c *Controller) invokeWithRetry(kind agents.Kind, req agents.Request, timeout time.Duration) (*agents.Result, error) {
	backoff := c.cfg.RetryBackoff
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[session] call %s: retrying %s (attempt %d/%d)",
				c.callID, kind, attempt, c.cfg.MaxRetries)
			select {
			case <-time.After(backoff):
			case <-c.workCtx.Done():
				return nil, c.workCtx.Err()
			}
			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(c.workCtx, timeout)
		result, err := c.invoker.Invoke(ctx, kind, req)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err

		c.recordError(err)

		ae := agents.AsAgentError(err)
		if ae != nil && !ae.Retryable() {
			return nil, err
		}
		if c.workCtx.Err() != nil {
			return nil, c.workCtx.Err()
		}
	}

	return nil, fmt.Errorf("retries exhausted for %s: %w", kind, lastErr)
}

// recordError annotates the record for observability. Raw errors never reach
// the read path as faults; they ride along as annotations.
func (c *Controller) recordError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec.Errors = append(c.rec.Errors, err.Error())
	c.rec.UpdatedAt = time.Now()
}

// mergeReport folds an analysis result into the record.
func (c *Controller) mergeReport(report *agents.Report) {
	c.mu.Lock()
	c.rec.CallType = report.CallType
	c.rec.Summary = report.Summary
	if report.Emotion != nil {
		c.rec.Emotion = report.Emotion
	}
	if report.Location != nil {
		c.rec.Location = report.Location
	}
	if report.Dispatch != nil {
		c.rec.Dispatch = report.Dispatch
	}
	if report.ResponderMessage != "" {
		c.rec.ResponderMessage = report.ResponderMessage
	}
	c.rec.UpdatedAt = time.Now()
	snap := c.rec.Clone()
	c.mu.Unlock()
	c.sink.Publish(snap)
}

// mergeDegraded applies the fail-toward-caution fallback after retries
// exhaust: severity is never lowered, and an unclassified call defaults to
// the most conservative label.
func (c *Controller) mergeDegraded(cause error) {
	c.mu.Lock()
	c.recoverHeldLocked()
	if c.classification == nil {
		c.rec.Severity = models.SeverityCritical
	} else {
		c.rec.Severity = models.MoreSevere(c.rec.Severity, c.classification.Severity)
	}
	c.rec.Degraded = true
	c.rec.Status = models.StatusDegraded
	c.rec.UpdatedAt = time.Now()
	sev := c.rec.Severity
	c.setStateLocked(StateComplete)
	c.mu.Unlock()

	log.Printf("[session] call %s: degraded completion (severity %s): %v",
		c.callID, sev, cause)
	c.flush()
}

// finish handles the call-end path: terminal status selection and flush.
func (c *Controller) finish() {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	c.recoverHeldLocked()
	if c.rec.Status == models.StatusActive {
		if c.classification == nil {
			c.rec.Status = models.StatusIncomplete
		} else {
			c.rec.Status = models.StatusComplete
		}
	}
	c.rec.UpdatedAt = time.Now()
	c.setStateLocked(StateComplete)
	c.mu.Unlock()
	c.flush()
}

// recoverHeldLocked drains utterances still buffered behind an unfilled
// sequence gap into the transcript. Gap-blocked speech is better appended
// late than lost with the session.
func (c *Controller) recoverHeldLocked() {
	held := c.reseq.flush()
	if len(held) == 0 {
		return
	}
	log.Printf("[session] call %s: recovering %d utterances held behind a sequence gap",
		c.callID, len(held))
	c.rec.Transcript = append(c.rec.Transcript, held...)
}

// flush publishes the terminal snapshot and persists it to the archive.
// Runs exactly once per session, before Done closes.
func (c *Controller) flush() {
	snap := c.Snapshot()
	c.sink.Publish(snap)
	if c.archive != nil {
		if err := c.archive.SaveSnapshot(snap); err != nil {
			log.Printf("[session] call %s: archiving terminal snapshot: %v", c.callID, err)
		}
	}
}

func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	log.Printf("[session] call %s: %s -> %s", c.callID, c.state, s)
	c.state = s
}

// countTokens is the whitespace token count used for the classify threshold.
func countTokens(s string) int {
	return len(strings.Fields(s))
}
