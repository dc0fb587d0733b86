package session

import (
	"log"
	"sort"

	"github.com/ShayCichocki/beacon/pkg/models"
)

// resequencer restores strict sequence order for utterances that the
// transport may deliver out of order. Regressions and anything beyond the
// buffering window are dropped and logged; they are never a session failure.
// Anything still held when the call ends is flushed into the transcript.
type resequencer struct {
	callID string
	next   int64
	window int64
	held   map[int64]models.Utterance
}

func newResequencer(callID string, window int) *resequencer {
	if window < 1 {
		window = 1
	}
	return &resequencer{
		callID: callID,
		window: int64(window),
		held:   make(map[int64]models.Utterance),
	}
}

// push accepts one utterance and returns every utterance that is now ready
// to append, in sequence order.
func (r *resequencer) push(u models.Utterance) []models.Utterance {
	if u.Seq < r.next {
		log.Printf("[session] call %s: dropping out-of-order utterance seq=%d (next expected %d)",
			r.callID, u.Seq, r.next)
		return nil
	}
	if u.Seq >= r.next+r.window {
		log.Printf("[session] call %s: dropping utterance seq=%d beyond reorder window (next expected %d, window %d)",
			r.callID, u.Seq, r.next, r.window)
		return nil
	}
	if _, dup := r.held[u.Seq]; dup {
		return nil
	}
	r.held[u.Seq] = u

	var ready []models.Utterance
	for {
		next, ok := r.held[r.next]
		if !ok {
			break
		}
		delete(r.held, r.next)
		ready = append(ready, next)
		r.next++
	}
	return ready
}

// flush returns every held utterance in sequence order and empties the
// buffer. Called at call end so speech stuck behind an unfilled gap still
// reaches the transcript.
func (r *resequencer) flush() []models.Utterance {
	if len(r.held) == 0 {
		return nil
	}
	seqs := make([]int64, 0, len(r.held))
	for seq := range r.held {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	out := make([]models.Utterance, 0, len(seqs))
	for _, seq := range seqs {
		out = append(out, r.held[seq])
		delete(r.held, seq)
	}
	if last := out[len(out)-1].Seq; last >= r.next {
		r.next = last + 1
	}
	return out
}

// pending returns how many utterances are buffered waiting for a gap to fill.
func (r *resequencer) pending() int {
	return len(r.held)
}
