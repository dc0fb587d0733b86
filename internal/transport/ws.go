package transport

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ShayCichocki/beacon/pkg/models"
)

const (
	maxMessageBytes = 1 << 20
	readIdleTimeout = 10 * time.Minute
)

// Fallback speech when no analysis has produced an advisory yet.
const defaultResponderMessage = "I understand. Emergency services are being notified. Can you provide more details about your location?"

// reminderMessage nudges a silent caller.
const reminderMessage = "Are you still there? Please describe your emergency."

// callFeed assigns sequence numbers for one connection. The gateway resends
// its full transcript on every message; seenTurns marks the already-ingested
// prefix so each turn is ingested exactly once. Locally spoken dispatcher
// lines share the same sequence space.
type callFeed struct {
	ctrl      sessionHandle
	nextSeq   int64
	seenTurns int
}

// ingestTurns feeds transcript turns past the seen prefix into the session.
func (f *callFeed) ingestTurns(turns []turn) {
	for i := f.seenTurns; i < len(turns); i++ {
		text := strings.TrimSpace(turns[i].Content)
		if text == "" {
			continue
		}
		speaker := models.SpeakerCaller
		if turns[i].Role == "agent" {
			speaker = models.SpeakerSystem
		}
		f.ctrl.Ingest(models.Utterance{
			Speaker:   speaker,
			Text:      text,
			Seq:       f.nextSeq,
			Timestamp: time.Now(),
		})
		f.nextSeq++
	}
	if len(turns) > f.seenTurns {
		f.seenTurns = len(turns)
	}
}

// ingestSpoken records a dispatcher line the transport just sent.
func (f *callFeed) ingestSpoken(text string) {
	f.ctrl.Ingest(models.Utterance{
		Speaker:   models.SpeakerSystem,
		Text:      text,
		Seq:       f.nextSeq,
		Timestamp: time.Now(),
	})
	f.nextSeq++
}

// handleCallSocket serves one call's websocket.
func (s *Server) handleCallSocket(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("call_id")
	if callID == "" {
		http.Error(w, "missing call id", http.StatusBadRequest)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[transport] call %s: upgrade failed: %v", callID, err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	log.Printf("[transport] call %s: connected", callID)
	ctrl := s.sessions.GetOrCreate(callID)
	defer ctrl.End()
	feed := &callFeed{ctrl: ctrl}

	// The dispatcher speaks first.
	if err := s.writeResponse(conn, 0, s.greeting); err != nil {
		log.Printf("[transport] call %s: sending greeting: %v", callID, err)
		return
	}
	feed.ingestSpoken(s.greeting)

	for {
		conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[transport] call %s: disconnected", callID)
			} else {
				log.Printf("[transport] call %s: read error: %v", callID, err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("[transport] call %s: bad message: %v", callID, err)
			continue
		}

		feed.ingestTurns(msg.Transcript)

		switch msg.InteractionType {
		case interactionUpdateOnly:
			// Transcript already folded in; nothing to say.

		case interactionResponseRequired:
			content := ctrl.ResponderMessage()
			if strings.TrimSpace(content) == "" {
				content = defaultResponderMessage
			}
			if err := s.writeResponse(conn, msg.ResponseID, content); err != nil {
				log.Printf("[transport] call %s: write error: %v", callID, err)
				return
			}
			feed.ingestSpoken(content)

		case interactionReminderRequired:
			if err := s.writeResponse(conn, msg.ResponseID, reminderMessage); err != nil {
				log.Printf("[transport] call %s: write error: %v", callID, err)
				return
			}

		case interactionPingPong:
			pong, err := json.Marshal(pongResponse{ResponseType: interactionPingPong, Timestamp: msg.Timestamp})
			if err == nil {
				err = conn.WriteMessage(websocket.TextMessage, pong)
			}
			if err != nil {
				log.Printf("[transport] call %s: keepalive write error: %v", callID, err)
				return
			}

		case interactionCallEnded:
			log.Printf("[transport] call %s: gateway reported call end", callID)
			return

		default:
			log.Printf("[transport] call %s: unknown interaction type %q", callID, msg.InteractionType)
		}
	}
}

func (s *Server) writeResponse(conn *websocket.Conn, responseID int, content string) error {
	payload, err := marshalResponse(responseID, content)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}
