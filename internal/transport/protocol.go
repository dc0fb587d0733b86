// Package transport exposes Beacon over the wire: a websocket endpoint
// speaking the telephony gateway's custom-LLM protocol, and a small JSON
// read API for dashboards. The transport owns utterance sequencing; the
// session layer never sees connection state.
package transport

import "encoding/json"

// Interaction types sent by the telephony gateway.
const (
	interactionUpdateOnly       = "update_only"
	interactionResponseRequired = "response_required"
	interactionReminderRequired = "reminder_required"
	interactionCallEnded        = "call_ended"
	interactionPingPong         = "ping_pong"
)

// turn is one entry in the gateway's running transcript.
type turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// inboundMessage is what the gateway sends over the websocket.
type inboundMessage struct {
	InteractionType string `json:"interaction_type"`
	ResponseID      int    `json:"response_id"`
	Transcript      []turn `json:"transcript,omitempty"`
	Timestamp       int64  `json:"timestamp,omitempty"`
}

// outboundResponse is the speech payload sent back to the gateway.
type outboundResponse struct {
	ResponseID      int    `json:"response_id"`
	Content         string `json:"content"`
	ContentComplete bool   `json:"content_complete"`
	EndCall         bool   `json:"end_call"`
}

// pongResponse answers the gateway's keepalive.
type pongResponse struct {
	ResponseType string `json:"response_type"`
	Timestamp    int64  `json:"timestamp"`
}

func marshalResponse(responseID int, content string) ([]byte, error) {
	return json.Marshal(outboundResponse{
		ResponseID:      responseID,
		Content:         content,
		ContentComplete: true,
	})
}
