package model

import "encoding/json"

// EventType identifies an inbound or outbound event on the wire
type EventType string

// Inbound events (client -> server)
const (
	EventConnect     EventType = "CONNECT"
	EventDisconnect  EventType = "DISCONNECT"
	EventBallThrown  EventType = "BALL_THROWN"
	EventBallLost    EventType = "BALL_LOST"
	EventBallCrossed EventType = "BALL_CROSSED"
	EventJoinMatch   EventType = "JOIN_MATCH"
	EventSetName     EventType = "SET_NAME"
	EventGetMatches  EventType = "GET_MATCHES"
	EventEndMatch    EventType = "END_MATCH"
	EventLeaveMatch  EventType = "LEAVE_MATCH"
)

// Outbound events (server -> client). Relay events reuse the inbound names.
const (
	EventMatchUpdate EventType = "MATCH_UPDATE"
	EventConnected   EventType = "CONNECTED"
)

// AckReply is the reply value for acknowledged requests
const AckReply = "ACK"

// Notification is a server-initiated message to a single connection
type Notification struct {
	Type    EventType
	Payload any // nil for zero-payload events
}

// MatchUpdatePayload is sent to each occupant whenever match population changes
type MatchUpdatePayload struct {
	Position Side    `json:"position"`
	Players  int     `json:"players"`
	Other    *string `json:"other"` // nil when the other slot is empty
	MaxScore int     `json:"maxScore"`
}

// ConnectedPayload tells a new connection its session id
type ConnectedPayload struct {
	SID PlayerID `json:"sid"`
}

// BallCrossedPayload is opaque: forwarded byte-for-byte to the peer
type BallCrossedPayload = json.RawMessage

// IsRelay returns true for gameplay events that are forwarded to the peer
func (t EventType) IsRelay() bool {
	switch t {
	case EventBallThrown, EventBallLost, EventBallCrossed:
		return true
	default:
		return false
	}
}
