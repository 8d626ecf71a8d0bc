package model

// PlayerID is the connection/session identifier of a player.
// It is assigned by the transport and is stable for the life of a connection.
type PlayerID string

// Player represents a connected participant
type Player struct {
	SID   PlayerID `json:"sid"`
	Name  string   `json:"name"`
	Match *MatchID `json:"match"` // nil when not in a match
}

// NewPlayer creates an unnamed player with no match
func NewPlayer(sid PlayerID) *Player {
	return &Player{SID: sid}
}

// Is reports whether p and other are the same player.
// Only identity is compared: held copies are routinely stale.
func (p *Player) Is(other *Player) bool {
	if p == nil || other == nil {
		return false
	}
	return p.SID == other.SID
}

// InMatch returns true if the player holds a match reference
func (p *Player) InMatch() bool {
	return p.Match != nil
}

// MatchID returns the referenced match, or "" if none
func (p *Player) MatchID() MatchID {
	if p.Match == nil {
		return ""
	}
	return *p.Match
}

// JoinedMatch sets the player's match reference
func (p *Player) JoinedMatch(id MatchID) {
	p.Match = &id
}

// LeftMatch clears the player's match reference
func (p *Player) LeftMatch() {
	p.Match = nil
}

// Clone returns a deep copy of the player
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	c := *p
	if p.Match != nil {
		id := *p.Match
		c.Match = &id
	}
	return &c
}
