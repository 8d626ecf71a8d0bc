package model

// MatchID is the client-supplied name of a match
type MatchID string

// DefaultMaxScore is the score a match is played to
const DefaultMaxScore = 3

// Side identifies one of the two slots of a match
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Match pairs at most two players.
// Occupants are embedded player records, mirroring the persisted layout.
type Match struct {
	ID       MatchID `json:"id"`
	Left     *Player `json:"left_player"`
	Right    *Player `json:"right_player"`
	MaxScore int     `json:"max_score"`
}

// NewMatch creates an empty match with the default max score
func NewMatch(id MatchID) *Match {
	return &Match{
		ID:       id,
		MaxScore: DefaultMaxScore,
	}
}

// Is reports whether m and other are the same match (by ID only)
func (m *Match) Is(other *Match) bool {
	if m == nil || other == nil {
		return false
	}
	return m.ID == other.ID
}

// Occupant returns the player in the given slot, or nil
func (m *Match) Occupant(side Side) *Player {
	switch side {
	case SideLeft:
		return m.Left
	case SideRight:
		return m.Right
	default:
		return nil
	}
}

// SideOf returns the slot held by the given player
func (m *Match) SideOf(id PlayerID) (Side, bool) {
	switch {
	case m.Left != nil && m.Left.SID == id:
		return SideLeft, true
	case m.Right != nil && m.Right.SID == id:
		return SideRight, true
	default:
		return "", false
	}
}

// Other returns whichever occupant is not the given player, or nil
func (m *Match) Other(id PlayerID) *Player {
	side, ok := m.SideOf(id)
	if !ok {
		return nil
	}
	if side == SideLeft {
		return m.Right
	}
	return m.Left
}

// Seat places the player in the left slot, else the right slot.
// Returns ErrMatchFull and leaves the match untouched when both are taken.
func (m *Match) Seat(p *Player) (Side, error) {
	if side, ok := m.SideOf(p.SID); ok {
		return side, nil
	}
	switch {
	case m.Left == nil:
		m.Left = p
		return SideLeft, nil
	case m.Right == nil:
		m.Right = p
		return SideRight, nil
	default:
		return "", ErrMatchFull
	}
}

// Vacate clears whichever slot holds the given player.
// Returns false if the player was not an occupant.
func (m *Match) Vacate(id PlayerID) bool {
	side, ok := m.SideOf(id)
	if !ok {
		return false
	}
	if side == SideLeft {
		m.Left = nil
	} else {
		m.Right = nil
	}
	return true
}

// OccupantCount returns 0, 1 or 2
func (m *Match) OccupantCount() int {
	n := 0
	if m.Left != nil {
		n++
	}
	if m.Right != nil {
		n++
	}
	return n
}

// IsEmpty returns true if neither slot is occupied
func (m *Match) IsEmpty() bool {
	return m.OccupantCount() == 0
}

// Occupants returns present occupants in left-then-right order
func (m *Match) Occupants() []*Player {
	occupants := make([]*Player, 0, 2)
	if m.Left != nil {
		occupants = append(occupants, m.Left)
	}
	if m.Right != nil {
		occupants = append(occupants, m.Right)
	}
	return occupants
}

// OccupantNames returns occupant display names in left-then-right order
func (m *Match) OccupantNames() []string {
	names := make([]string, 0, 2)
	for _, p := range m.Occupants() {
		names = append(names, p.Name)
	}
	return names
}

// Summary reduces the match to its directory entry
func (m *Match) Summary() MatchSummary {
	return MatchSummary{
		Match:   m.ID,
		Players: m.OccupantNames(),
	}
}

// Clone returns a deep copy of the match
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	c.Left = m.Left.Clone()
	c.Right = m.Right.Clone()
	return &c
}

// MatchSummary is a directory entry for an open match
type MatchSummary struct {
	Match   MatchID  `json:"match"`
	Players []string `json:"players"`
}
