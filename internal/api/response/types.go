package response

import "github.com/mcoot/balltoss/internal/model"

// Match is a directory entry in API responses
type Match struct {
	Match   string   `json:"match"`
	Players []string `json:"players"`
}

// MatchFromModel converts a model.MatchSummary
func MatchFromModel(s model.MatchSummary) Match {
	players := s.Players
	if players == nil {
		players = []string{}
	}
	return Match{
		Match:   string(s.Match),
		Players: players,
	}
}

// MatchesFromModel converts a list of summaries, never returning nil
func MatchesFromModel(summaries []model.MatchSummary) []Match {
	matches := make([]Match, 0, len(summaries))
	for _, s := range summaries {
		matches = append(matches, MatchFromModel(s))
	}
	return matches
}
