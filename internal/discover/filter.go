package discover

import "gameboxr/pkg/models"

// JudgedSet holds the ids of games a user already rated or wishlisted
type JudgedSet map[int64]struct{}

// NewJudgedSet builds a set from stored game ids
func NewJudgedSet(ids []int64) JudgedSet {
	set := make(JudgedSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether id is judged
func (s JudgedSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// Exclude drops every game whose id is in judged, keeping the order of the rest.
// An empty set returns games unchanged.
func Exclude(games []models.GameSummary, judged JudgedSet) []models.GameSummary {
	if len(judged) == 0 {
		return games
	}
	kept := make([]models.GameSummary, 0, len(games))
	for _, g := range games {
		if !judged.Contains(g.GameID) {
			kept = append(kept, g)
		}
	}
	return kept
}
