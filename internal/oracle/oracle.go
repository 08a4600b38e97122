// Package oracle chooses a seeker's Path from their first two sacrifices.
//
// The choice is keyword scoring with no model behind it: the same two texts
// always produce the same Path.
package oracle

import "strings"

type Path string

const (
	Witch     Path = "Witch"
	FortyToes Path = "Forty Toes"
	Fracture  Path = "Fracture"
)

// Valid reports whether p is one of the three known paths.
func (p Path) Valid() bool {
	switch p {
	case Witch, FortyToes, Fracture:
		return true
	}
	return false
}

var (
	witchKeys     = []string{"ritual", "symbol", "dream", "myth", "sigil", "intuition", "divination", "poetry", "pattern", "craft"}
	fortyToesKeys = []string{"schedule", "budget", "rep", "sleep", "nutrition", "practice", "mileage", "discipline", "weekly"}
	fractureKeys  = []string{"stuck", "block", "fear", "comfort", "avoid", "procrast", "perfection", "control", "anxiety"}
)

const fractureWeight = 2

// Scores holds the weighted keyword score of each path.
type Scores struct {
	Witch     int
	FortyToes int
	Fracture  int
}

// Score counts each keyword at most once. Matching is by substring, so "rep"
// also fires on "report".
func Score(first, second string) Scores {
	corpus := strings.ToLower(first + "\n" + second)
	return Scores{
		Witch:     matches(corpus, witchKeys),
		FortyToes: matches(corpus, fortyToesKeys),
		Fracture:  matches(corpus, fractureKeys) * fractureWeight,
	}
}

// Classify returns the path with the strictly highest score. When all three
// scores are equal the seeker is sent to Fracture; a two-way tie at the top
// goes to the earlier of Witch, Fracture, Forty Toes.
func Classify(first, second string) Path {
	return Score(first, second).Best()
}

func (s Scores) Best() Path {
	if s.Witch == s.FortyToes && s.FortyToes == s.Fracture {
		return Fracture
	}
	best, top := Witch, s.Witch
	if s.Fracture > top {
		best, top = Fracture, s.Fracture
	}
	if s.FortyToes > top {
		best = FortyToes
	}
	return best
}

func matches(corpus string, keys []string) int {
	n := 0
	for _, k := range keys {
		if strings.Contains(corpus, k) {
			n++
		}
	}
	return n
}
