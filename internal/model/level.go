package model

import (
	"fmt"
	"strings"
)

// Level is a player's skill tier.  There are eight tiers, ordered from the
// least to the most experienced player.
type Level string

const (
	LevelBeginner          Level = "BEGINNER"
	LevelNovice            Level = "NOVICE"
	LevelLowerIntermediate Level = "LOWER_INTERMEDIATE"
	LevelIntermediate      Level = "INTERMEDIATE"
	LevelUpperIntermediate Level = "UPPER_INTERMEDIATE"
	LevelAdvanced          Level = "ADVANCED"
	LevelExpert            Level = "EXPERT"
	LevelElite             Level = "ELITE"
)

// Levels lists every tier in ascending skill order.
var Levels = []Level{
	LevelBeginner,
	LevelNovice,
	LevelLowerIntermediate,
	LevelIntermediate,
	LevelUpperIntermediate,
	LevelAdvanced,
	LevelExpert,
	LevelElite,
}

var levelScores = func() map[Level]int {
	m := make(map[Level]int, len(Levels))
	for i, l := range Levels {
		m[l] = (i + 1) * 10
	}
	return m
}()

// Score maps a tier to its balance score.  Scores grow strictly with the
// tier, so summing them gives a comparable strength for a pair.  An unknown
// level scores 0; callers are expected to validate with ParseLevel first.
func (l Level) Score() int {
	return levelScores[l]
}

// Valid reports whether l is one of the eight known tiers.
func (l Level) Valid() bool {
	_, ok := levelScores[l]
	return ok
}

// ParseLevel normalises raw input (case and surrounding spaces) and
// returns the matching tier.
func ParseLevel(raw string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(raw)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown level %q", raw)
	}
	return l, nil
}
