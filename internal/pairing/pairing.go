// Package pairing picks a group of four from a fairness-ordered queue and
// splits it into two balanced pairs.  It is pure: callers pass the queue
// and get a suggestion back, nothing is persisted.
package pairing

import "errors"

// GroupSize is the number of players in a doubles match.
const GroupSize = 4

// ErrInsufficientPlayers is returned when fewer than four candidates are
// available.
var ErrInsufficientPlayers = errors.New("fewer than four players waiting")

// Candidate is one waiting player as seen by the pairing engine.  Wait is
// the current wait in minutes and Score the level score.
type Candidate struct {
	ID    string
	Wait  int
	Score int
}

// Pair is two players on the same side of the net.
type Pair [2]Candidate

// Score is the combined level score of the pair.
func (p Pair) Score() int {
	return p[0].Score + p[1].Score
}

// Group is a suggested match: Pair1 takes positions 0 and 1, Pair2 takes
// 2 and 3.
type Group struct {
	Pair1      Pair
	Pair2      Pair
	Difference int
}

// Players returns the four players in position order.
func (g Group) Players() [GroupSize]Candidate {
	return [GroupSize]Candidate{g.Pair1[0], g.Pair1[1], g.Pair2[0], g.Pair2[1]}
}

// PoolSize resolves the candidate pool size for a request.  requested <= 0
// means "use the default", which is four per court.  The result is clamped
// to [4, waiting].
func PoolSize(requested, courts, waiting int) int {
	n := requested
	if n <= 0 {
		n = GroupSize * courts
	}
	if n > waiting {
		n = waiting
	}
	if n < GroupSize {
		n = GroupSize
	}
	return n
}

// Suggest picks four players from queue, which must already be in
// fairness order (longest wait first), and pairs them.
//
// Only the first topCount entries are considered.  Players that waited
// strictly longer than the fourth-ranked player are always in.  The
// remaining seats go to players tied with the fourth-ranked wait; when
// that tie band has more members than seats, the subset with the smallest
// pair difference wins, earlier queue positions breaking ties.  Without
// ties this is simply the first four.
func Suggest(queue []Candidate, topCount int) (Group, error) {
	if len(queue) < GroupSize {
		return Group{}, ErrInsufficientPlayers
	}
	if topCount < GroupSize {
		topCount = GroupSize
	}
	if topCount > len(queue) {
		topCount = len(queue)
	}
	pool := queue[:topCount]

	cutoff := pool[GroupSize-1].Wait
	var locked, band []Candidate
	for _, c := range pool {
		switch {
		case c.Wait > cutoff:
			locked = append(locked, c)
		case c.Wait == cutoff:
			band = append(band, c)
		}
	}
	seats := GroupSize - len(locked)

	var (
		best  Group
		found bool
	)
	chosen := make([]Candidate, 0, GroupSize)
	chooseBand(band, seats, 0, &chosen, func(pick []Candidate) {
		four := append(append(make([]Candidate, 0, GroupSize), locked...), pick...)
		g := Balance([GroupSize]Candidate{four[0], four[1], four[2], four[3]})
		if !found || g.Difference < best.Difference {
			best, found = g, true
		}
	})
	return best, nil
}

// chooseBand calls visit with every k-subset of band in lexicographic
// index order.
func chooseBand(band []Candidate, k, start int, chosen *[]Candidate, visit func([]Candidate)) {
	if len(*chosen) == k {
		visit(*chosen)
		return
	}
	for i := start; i <= len(band)-(k-len(*chosen)); i++ {
		*chosen = append(*chosen, band[i])
		chooseBand(band, k, i+1, chosen, visit)
		*chosen = (*chosen)[:len(*chosen)-1]
	}
}

// Balance splits four players into the two pairs with the smallest score
// difference.  The three possible splits are tried in the order
// {ab|cd}, {ac|bd}, {ad|bc}; the first one with the minimum difference is
// returned, so Pair1 always contains the first player.
func Balance(four [GroupSize]Candidate) Group {
	a, b, c, d := four[0], four[1], four[2], four[3]
	splits := [3]Group{
		{Pair1: Pair{a, b}, Pair2: Pair{c, d}},
		{Pair1: Pair{a, c}, Pair2: Pair{b, d}},
		{Pair1: Pair{a, d}, Pair2: Pair{b, c}},
	}
	best := -1
	for i := range splits {
		splits[i].Difference = abs(splits[i].Pair1.Score() - splits[i].Pair2.Score())
		if best < 0 || splits[i].Difference < splits[best].Difference {
			best = i
		}
	}
	return splits[best]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
