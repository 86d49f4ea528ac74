package pairing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cands(waits, scores []int) []Candidate {
	out := make([]Candidate, len(waits))
	for i := range waits {
		out[i] = Candidate{ID: string(rune('a' + i)), Wait: waits[i], Score: scores[i]}
	}
	return out
}

func ids(g Group) []string {
	var out []string
	for _, c := range g.Players() {
		out = append(out, c.ID)
	}
	return out
}

func TestBalancePicksMinimalDifference(t *testing.T) {
	four := cands([]int{0, 0, 0, 0}, []int{80, 70, 20, 10})
	g := Balance([GroupSize]Candidate{four[0], four[1], four[2], four[3]})

	assert.Equal(t, 0, g.Difference)
	assert.Equal(t, []string{"a", "d", "b", "c"}, ids(g))
}

func TestBalanceIsOptimalOverAllSplits(t *testing.T) {
	four := cands([]int{0, 0, 0, 0}, []int{60, 30, 50, 10})
	g := Balance([GroupSize]Candidate{four[0], four[1], four[2], four[3]})

	// {ab|cd}=90/60, {ac|bd}=110/40, {ad|bc}=70/80
	assert.Equal(t, 10, g.Difference)
	assert.Equal(t, "a", g.Pair1[0].ID)
	assert.Equal(t, "d", g.Pair1[1].ID)
}

func TestBalanceTieKeepsFirstSplit(t *testing.T) {
	four := cands([]int{0, 0, 0, 0}, []int{40, 40, 40, 40})
	g := Balance([GroupSize]Candidate{four[0], four[1], four[2], four[3]})

	assert.Equal(t, 0, g.Difference)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(g))
}

func TestSuggestFairnessBeforeBalance(t *testing.T) {
	// The fifth player would balance the group perfectly but waited least.
	queue := cands([]int{30, 25, 20, 15, 10}, []int{80, 10, 10, 10, 80})

	g, err := Suggest(queue, 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, ids(g))
	assert.Equal(t, 70, g.Difference)
}

func TestSuggestTieBandPrefersBalance(t *testing.T) {
	queue := cands([]int{10, 10, 10, 10, 10}, []int{80, 10, 10, 10, 80})

	g, err := Suggest(queue, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, g.Difference)
	assert.Equal(t, []string{"a", "b", "c", "e"}, ids(g))
}

func TestSuggestTieBandKeepsLongerWaitersLocked(t *testing.T) {
	queue := cands([]int{20, 10, 10, 10, 10}, []int{10, 80, 10, 80, 10})

	g, err := Suggest(queue, 5)
	require.NoError(t, err)
	assert.Contains(t, ids(g), "a")
	assert.Equal(t, 0, g.Difference)
}

func TestSuggestRespectsTopCount(t *testing.T) {
	queue := cands([]int{10, 10, 10, 10, 10}, []int{80, 10, 10, 10, 80})

	g, err := Suggest(queue, 4)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, ids(g))
}

// Players tied with the 4th-ranked wait are equally fair picks, so a
// wider pool may swap one tied player for another to improve balance.
// A strictly longer waiter is never swapped out.
func TestSuggestTopCountUnderTies(t *testing.T) {
	queue := cands([]int{30, 20, 20, 20, 20}, []int{10, 80, 10, 10, 80})

	four, err := Suggest(queue, 4)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, ids(four))
	assert.Equal(t, 70, four.Difference)

	five, err := Suggest(queue, 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c", "e"}, ids(five))
	assert.Equal(t, 0, five.Difference)

	for _, g := range []Group{four, five} {
		assert.Contains(t, ids(g), "a")
		for _, c := range g.Players() {
			assert.GreaterOrEqual(t, c.Wait, 20)
		}
	}
}

func TestSuggestInsufficientPlayers(t *testing.T) {
	_, err := Suggest(cands([]int{3, 2, 1}, []int{10, 10, 10}), 4)
	assert.ErrorIs(t, err, ErrInsufficientPlayers)
}

func TestPoolSize(t *testing.T) {
	tests := []struct {
		requested, courts, waiting, want int
	}{
		{0, 2, 10, 8},
		{0, 3, 5, 5},
		{2, 3, 10, 4},
		{20, 3, 10, 10},
		{6, 1, 10, 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PoolSize(tt.requested, tt.courts, tt.waiting), "%+v", tt)
	}
}
