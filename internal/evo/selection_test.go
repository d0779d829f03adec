package evo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankBiasedSelectorFavoursTopRanks(t *testing.T) {
	selector := RankBiasedSelector{PExp: 0.7}
	require.NoError(t, selector.Validate())

	rng := rand.New(rand.NewSource(42))
	const n = 20
	counts := make([]int, n)
	for i := 0; i < 5000; i++ {
		idx := selector.SelectIndex(rng, n)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, n)
		counts[idx]++
	}
	assert.Greater(t, counts[0], counts[1])
	assert.Greater(t, counts[1], counts[3])
	// P(index 0) = 1 - pexp.
	assert.InDelta(t, 0.3, float64(counts[0])/5000, 0.03)
}

func TestRankBiasedSelectorClampsExtremeDraws(t *testing.T) {
	assert.Equal(t, 0, clampIndex(math.Log(math.Nextafter(1, 0))/math.Log(0.7), 10))
	assert.Equal(t, 9, clampIndex(math.Log(math.SmallestNonzeroFloat64)/math.Log(0.7), 10))
	assert.Equal(t, 9, clampIndex(math.Inf(1), 10))
	assert.Equal(t, 0, clampIndex(math.NaN(), 10))
	assert.Equal(t, 0, clampIndex(-3, 10))
	assert.Equal(t, 4, clampIndex(4.99, 10))

	selector := RankBiasedSelector{PExp: 0.999}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		idx := selector.SelectIndex(rng, 3)
		assert.True(t, idx >= 0 && idx <= 2)
	}
	assert.Equal(t, 0, selector.SelectIndex(rng, 1))
	assert.Equal(t, 0, selector.SelectIndex(rng, 0))
}

func TestRankBiasedSelectorValidate(t *testing.T) {
	for _, pexp := range []float64{0, 1, -0.2, 1.5, math.NaN()} {
		assert.ErrorIs(t, RankBiasedSelector{PExp: pexp}.Validate(), ErrContractViolation, "pexp=%v", pexp)
	}
}

func TestTournamentAndUniformSelectorsStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tournament := TournamentSelector{Size: 4}
	uniform := UniformSelector{}
	tournamentTotal, uniformTotal := 0, 0
	for i := 0; i < 2000; i++ {
		a := tournament.SelectIndex(rng, 10)
		b := uniform.SelectIndex(rng, 10)
		require.True(t, a >= 0 && a < 10)
		require.True(t, b >= 0 && b < 10)
		tournamentTotal += a
		uniformTotal += b
	}
	assert.Less(t, tournamentTotal, uniformTotal)
}

func TestSelectorByName(t *testing.T) {
	s, err := SelectorByName("", 0.7, 0)
	require.NoError(t, err)
	assert.Equal(t, "rank_biased", s.Name())

	s, err = SelectorByName("tournament", 0.7, 5)
	require.NoError(t, err)
	assert.Equal(t, TournamentSelector{Size: 5}, s)

	s, err = SelectorByName("uniform", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "uniform", s.Name())

	_, err = SelectorByName("rank_biased", 1.2, 0)
	assert.ErrorIs(t, err, ErrContractViolation)
	_, err = SelectorByName("roulette", 0.7, 0)
	assert.Error(t, err)
}
