package statistics

import (
	"testing"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestPropagate_EmptyRatio(t *testing.T) {
	gs := ldbcStatistics(t)

	out, err := PropagateOut(startStatistics(), gs)
	require.NoError(t, err)

	assert.InDelta(t, 5500.0, out.Get("post"), eps)
	assert.InDelta(t, 1000.0, out.Get("person"), eps)
	assert.InDelta(t, 5500.0, out.Get("comment"), eps)
	assert.Equal(t, 3, out.Len())
}

func TestPropagate_KnowsOnly(t *testing.T) {
	gs := ldbcStatistics(t)

	out, err := PropagateOut(startStatistics(), gs, "knows")
	require.NoError(t, err)

	assert.InDelta(t, 1000.0, out.Get("person"), eps)
	assert.False(t, out.Has("post"))
	assert.False(t, out.Has("comment"))
}

func TestPropagate_In(t *testing.T) {
	gs := ldbcStatistics(t)

	in, err := PropagateIn(startStatistics(), gs)
	require.NoError(t, err)

	// person <-knows- person: 10 * 100; post <-create- person: 100 * 5.5
	assert.InDelta(t, 1550.0, in.Get("person"), eps)
	// post <-reply- comment: 100 * 2e6/1e6
	assert.InDelta(t, 200.0, in.Get("comment"), eps)
	assert.False(t, in.Has("post"))
}

func TestPropagate_LinearInInputCount(t *testing.T) {
	gs := ldbcStatistics(t)

	for _, dir := range []Direction{DirectionOut, DirectionIn, DirectionBoth} {
		for _, filter := range [][]string{nil, {"knows"}, {"create", "reply"}} {
			base, err := Propagate(startStatistics(), gs, dir, filter)
			require.NoError(t, err)

			for _, k := range []float64{0.5, 3, 1000} {
				scaled, err := Propagate(startStatistics().Scale(k), gs, dir, filter)
				require.NoError(t, err)
				assert.True(t, scaled.Equal(base.Scale(k), eps),
					"dir=%s filter=%v k=%v: %s vs %s", dir, filter, k, scaled, base.Scale(k))
			}
		}
	}
}

func TestPropagate_BothIsOutPlusIn(t *testing.T) {
	gs := ldbcStatistics(t)

	for _, filter := range [][]string{nil, {"knows"}, {"reply"}, {"create", "knows"}} {
		both, err := Propagate(startStatistics(), gs, DirectionBoth, filter)
		require.NoError(t, err)
		out, err := Propagate(startStatistics(), gs, DirectionOut, filter)
		require.NoError(t, err)
		in, err := Propagate(startStatistics(), gs, DirectionIn, filter)
		require.NoError(t, err)

		assert.True(t, both.Equal(out.Merge(in), eps), "filter=%v", filter)
	}

	both, err := PropagateBoth(startStatistics(), gs)
	require.NoError(t, err)
	assert.InDelta(t, 2550.0, both.Get("person"), eps)
	assert.InDelta(t, 5700.0, both.Get("comment"), eps)
	assert.InDelta(t, 5500.0, both.Get("post"), eps)
}

func TestPropagate_EmptyFilterIsUnionOfSingletons(t *testing.T) {
	gs := ldbcStatistics(t)
	s, err := gs.Schema()
	require.NoError(t, err)

	for _, dir := range []Direction{DirectionOut, DirectionIn, DirectionBoth} {
		all, err := Propagate(startStatistics(), gs, dir, nil)
		require.NoError(t, err)

		merged := NewNodeStatistics()
		for _, label := range s.EdgeLabels() {
			single, err := Propagate(startStatistics(), gs, dir, []string{label})
			require.NoError(t, err)
			merged = merged.Merge(single)
		}
		assert.True(t, all.Equal(merged, eps), "dir=%s", dir)
	}
}

func TestPropagate_DoesNotMutateStart(t *testing.T) {
	gs := ldbcStatistics(t)
	start := startStatistics()

	_, err := PropagateBoth(start, gs)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"person": 10, "post": 100}, start.Map())
}

func TestPropagate_ZeroVertexCount(t *testing.T) {
	s, err := schema.NewBuilder().
		Vertex("ghost").Vertex("person").
		Edge("haunts", "ghost", "person").
		Build()
	require.NoError(t, err)
	gs, err := NewInitializedGraphStatistics(s, &Snapshot{
		VertexCounts: map[string]int64{"person": 10},
		EdgeCounts:   map[string]int64{"haunts": 5},
	})
	require.NoError(t, err)

	out, err := PropagateOut(NodeStatisticsOf(map[string]float64{"ghost": 3}), gs)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Total())

	in, err := PropagateIn(NodeStatisticsOf(map[string]float64{"person": 10}), gs)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, in.Get("ghost"), eps)
}

func TestPropagate_Errors(t *testing.T) {
	gs := ldbcStatistics(t)

	_, err := PropagateOut(startStatistics(), gs, "likes")
	assert.True(t, core.IsSchemaInconsistency(err))

	_, err = PropagateOut(NodeStatisticsOf(map[string]float64{"forum": 1}), gs)
	assert.True(t, core.IsSchemaInconsistency(err))

	_, err = PropagateOut(startStatistics(), NewGraphStatistics())
	assert.True(t, core.IsNotInitialized(err))

	_, err = PropagateOut(startStatistics(), nil)
	assert.True(t, core.IsNotInitialized(err))

	_, err = Propagate(startStatistics(), gs, Direction(9), nil)
	assert.Error(t, err)
}

func TestPropagate_EmptyStart(t *testing.T) {
	gs := ldbcStatistics(t)
	out, err := PropagateBoth(NewNodeStatistics(), gs)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
	}{
		{"out", DirectionOut},
		{"IN", DirectionIn},
		{" Both ", DirectionBoth},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseDirection("sideways")
	assert.Error(t, err)

	var d Direction
	require.NoError(t, d.UnmarshalText([]byte("in")))
	assert.Equal(t, DirectionIn, d)
	text, err := DirectionBoth.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "both", string(text))
}
