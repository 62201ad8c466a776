package plan

import (
	"encoding/json"
	"testing"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/schema"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/statistics"
	"github.com/stretchr/testify/require"
)

func ldbcStatistics(t *testing.T) *statistics.GraphStatistics {
	t.Helper()
	s, err := schema.NewBuilder().
		Vertex("person").Vertex("post").Vertex("comment").
		Edge("create", "person", "post").
		Edge("create", "person", "comment").
		Edge("reply", "comment", "post").
		Edge("reply", "comment", "comment").
		Edge("knows", "person", "person").
		Build()
	require.NoError(t, err)

	gs, err := statistics.NewInitializedGraphStatistics(s, &statistics.Snapshot{
		VertexCounts: map[string]int64{"person": 10000, "post": 1000000, "comment": 10000000},
		EdgeCounts:   map[string]int64{"create": 11000000, "reply": 4000000, "knows": 1000000},
	})
	require.NoError(t, err)
	return gs
}

func estimateAll(t *testing.T, g *Graph, gs *statistics.GraphStatistics) {
	t.Helper()
	for _, v := range g.Vertices() {
		require.NoError(t, g.ComputeOutputEstimates(v.ID, gs, 0))
	}
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
