package statistics

import (
	"testing"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/schema"
	"github.com/stretchr/testify/require"
)

// ldbcStatistics 构造 person/post/comment 测试夹具
func ldbcStatistics(t *testing.T) *GraphStatistics {
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

	gs, err := NewInitializedGraphStatistics(s, &Snapshot{
		VertexCounts: map[string]int64{
			"person":  10000,
			"post":    1000000,
			"comment": 10000000,
		},
		EdgeCounts: map[string]int64{
			"create": 11000000,
			"reply":  4000000,
			"knows":  1000000,
		},
	})
	require.NoError(t, err)
	return gs
}

func startStatistics() NodeStatistics {
	return NodeStatisticsOf(map[string]float64{"person": 10, "post": 100})
}
