package statsource

import (
	"testing"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/schema"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/statistics"
	"github.com/stretchr/testify/require"
)

func ldbcCatalog(t *testing.T) *Catalog {
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
	return &Catalog{
		Schema: s,
		Snapshot: &statistics.Snapshot{
			VertexCounts: map[string]int64{"person": 10000, "post": 1000000, "comment": 10000000},
			EdgeCounts:   map[string]int64{"create": 11000000, "reply": 4000000, "knows": 1000000},
		},
	}
}

// requireLDBC 校验加载结果与原始 Catalog 的估算一致
func requireLDBC(t *testing.T, c *Catalog) {
	t.Helper()
	gs, err := c.GraphStatistics()
	require.NoError(t, err)

	assert := require.New(t)
	assert.Equal([]string{"comment", "person", "post"}, c.Schema.VertexLabels())
	assert.Equal([]string{"create", "knows", "reply"}, c.Schema.EdgeLabels())

	n, err := gs.VertexCount("comment")
	assert.NoError(err)
	assert.Equal(int64(10000000), n)
	n, err = gs.EdgeCount("create")
	assert.NoError(err)
	assert.Equal(int64(11000000), n)

	out, err := statistics.PropagateOut(statistics.NodeStatisticsOf(map[string]float64{"person": 10, "post": 100}), gs)
	assert.NoError(err)
	assert.InDelta(5500.0, out.Get("post"), 1e-6)
	assert.InDelta(5500.0, out.Get("comment"), 1e-6)
	assert.InDelta(1000.0, out.Get("person"), 1e-6)
}
