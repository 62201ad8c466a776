package optimizer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/graphcbo/pkg/config"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/cost"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/plan"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/schema"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/statistics"
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

// 10 个 person 经 edgeLabel 扩展一跳
func friendsPlan(t *testing.T, id string, shuffle plan.ShuffleType, edgeLabel string) *plan.Graph {
	t.Helper()
	g := plan.NewGraph()
	g.ID = id
	scan := plan.Scan("person")
	scan.Selectivity = 0.001
	src, err := g.AddSource(scan)
	require.NoError(t, err)
	_, err = g.AddUnary(src, shuffle, plan.Expand(statistics.DirectionOut, edgeLabel))
	require.NoError(t, err)
	return g
}

func newOptimizer(t *testing.T, cfg *config.Config) *Optimizer {
	t.Helper()
	o, err := NewOptimizer(cfg, ldbcStatistics(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { o.Close() })
	return o
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Selector.Parallelism = 2
	return cfg
}

func TestNewOptimizer_Errors(t *testing.T) {
	_, err := NewOptimizer(nil, nil, nil)
	assert.True(t, core.IsNotInitialized(err))

	_, err = NewOptimizer(nil, statistics.NewGraphStatistics(), nil)
	assert.True(t, core.IsNotInitialized(err))

	cfg := testConfig()
	cfg.Optimizer.CostPolicy = "random"
	_, err = NewOptimizer(cfg, ldbcStatistics(t), nil)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Optimizer.OperatorFactors = map[string]float64{"sort": 2}
	_, err = NewOptimizer(cfg, ldbcStatistics(t), nil)
	assert.Error(t, err)
}

func TestOptimizer_CostQueryPlan(t *testing.T) {
	o := newOptimizer(t, nil)

	c, err := o.CostQueryPlan(friendsPlan(t, "hash", plan.ShuffleHash, "knows"))
	require.NoError(t, err)
	assert.Equal(t, cost.Costs{CPU: 20, Network: 10}, c)

	pc, err := o.EstimatePlan(friendsPlan(t, "forward", plan.ShuffleForward, "knows"))
	require.NoError(t, err)
	assert.Equal(t, cost.Costs{CPU: 20, Network: 0}, pc.Total)
	assert.Len(t, pc.PerVertex, 2)

	_, err = o.CostQueryPlan(friendsPlan(t, "bad", plan.ShuffleHash, "likes"))
	assert.True(t, core.IsSchemaInconsistency(err))
}

func TestOptimizer_Rank(t *testing.T) {
	o := newOptimizer(t, testConfig())
	plans := []*plan.Graph{
		friendsPlan(t, "hash", plan.ShuffleHash, "knows"),
		friendsPlan(t, "bad", plan.ShuffleHash, "likes"),
		friendsPlan(t, "forward", plan.ShuffleForward, "knows"),
	}

	ranked, errs := o.Rank(context.Background(), plans)
	require.Len(t, ranked, 2)
	assert.Equal(t, "forward", ranked[0].PlanID())
	assert.Equal(t, "hash", ranked[1].PlanID())
	assert.Equal(t, cost.Costs{CPU: 20, Network: 0}, ranked[0].Costs())
	assert.Len(t, ranked[0].VertexCosts(), 2)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "plan bad")
	assert.True(t, core.IsSchemaInconsistency(errs[0]))
}

func TestOptimizer_Metrics(t *testing.T) {
	o := newOptimizer(t, testConfig())

	_, errs := o.Rank(context.Background(), []*plan.Graph{
		friendsPlan(t, "hash", plan.ShuffleHash, "knows"),
		friendsPlan(t, "bad", plan.ShuffleHash, "likes"),
	})
	require.Len(t, errs, 1)

	snap := o.Metrics().GetSnapshot()
	assert.Equal(t, int64(2), snap.PlanCount)
	assert.Equal(t, int64(1), snap.PlanError)
	assert.Equal(t, int64(1), snap.ErrorCount[string(core.ErrCodeSchemaInconsistency)])
	assert.Equal(t, int64(2), snap.OperatorCount["Expand"])
	assert.Equal(t, int64(0), snap.ActiveEstimates)
}

func TestOptimizer_RankDuplicatePlan(t *testing.T) {
	o := newOptimizer(t, testConfig())
	g := friendsPlan(t, "same", plan.ShuffleHash, "knows")

	ranked, errs := o.Rank(context.Background(), []*plan.Graph{g, g, g})
	assert.Empty(t, errs)
	require.Len(t, ranked, 1)
	assert.Equal(t, "same", ranked[0].PlanID())
}

func TestOptimizer_RankRejectsDuplicateIDs(t *testing.T) {
	o := newOptimizer(t, testConfig())
	ctx := context.Background()

	cheap := friendsPlan(t, "same", plan.ShuffleForward, "knows")
	expensive := friendsPlan(t, "same", plan.ShuffleHash, "knows")

	ranked, errs := o.Rank(ctx, []*plan.Graph{cheap, expensive})
	require.Len(t, ranked, 1)
	assert.Same(t, cheap, ranked[0].Plan())
	require.Len(t, errs, 1)
	assert.True(t, core.IsInvalidPlan(errs[0]))
	assert.Contains(t, errs[0].Error(), `plan 1: id "same" already used by plan 0`)

	// 顺序颠倒时保留先出现的计划并报告冲突，不会静默选中错误的计划
	ranked, errs = o.Rank(ctx, []*plan.Graph{expensive, cheap})
	require.Len(t, ranked, 1)
	assert.Same(t, expensive, ranked[0].Plan())
	require.Len(t, errs, 1)

	best, err := o.Best(ctx, []*plan.Graph{cheap, expensive})
	require.NoError(t, err)
	assert.Equal(t, cost.Costs{CPU: 20, Network: 0}, best.Costs())
}

func TestOptimizer_MaxCandidates(t *testing.T) {
	cfg := testConfig()
	cfg.Selector.MaxCandidates = 1
	o := newOptimizer(t, cfg)

	ranked, errs := o.Rank(context.Background(), []*plan.Graph{
		friendsPlan(t, "hash", plan.ShuffleHash, "knows"),
		friendsPlan(t, "forward", plan.ShuffleForward, "knows"),
	})
	assert.Empty(t, errs)
	require.Len(t, ranked, 1)
	assert.Equal(t, "forward", ranked[0].PlanID())
}

func TestOptimizer_Best(t *testing.T) {
	o := newOptimizer(t, testConfig())
	ctx := context.Background()

	best, err := o.Best(ctx, []*plan.Graph{
		friendsPlan(t, "hash", plan.ShuffleHash, "knows"),
		friendsPlan(t, "forward", plan.ShuffleForward, "knows"),
	})
	require.NoError(t, err)
	assert.Equal(t, "forward", best.PlanID())

	_, err = o.Best(ctx, nil)
	assert.True(t, core.IsInvalidPlan(err))

	_, err = o.Best(ctx, []*plan.Graph{friendsPlan(t, "bad", plan.ShuffleHash, "likes")})
	require.Error(t, err)
	assert.True(t, core.IsInvalidPlan(err))
	assert.True(t, core.IsSchemaInconsistency(err))
}

func TestOptimizer_LexicographicPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.Optimizer.CostPolicy = "lexicographic"
	o := newOptimizer(t, cfg)
	assert.Equal(t, cost.PolicyLexicographic, o.Comparator().Policy)

	// forward-filter 的 CPU 更高但没有网络成本，字典序下优先
	cheapNetwork := friendsPlan(t, "forward-filter", plan.ShuffleForward, "knows")
	_, err := cheapNetwork.AddUnary(1, plan.ShuffleForward, plan.Filter(0.5))
	require.NoError(t, err)

	best, err := o.Best(context.Background(), []*plan.Graph{
		friendsPlan(t, "hash", plan.ShuffleHash, "knows"),
		cheapNetwork,
	})
	require.NoError(t, err)
	assert.Equal(t, "forward-filter", best.PlanID())
}

func TestOptimizer_Explain(t *testing.T) {
	o := newOptimizer(t, nil)

	out, err := o.Explain(friendsPlan(t, "explained", plan.ShuffleHash, "knows"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Plan explained (2 vertices)"))
	assert.Contains(t, out, "#1 Costs{cpu=10.00, network=10.00}")
	assert.Contains(t, out, "Total Costs{cpu=20.00, network=10.00}")

	_, err = o.Explain(friendsPlan(t, "bad", plan.ShuffleHash, "likes"))
	assert.Error(t, err)
}
