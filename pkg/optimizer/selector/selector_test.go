package selector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/cost"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/plan"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/schema"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/statistics"
	"github.com/kasuganosora/graphcbo/pkg/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedPlan(id string) *plan.Graph {
	g := plan.NewGraph()
	g.ID = id
	return g
}

func pair(id string, cpu, network float64) *CostsPlanPair {
	return NewCostsPlanPair(cost.Costs{CPU: cpu, Network: network}, namedPlan(id))
}

func ids(pairs []*CostsPlanPair) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.PlanID()
	}
	return out
}

func TestCostsPlanPair_Compare(t *testing.T) {
	cmp := cost.DefaultComparator()
	a := pair("a", 10, 0)
	b := pair("b", 10, 0)
	c := pair("c", 5, 0)

	assert.Equal(t, -1, a.Compare(b, cmp))
	assert.Equal(t, 1, b.Compare(a, cmp))
	assert.Equal(t, 0, a.Compare(a, cmp))
	assert.Equal(t, 1, a.Compare(c, cmp))
	assert.Equal(t, "c Costs{cpu=5.00, network=0.00}", c.String())
	assert.Nil(t, c.VertexCosts())
}

func TestSelector_OfferBestTopK(t *testing.T) {
	s := New(Options{})
	_, ok := s.Best()
	assert.False(t, ok)

	for _, p := range []*CostsPlanPair{pair("p1", 30, 0), pair("p2", 10, 10), pair("p3", 20, 0), pair("p4", 5, 5), pair("p0", 20, 0)} {
		assert.True(t, s.Offer(p))
	}
	assert.Equal(t, 5, s.Len())

	best, ok := s.Best()
	require.True(t, ok)
	assert.Equal(t, "p4", best.PlanID())

	assert.Equal(t, []string{"p4", "p0", "p3", "p2", "p1"}, ids(s.TopK(0)))
	assert.Equal(t, []string{"p4", "p0"}, ids(s.TopK(2)))
	assert.Len(t, s.TopK(10), 5)

	// 同 ID 更便宜时替换
	assert.True(t, s.Offer(pair("p1", 1, 0)))
	assert.Equal(t, 5, s.Len())
	best, _ = s.Best()
	assert.Equal(t, "p1", best.PlanID())
	got, ok := s.Get("p1")
	require.True(t, ok)
	assert.Equal(t, 1.0, got.Costs().CPU)

	s.Reset()
	assert.Equal(t, 0, s.Len())
	_, ok = s.Get("p1")
	assert.False(t, ok)
}

func TestSelector_OfferSameIDKeepsCheaper(t *testing.T) {
	s := New(Options{})
	cheap := pair("same", 20, 0)
	expensive := pair("same", 20, 10)

	assert.True(t, s.Offer(cheap))
	assert.False(t, s.Offer(expensive))
	assert.Equal(t, 1, s.Len())

	best, ok := s.Best()
	require.True(t, ok)
	assert.Same(t, cheap, best)

	// 反向顺序结果一致
	s.Reset()
	assert.True(t, s.Offer(expensive))
	assert.True(t, s.Offer(cheap))
	best, _ = s.Best()
	assert.Same(t, cheap, best)
	assert.Equal(t, []string{"same"}, ids(s.TopK(0)))

	// 成本相同时保留新的
	again := pair("same", 20, 0)
	assert.True(t, s.Offer(again))
	got, _ := s.Get("same")
	assert.Same(t, again, got)
}

func TestSelector_Lexicographic(t *testing.T) {
	s := New(Options{Comparator: cost.NewComparator(cost.PolicyLexicographic, cost.DefaultWeights())})
	s.Offer(pair("cheap-cpu", 1, 100))
	s.Offer(pair("no-network", 1000, 0))

	best, _ := s.Best()
	assert.Equal(t, "no-network", best.PlanID())
	assert.Equal(t, cost.PolicyLexicographic, s.Comparator().Policy)
}

func TestSelector_MaxCandidates(t *testing.T) {
	s := New(Options{MaxCandidates: 2})

	assert.True(t, s.Offer(pair("a", 10, 0)))
	assert.True(t, s.Offer(pair("b", 20, 0)))
	assert.True(t, s.Offer(pair("c", 5, 0)))
	assert.Equal(t, []string{"c", "a"}, ids(s.TopK(0)))

	assert.False(t, s.Offer(pair("d", 50, 0)))
	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("b")
	assert.False(t, ok)
}

func TestSelector_ConcurrentOffer(t *testing.T) {
	s := New(Options{MaxCandidates: 10})
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Offer(pair(fmt.Sprintf("plan-%03d", i), float64(i), 0))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, s.Len())
	best, _ := s.Best()
	assert.Equal(t, "plan-000", best.PlanID())
}

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

func expandPlan(t *testing.T, id string, shuffle plan.ShuffleType, edgeLabel string) *plan.Graph {
	t.Helper()
	g := namedPlan(id)
	scan := plan.Scan("person")
	scan.Selectivity = 0.001
	src, err := g.AddSource(scan)
	require.NoError(t, err)
	_, err = g.AddUnary(src, shuffle, plan.Expand(statistics.DirectionOut, edgeLabel))
	require.NoError(t, err)
	return g
}

func TestSelector_RankPlans(t *testing.T) {
	pool, err := workerpool.New(workerpool.Config{Size: 3, QueueSize: 2})
	require.NoError(t, err)
	require.NoError(t, pool.Start())
	defer pool.Close()

	est := cost.NewEstimator(ldbcStatistics(t), cost.DefaultModel(), nil)
	plans := []*plan.Graph{
		expandPlan(t, "hash", plan.ShuffleHash, "knows"),
		expandPlan(t, "broken", plan.ShuffleHash, "likes"),
		expandPlan(t, "forward", plan.ShuffleForward, "knows"),
		expandPlan(t, "rebalance", plan.ShuffleRebalance, "knows"),
	}

	s := New(Options{})
	errs := s.RankPlans(context.Background(), pool, est, plans)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "plan broken")
	assert.True(t, core.IsSchemaInconsistency(errs[0]))

	assert.Equal(t, 3, s.Len())
	best, ok := s.Best()
	require.True(t, ok)
	assert.Equal(t, "forward", best.PlanID())
	assert.Equal(t, cost.Costs{CPU: 20}, best.Costs())
	assert.Equal(t, []cost.Costs{{CPU: 10}, {CPU: 10}}, best.VertexCosts())

	// hash 与 rebalance 成本相同，按 ID 排序
	assert.Equal(t, []string{"forward", "hash", "rebalance"}, ids(s.TopK(0)))
}

type failingCoster struct{}

func (failingCoster) EstimatePlan(*plan.Graph) (*cost.PlanCost, error) {
	return nil, errors.New("stats offline")
}

func TestSelector_RankPlansAllFail(t *testing.T) {
	pool, err := workerpool.NewWithSize(2)
	require.NoError(t, err)
	require.NoError(t, pool.Start())
	defer pool.Close()

	s := New(Options{})
	errs := s.RankPlans(context.Background(), pool, failingCoster{}, []*plan.Graph{namedPlan("x"), namedPlan("y")})
	assert.Len(t, errs, 2)
	assert.Equal(t, 0, s.Len())
}
