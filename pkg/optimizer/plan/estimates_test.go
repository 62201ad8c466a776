package plan

import (
	"testing"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/statistics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-6

func TestComputeOutputEstimates_ScanExpand(t *testing.T) {
	gs := ldbcStatistics(t)
	g := NewGraph()

	src, _ := g.AddSource(ProcessorFunction{Operator: OpScan, VertexLabels: []string{"person"}, Selectivity: 0.001})
	out, _ := g.AddUnary(src, ShuffleHash, Expand(statistics.DirectionOut))
	knows, _ := g.AddUnary(src, ShuffleForward, ProcessorFunction{Operator: OpExpand, EdgeLabels: []string{"knows"}, RecordWidth: 8})
	estimateAll(t, g, gs)

	s, _ := g.Vertex(src)
	assert.InDelta(t, 10.0, s.EstimatedNumRecords, eps)
	assert.InDelta(t, 10.0, s.EstimatedOutputSize, eps)

	o, _ := g.Vertex(out)
	assert.InDelta(t, 5500.0, o.Statistics.Get("post"), eps)
	assert.InDelta(t, 5500.0, o.Statistics.Get("comment"), eps)
	assert.InDelta(t, 1000.0, o.Statistics.Get("person"), eps)
	assert.InDelta(t, 12000.0, o.EstimatedNumRecords, eps)

	k, _ := g.Vertex(knows)
	assert.InDelta(t, 1000.0, k.EstimatedNumRecords, eps)
	assert.InDelta(t, 8000.0, k.EstimatedOutputSize, eps)
}

func TestComputeOutputEstimates_UnaryOperators(t *testing.T) {
	gs := ldbcStatistics(t)
	g := NewGraph()

	src, _ := g.AddSource(Scan("person"))
	filter, _ := g.AddUnary(src, ShuffleForward, Filter(0.25))
	limit, _ := g.AddUnary(src, ShuffleForward, Limit(100))
	bigLimit, _ := g.AddUnary(src, ShuffleForward, Limit(1e9))
	project, _ := g.AddUnary(src, ShuffleForward, Project(32))
	twoHop, _ := g.AddUnary(src, ShuffleForward, Expand(statistics.DirectionOut, "knows"), Expand(statistics.DirectionOut, "knows"))
	dedup, _ := g.AddUnary(twoHop, ShuffleForward, Dedup())
	estimateAll(t, g, gs)

	rows := func(id VertexID) float64 {
		v, _ := g.Vertex(id)
		return v.EstimatedNumRecords
	}

	assert.InDelta(t, 2500.0, rows(filter), eps)
	assert.InDelta(t, 100.0, rows(limit), eps)
	assert.InDelta(t, 10000.0, rows(bigLimit), eps)
	assert.InDelta(t, 10000.0, rows(project), eps)

	p, _ := g.Vertex(project)
	assert.InDelta(t, 320000.0, p.EstimatedOutputSize, eps)

	// 10000 -> 1e6 -> 1e8 person traversals; dedup caps at 10000 persons
	assert.InDelta(t, 1e8, rows(twoHop), 1e-3)
	th, _ := g.Vertex(twoHop)
	require.Len(t, th.StageRecords, 2)
	assert.InDelta(t, 1e6, th.StageRecords[0], eps)
	assert.InDelta(t, 10000.0, rows(dedup), eps)
}

func TestComputeOutputEstimates_Binary(t *testing.T) {
	gs := ldbcStatistics(t)
	g := NewGraph()

	persons, _ := g.AddSource(Scan("person"))
	posts, _ := g.AddSource(ProcessorFunction{Operator: OpScan, VertexLabels: []string{"post"}, Selectivity: 0.01})
	join, _ := g.AddBinary(persons, ShuffleHash, posts, ShuffleHash, Join(0.1))
	union, _ := g.AddBinary(persons, ShuffleForward, posts, ShuffleForward, Union())
	estimateAll(t, g, gs)

	j, _ := g.Vertex(join)
	assert.InDelta(t, 1000.0, j.EstimatedNumRecords, eps)
	assert.Equal(t, []string{"person"}, j.Statistics.Labels())

	u, _ := g.Vertex(union)
	assert.InDelta(t, 20000.0, u.EstimatedNumRecords, eps)
	assert.Equal(t, []string{"person", "post"}, u.Statistics.Labels())
}

func TestComputeOutputEstimates_Delegate(t *testing.T) {
	gs := ldbcStatistics(t)
	g := NewGraph()

	src, _ := g.AddSource(Scan("person"))
	exp, _ := g.AddUnary(src, ShuffleHash, Expand(statistics.DirectionOut, "knows"))
	reuse, err := g.AddDelegateSource(exp)
	require.NoError(t, err)
	estimateAll(t, g, gs)

	d, _ := g.Vertex(reuse)
	assert.True(t, d.IsDelegate())
	assert.InDelta(t, 1e6, d.EstimatedNumRecords, eps)
	assert.InDelta(t, 1e6, d.Statistics.Get("person"), eps)
}

func TestComputeOutputEstimates_DependencyOrder(t *testing.T) {
	gs := ldbcStatistics(t)
	g := NewGraph()

	src, _ := g.AddSource(Scan("person"))
	exp, _ := g.AddUnary(src, ShuffleHash, Expand(statistics.DirectionOut))

	err := g.ComputeOutputEstimates(exp, gs, 0)
	require.Error(t, err)
	assert.True(t, core.IsDependencyOrder(err))

	v, _ := g.Vertex(exp)
	assert.False(t, v.Estimated())

	err = g.ComputeOutputEstimates(99, gs, 0)
	assert.True(t, core.IsInvalidPlan(err))
}

func TestComputeOutputEstimates_Uninitialized(t *testing.T) {
	g := NewGraph()
	src, _ := g.AddSource(Scan("person"))

	err := g.ComputeOutputEstimates(src, statistics.NewGraphStatistics(), 0)
	assert.True(t, core.IsNotInitialized(err))
}

func TestComputeOutputEstimates_UnknownEdgeLabel(t *testing.T) {
	gs := ldbcStatistics(t)
	g := NewGraph()
	src, _ := g.AddSource(Scan("person"))
	exp, _ := g.AddUnary(src, ShuffleHash, Expand(statistics.DirectionOut, "likes"))

	require.NoError(t, g.ComputeOutputEstimates(src, gs, 0))
	err := g.ComputeOutputEstimates(exp, gs, 0)
	assert.True(t, core.IsSchemaInconsistency(err))
}
