package plan

import (
	"math"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/statistics"
)

// DefaultRecordWidth 未配置时的平均记录宽度
const DefaultRecordWidth = 1.0

// ComputeOutputEstimates 计算顶点的输出基数与输出大小
// 所有输入必须已完成估算，否则返回 DependencyOrderViolation
func (g *Graph) ComputeOutputEstimates(id VertexID, gs *statistics.GraphStatistics, defaultWidth float64) error {
	v, ok := g.Vertex(id)
	if !ok {
		return core.InvalidPlan("vertex %d does not exist", id)
	}
	if defaultWidth <= 0 {
		defaultWidth = DefaultRecordWidth
	}
	for _, in := range v.Inputs() {
		if err := g.requireEstimated(v, in); err != nil {
			return err
		}
	}

	var (
		ns     statistics.NodeStatistics
		stages []float64
		err    error
		fns    = v.Functions
	)

	switch v.Kind {
	case KindSource:
		if v.IsDelegate() {
			d := g.vertices[v.Delegate]
			v.Statistics = d.Statistics.Clone()
			v.EstimatedNumRecords = d.EstimatedNumRecords
			v.EstimatedOutputSize = d.EstimatedOutputSize
			v.StageRecords = []float64{d.EstimatedNumRecords}
			v.estimated = true
			return nil
		}
		head := v.Head()
		ns, err = gs.Seed(head.VertexLabels)
		if err != nil {
			return err
		}
		ns = ns.Scale(head.EffectiveSelectivity())
		stages = append(stages, ns.Total())
		fns = fns[1:]
	case KindUnary:
		ns = g.vertices[v.Input].Statistics
	case KindBinary:
		left, right := g.vertices[v.Left], g.vertices[v.Right]
		switch v.Head().Operator {
		case OpJoin:
			ns = left.Statistics.Scale(v.Head().EffectiveSelectivity())
		case OpUnion:
			ns = left.Statistics.Merge(right.Statistics)
		default:
			return core.InvalidPlan("vertex %d: unsupported binary operator %s", v.ID, v.Head().Operator)
		}
		stages = append(stages, ns.Total())
		fns = nil
	default:
		return core.InvalidPlan("vertex %d: unknown kind %v", v.ID, v.Kind)
	}

	for _, fn := range fns {
		ns, err = applyStage(fn, ns, gs)
		if err != nil {
			return err
		}
		stages = append(stages, ns.Total())
	}

	width := defaultWidth
	for _, fn := range v.Functions {
		if fn.RecordWidth > 0 {
			width = fn.RecordWidth
		}
	}

	v.Statistics = ns
	v.StageRecords = stages
	v.EstimatedNumRecords = ns.Total()
	v.EstimatedOutputSize = v.EstimatedNumRecords * width
	v.estimated = true
	return nil
}

func (g *Graph) requireEstimated(v *Vertex, in VertexID) error {
	if in >= v.ID {
		return core.DependencyOrderViolation("vertex %d consumes vertex %d which is not appended before it", v.ID, in)
	}
	if !g.vertices[in].estimated {
		return core.DependencyOrderViolation("vertex %d estimated before its input %d", v.ID, in)
	}
	return nil
}

// applyStage 对单输入算子做基数变换
func applyStage(fn ProcessorFunction, ns statistics.NodeStatistics, gs *statistics.GraphStatistics) (statistics.NodeStatistics, error) {
	switch fn.Operator {
	case OpExpand:
		out, err := statistics.Propagate(ns, gs, fn.Direction, fn.EdgeLabels)
		if err != nil {
			return statistics.NodeStatistics{}, err
		}
		return out.Scale(fn.EffectiveSelectivity()), nil
	case OpFilter:
		return ns.Scale(fn.EffectiveSelectivity()), nil
	case OpProject:
		return ns.Clone(), nil
	case OpDedup:
		var lookupErr error
		capped := ns.Cap(func(label string) float64 {
			count, err := gs.VertexCount(label)
			if err != nil {
				lookupErr = err
				return 0
			}
			return float64(count)
		})
		if lookupErr != nil {
			return statistics.NodeStatistics{}, lookupErr
		}
		return capped, nil
	case OpLimit:
		total := ns.Total()
		limit := float64(fn.Limit)
		if total <= limit || total == 0 {
			return ns.Clone(), nil
		}
		return ns.Scale(math.Max(0, limit) / total), nil
	default:
		return statistics.NodeStatistics{}, core.InvalidPlan("operator %s cannot be applied as a unary stage", fn.Operator)
	}
}
