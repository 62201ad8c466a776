package cost

import (
	"github.com/kasuganosora/graphcbo/pkg/logging"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/plan"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/statistics"
)

// PlanCost 计划的总成本与逐顶点成本
type PlanCost struct {
	Total Costs
	// PerVertex 按顶点 id 索引
	PerVertex []Costs
}

// Estimator 计划成本估算器
// 同一个计划不能被多个 goroutine 同时估算，不同计划之间可以并发
type Estimator struct {
	gs     *statistics.GraphStatistics
	model  Model
	logger logging.Logger
}

// NewEstimator 创建成本估算器，logger 为 nil 时不输出日志
func NewEstimator(gs *statistics.GraphStatistics, model Model, logger logging.Logger) *Estimator {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if model.JoinBuildWeight <= 0 {
		model.JoinBuildWeight = DefaultJoinBuildWeight
	}
	return &Estimator{gs: gs, model: model, logger: logger}
}

// Model 返回成本模型参数
func (e *Estimator) Model() Model {
	return e.model
}

// CostQueryPlan 估算整个计划的成本
func (e *Estimator) CostQueryPlan(g *plan.Graph) (Costs, error) {
	pc, err := e.EstimatePlan(g)
	if err != nil {
		return Costs{}, err
	}
	return pc.Total, nil
}

// EstimatePlan 按插入顺序逐个顶点估算输出与成本并累加
func (e *Estimator) EstimatePlan(g *plan.Graph) (*PlanCost, error) {
	if g == nil {
		return nil, core.InvalidPlan("nil plan")
	}
	if e.gs == nil {
		return nil, core.NotInitialized("graph statistics")
	}
	s, err := e.gs.Schema()
	if err != nil {
		return nil, err
	}
	if err := g.Validate(s); err != nil {
		return nil, err
	}

	g.ResetEstimates()
	pc := &PlanCost{PerVertex: make([]Costs, 0, g.Len())}
	for _, v := range g.Vertices() {
		if err := g.ComputeOutputEstimates(v.ID, e.gs, e.model.DefaultRecordWidth); err != nil {
			return nil, err
		}
		c, err := e.CostVertex(g, v.ID)
		if err != nil {
			return nil, err
		}
		pc.PerVertex = append(pc.PerVertex, c)
		pc.Total = pc.Total.AddCosts(c)
	}
	e.logger.Debug("[COST] plan %s: %v", g.ID, pc.Total)
	return pc, nil
}

// CostVertex 计算单个顶点的成本
// 顶点及其输入都必须已完成输出估算
func (e *Estimator) CostVertex(g *plan.Graph, id plan.VertexID) (Costs, error) {
	v, ok := g.Vertex(id)
	if !ok {
		return Costs{}, core.InvalidPlan("vertex %d does not exist", id)
	}
	if !v.Estimated() {
		return Costs{}, core.DependencyOrderViolation("vertex %d costed before its output was estimated", id)
	}
	inputs := make([]*plan.Vertex, 0, 2)
	for _, in := range v.Inputs() {
		iv, ok := g.Vertex(in)
		if !ok || in >= id || !iv.Estimated() {
			return Costs{}, core.DependencyOrderViolation("vertex %d costed before its input %d", id, in)
		}
		inputs = append(inputs, iv)
	}

	var c Costs
	switch v.Kind {
	case plan.KindSource:
		if v.IsDelegate() {
			// 读取已物化的输出，不重复扫描
			c.CPU = inputs[0].EstimatedNumRecords
			break
		}
		c.CPU = e.chainCPU(v, v.StageRecords[0], 1)
	case plan.KindUnary:
		in := inputs[0]
		c.CPU = e.chainCPU(v, in.EstimatedNumRecords, 0)
		c.Network = e.shuffleCost(g, in, v)
	case plan.KindBinary:
		left, right := inputs[0], inputs[1]
		c.CPU = left.EstimatedNumRecords*e.model.JoinBuildWeight + right.EstimatedNumRecords
		c.Network = e.shuffleCost(g, left, v) + e.shuffleCost(g, right, v)
	default:
		return Costs{}, core.InvalidPlan("vertex %d: unknown kind %v", id, v.Kind)
	}

	e.logger.Debug("[COST] vertex %d %s: %v", id, v.Kind, c)
	return c, nil
}

// chainCPU 逐阶段累加 CPU 成本
// entering 为进入 Functions[from] 的记录数，from 之前的阶段成本即 entering 本身
func (e *Estimator) chainCPU(v *plan.Vertex, entering float64, from int) float64 {
	cpu := 0.0
	if from > 0 {
		cpu = entering
	}
	for i := from; i < len(v.Functions); i++ {
		cpu += entering * e.model.Factor(v.Functions[i])
		if i < len(v.StageRecords) {
			entering = v.StageRecords[i]
		}
	}
	return cpu
}

// shuffleCost FORWARD 边无网络开销，其余按输入输出大小计
func (e *Estimator) shuffleCost(g *plan.Graph, in, v *plan.Vertex) float64 {
	edge, ok := g.Edge(in.ID, v.ID)
	if !ok || edge.Shuffle.IsForward() {
		return 0
	}
	return in.EstimatedOutputSize
}
