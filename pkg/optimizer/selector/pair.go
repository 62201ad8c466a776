package selector

import (
	"fmt"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/cost"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/plan"
)

// CostsPlanPair 计划及其成本，构造后不可变
type CostsPlanPair struct {
	costs     cost.Costs
	perVertex []cost.Costs
	plan      *plan.Graph
}

// NewCostsPlanPair 创建计划-成本对
func NewCostsPlanPair(c cost.Costs, g *plan.Graph) *CostsPlanPair {
	return &CostsPlanPair{costs: c, plan: g}
}

// NewCostsPlanPairWithDetail 附带逐顶点成本
func NewCostsPlanPairWithDetail(pc *cost.PlanCost, g *plan.Graph) *CostsPlanPair {
	return &CostsPlanPair{
		costs:     pc.Total,
		perVertex: append([]cost.Costs(nil), pc.PerVertex...),
		plan:      g,
	}
}

// Costs 计划总成本
func (p *CostsPlanPair) Costs() cost.Costs {
	return p.costs
}

// Plan 计划图
func (p *CostsPlanPair) Plan() *plan.Graph {
	return p.plan
}

// PlanID 计划 ID
func (p *CostsPlanPair) PlanID() string {
	if p.plan == nil {
		return ""
	}
	return p.plan.ID
}

// VertexCosts 逐顶点成本的拷贝，未记录时为 nil
func (p *CostsPlanPair) VertexCosts() []cost.Costs {
	return append([]cost.Costs(nil), p.perVertex...)
}

// Compare 先按比较器比较成本，相等时按计划 ID 比较
func (p *CostsPlanPair) Compare(o *CostsPlanPair, cmp cost.Comparator) int {
	if r := cmp.Compare(p.costs, o.costs); r != 0 {
		return r
	}
	switch a, b := p.PlanID(), o.PlanID(); {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (p *CostsPlanPair) String() string {
	return fmt.Sprintf("%s %v", p.PlanID(), p.costs)
}
