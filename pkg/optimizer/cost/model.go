package cost

import (
	"fmt"
	"strings"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/plan"
)

// DefaultJoinBuildWeight 连接构建侧（左输入）的 CPU 权重
const DefaultJoinBuildWeight = 2.0

// Model 成本模型参数
type Model struct {
	// JoinBuildWeight 双输入顶点左输入的每条记录 CPU 成本
	JoinBuildWeight float64
	// DefaultRecordWidth 算子未声明 RecordWidth 时使用
	DefaultRecordWidth float64
	// OperatorFactors 按算子类型配置的成本因子，缺省为 1
	OperatorFactors map[plan.OperatorType]float64
}

// DefaultModel 默认成本模型
func DefaultModel() Model {
	return Model{
		JoinBuildWeight:    DefaultJoinBuildWeight,
		DefaultRecordWidth: plan.DefaultRecordWidth,
		OperatorFactors:    map[plan.OperatorType]float64{},
	}
}

// NewModel 由配置构造成本模型，factors 的 key 为算子名
func NewModel(joinBuildWeight, defaultRecordWidth float64, factors map[string]float64) (Model, error) {
	m := DefaultModel()
	if joinBuildWeight > 0 {
		m.JoinBuildWeight = joinBuildWeight
	}
	if defaultRecordWidth > 0 {
		m.DefaultRecordWidth = defaultRecordWidth
	}
	for name, f := range factors {
		op, ok := lookupOperator(name)
		if !ok {
			return Model{}, fmt.Errorf("unknown operator %q in cost factors", name)
		}
		if f < 0 {
			return Model{}, fmt.Errorf("negative cost factor %v for %s", f, op)
		}
		m.OperatorFactors[op] = f
	}
	return m, nil
}

// Factor 算子成本因子：算子自带的 CostFactor 优先，其次模型配置，最后为 1
func (m Model) Factor(fn plan.ProcessorFunction) float64 {
	if fn.CostFactor > 0 {
		return fn.CostFactor
	}
	if f, ok := m.OperatorFactors[fn.Operator]; ok {
		return f
	}
	return 1.0
}

var operators = []plan.OperatorType{
	plan.OpScan, plan.OpExpand, plan.OpFilter, plan.OpProject,
	plan.OpDedup, plan.OpLimit, plan.OpJoin, plan.OpUnion,
}

func lookupOperator(name string) (plan.OperatorType, bool) {
	for _, op := range operators {
		if strings.EqualFold(string(op), name) {
			return op, true
		}
	}
	return "", false
}
