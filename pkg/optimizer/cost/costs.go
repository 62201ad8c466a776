package cost

import (
	"fmt"
	"strings"
)

// Costs 计划或顶点的成本，包含 CPU 与网络两个维度
// 值类型，所有运算返回新值
type Costs struct {
	CPU     float64 `json:"cpu" yaml:"cpu"`
	Network float64 `json:"network" yaml:"network"`
}

// AddCosts 返回两者之和，不修改接收者
func (c Costs) AddCosts(o Costs) Costs {
	return Costs{CPU: c.CPU + o.CPU, Network: c.Network + o.Network}
}

// Total 按权重折算为单一数值
func (c Costs) Total(w Weights) float64 {
	return c.CPU*w.CPU + c.Network*w.Network
}

// Compare 使用默认比较器比较，返回 -1/0/1
func (c Costs) Compare(o Costs) int {
	return DefaultComparator().Compare(c, o)
}

// Less 使用默认比较器判断 c 是否更便宜
func (c Costs) Less(o Costs) bool {
	return c.Compare(o) < 0
}

func (c Costs) String() string {
	return fmt.Sprintf("Costs{cpu=%.2f, network=%.2f}", c.CPU, c.Network)
}

// SumCosts 折叠一组成本
func SumCosts(costs ...Costs) Costs {
	var total Costs
	for _, c := range costs {
		total = total.AddCosts(c)
	}
	return total
}

// Weights CPU 与网络成本的权重
type Weights struct {
	CPU     float64 `json:"cpu" yaml:"cpu"`
	Network float64 `json:"network" yaml:"network"`
}

// DefaultWeights 默认权重 1:1
func DefaultWeights() Weights {
	return Weights{CPU: 1, Network: 1}
}

// Policy 成本比较策略
type Policy string

const (
	// PolicyWeighted 加权和，相等时依次比较网络、CPU
	PolicyWeighted Policy = "weighted"
	// PolicyLexicographic 先比较网络，再比较 CPU
	PolicyLexicographic Policy = "lexicographic"
)

// ParsePolicy 解析比较策略，空串为 weighted
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyWeighted:
		return PolicyWeighted, nil
	case PolicyLexicographic:
		return PolicyLexicographic, nil
	default:
		return "", fmt.Errorf("unknown cost policy %q", s)
	}
}

// Comparator 成本全序比较器
type Comparator struct {
	Policy  Policy
	Weights Weights
}

// DefaultComparator 加权策略，权重 1:1
func DefaultComparator() Comparator {
	return Comparator{Policy: PolicyWeighted, Weights: DefaultWeights()}
}

// NewComparator 创建比较器
func NewComparator(policy Policy, weights Weights) Comparator {
	if policy == "" {
		policy = PolicyWeighted
	}
	return Comparator{Policy: policy, Weights: weights}
}

// Compare 返回 -1 表示 a 更便宜，1 表示 b 更便宜，0 表示相等
func (cmp Comparator) Compare(a, b Costs) int {
	if cmp.Policy != PolicyLexicographic {
		if r := compareFloat(a.Total(cmp.Weights), b.Total(cmp.Weights)); r != 0 {
			return r
		}
	}
	if r := compareFloat(a.Network, b.Network); r != 0 {
		return r
	}
	return compareFloat(a.CPU, b.CPU)
}

// Less a 是否严格更便宜
func (cmp Comparator) Less(a, b Costs) bool {
	return cmp.Compare(a, b) < 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
