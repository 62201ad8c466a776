package statistics

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// NodeStatistics 计划顶点处按点类型估算的匹配数
// 缺失的点类型计为 0，值非负
type NodeStatistics struct {
	counts map[string]float64
}

// NewNodeStatistics 创建空的 NodeStatistics
func NewNodeStatistics() NodeStatistics {
	return NodeStatistics{counts: make(map[string]float64)}
}

// NodeStatisticsOf 由 map 创建，忽略非正值
func NodeStatisticsOf(counts map[string]float64) NodeStatistics {
	ns := NewNodeStatistics()
	for label, c := range counts {
		ns.Add(label, c)
	}
	return ns
}

// Add 累加某个点类型的估算数，非正值和 NaN 被忽略
func (ns *NodeStatistics) Add(label string, count float64) {
	if !(count > 0) || math.IsInf(count, 0) {
		return
	}
	if ns.counts == nil {
		ns.counts = make(map[string]float64)
	}
	ns.counts[label] += count
}

// Get 返回点类型的估算数
func (ns NodeStatistics) Get(label string) float64 {
	return ns.counts[label]
}

// Has 点类型是否有非零估算
func (ns NodeStatistics) Has(label string) bool {
	_, ok := ns.counts[label]
	return ok
}

// Labels 返回有估算值的点类型，排序后返回
func (ns NodeStatistics) Labels() []string {
	labels := make([]string, 0, len(ns.counts))
	for label := range ns.counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Len 点类型数量
func (ns NodeStatistics) Len() int {
	return len(ns.counts)
}

// Total 所有点类型估算数之和
func (ns NodeStatistics) Total() float64 {
	total := 0.0
	for _, label := range ns.Labels() {
		total += ns.counts[label]
	}
	return total
}

// Clone 深拷贝
func (ns NodeStatistics) Clone() NodeStatistics {
	out := NodeStatistics{counts: make(map[string]float64, len(ns.counts))}
	for k, v := range ns.counts {
		out.counts[k] = v
	}
	return out
}

// Merge 加法合并，返回新值，不修改任何一方
func (ns NodeStatistics) Merge(other NodeStatistics) NodeStatistics {
	out := ns.Clone()
	for _, label := range other.Labels() {
		out.Add(label, other.counts[label])
	}
	return out
}

// Scale 所有估算乘以 k，返回新值
func (ns NodeStatistics) Scale(k float64) NodeStatistics {
	out := NewNodeStatistics()
	for label, c := range ns.counts {
		out.Add(label, c*k)
	}
	return out
}

// Cap 将每个点类型的估算限制在 limit(label) 以内，返回新值
func (ns NodeStatistics) Cap(limit func(label string) float64) NodeStatistics {
	out := NewNodeStatistics()
	for label, c := range ns.counts {
		out.Add(label, math.Min(c, limit(label)))
	}
	return out
}

// Equal 在相对误差 eps 内比较
func (ns NodeStatistics) Equal(other NodeStatistics, eps float64) bool {
	labels := make(map[string]struct{}, len(ns.counts)+len(other.counts))
	for k := range ns.counts {
		labels[k] = struct{}{}
	}
	for k := range other.counts {
		labels[k] = struct{}{}
	}
	for label := range labels {
		a, b := ns.counts[label], other.counts[label]
		scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
		if math.Abs(a-b) > eps*scale {
			return false
		}
	}
	return true
}

// Map 返回计数的拷贝
func (ns NodeStatistics) Map() map[string]float64 {
	return ns.Clone().counts
}

func (ns NodeStatistics) String() string {
	parts := make([]string, 0, len(ns.counts))
	for _, label := range ns.Labels() {
		parts = append(parts, fmt.Sprintf("%s=%.2f", label, ns.counts[label]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (ns NodeStatistics) MarshalJSON() ([]byte, error) {
	if ns.counts == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(ns.counts)
}

func (ns *NodeStatistics) UnmarshalJSON(data []byte) error {
	var counts map[string]float64
	if err := json.Unmarshal(data, &counts); err != nil {
		return err
	}
	*ns = NodeStatisticsOf(counts)
	return nil
}
