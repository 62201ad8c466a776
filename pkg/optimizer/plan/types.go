package plan

import (
	"fmt"
	"strings"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/statistics"
)

// VertexID 计划图中顶点的 arena 下标
type VertexID int

// NoVertex 表示无引用
const NoVertex VertexID = -1

// VertexKind 顶点种类（封闭集合）
type VertexKind int

const (
	KindSource VertexKind = iota
	KindUnary
	KindBinary
)

func (k VertexKind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindUnary:
		return "unary"
	case KindBinary:
		return "binary"
	default:
		return fmt.Sprintf("VertexKind(%d)", int(k))
	}
}

// ParseVertexKind 解析 source/unary/binary
func ParseVertexKind(s string) (VertexKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "source":
		return KindSource, nil
	case "unary":
		return KindUnary, nil
	case "binary":
		return KindBinary, nil
	default:
		return 0, fmt.Errorf("unknown vertex kind %q", s)
	}
}

func (k VertexKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *VertexKind) UnmarshalText(text []byte) error {
	parsed, err := ParseVertexKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// OperatorType 算子类型
type OperatorType string

const (
	OpScan    OperatorType = "Scan"
	OpExpand  OperatorType = "Expand"
	OpFilter  OperatorType = "Filter"
	OpProject OperatorType = "Project"
	OpDedup   OperatorType = "Dedup"
	OpLimit   OperatorType = "Limit"
	OpJoin    OperatorType = "Join"
	OpUnion   OperatorType = "Union"
)

// IsUnary 单输入算子
func (op OperatorType) IsUnary() bool {
	switch op {
	case OpExpand, OpFilter, OpProject, OpDedup, OpLimit:
		return true
	}
	return false
}

// IsBinary 双输入算子
func (op OperatorType) IsBinary() bool {
	return op == OpJoin || op == OpUnion
}

// ShuffleType 计划边上的数据分发策略
type ShuffleType int

const (
	// ShuffleForward 同分区传递，无网络开销
	ShuffleForward ShuffleType = iota
	ShuffleHash
	ShuffleBroadcast
	ShuffleRebalance
)

// IsForward 是否同分区传递
func (s ShuffleType) IsForward() bool {
	return s == ShuffleForward
}

func (s ShuffleType) String() string {
	switch s {
	case ShuffleForward:
		return "FORWARD"
	case ShuffleHash:
		return "HASH"
	case ShuffleBroadcast:
		return "BROADCAST"
	case ShuffleRebalance:
		return "REBALANCE"
	default:
		return fmt.Sprintf("ShuffleType(%d)", int(s))
	}
}

// ParseShuffleType 解析分发策略，空串视为 FORWARD
func ParseShuffleType(s string) (ShuffleType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "FORWARD":
		return ShuffleForward, nil
	case "HASH":
		return ShuffleHash, nil
	case "BROADCAST":
		return ShuffleBroadcast, nil
	case "REBALANCE":
		return ShuffleRebalance, nil
	default:
		return 0, fmt.Errorf("unknown shuffle type %q", s)
	}
}

func (s ShuffleType) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *ShuffleType) UnmarshalText(text []byte) error {
	parsed, err := ParseShuffleType(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ProcessorFunction 算子描述
// 对成本模型不透明，只暴露基数估算所需参数与成本因子
type ProcessorFunction struct {
	Operator OperatorType `json:"operator" yaml:"operator"`

	// Expand
	Direction  statistics.Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
	EdgeLabels []string             `json:"edge_labels,omitempty" yaml:"edge_labels,omitempty"`

	// Scan
	VertexLabels []string `json:"vertex_labels,omitempty" yaml:"vertex_labels,omitempty"`

	// Selectivity 输出比例，0 表示 1.0
	Selectivity float64 `json:"selectivity,omitempty" yaml:"selectivity,omitempty"`
	// RecordWidth 平均记录宽度，0 表示使用默认值
	RecordWidth float64 `json:"record_width,omitempty" yaml:"record_width,omitempty"`
	// Limit 仅 Limit 算子使用
	Limit int64 `json:"limit,omitempty" yaml:"limit,omitempty"`
	// CostFactor 算子成本因子，0 表示使用成本模型按算子类型配置的值
	CostFactor float64 `json:"cost_factor,omitempty" yaml:"cost_factor,omitempty"`
}

// EffectiveSelectivity 返回选择率，未设置时为 1
func (f ProcessorFunction) EffectiveSelectivity() float64 {
	if f.Selectivity == 0 {
		return 1.0
	}
	return f.Selectivity
}

func (f ProcessorFunction) String() string {
	switch f.Operator {
	case OpScan:
		return fmt.Sprintf("Scan%v", labelsOrAll(f.VertexLabels))
	case OpExpand:
		return fmt.Sprintf("Expand[%s %s]", strings.ToLower(f.Direction.String()), strings.Join(labelsOrAll(f.EdgeLabels), ","))
	case OpFilter:
		return fmt.Sprintf("Filter[%.4g]", f.EffectiveSelectivity())
	case OpLimit:
		return fmt.Sprintf("Limit[%d]", f.Limit)
	default:
		return string(f.Operator)
	}
}

func labelsOrAll(labels []string) []string {
	if len(labels) == 0 {
		return []string{"*"}
	}
	return labels
}

// Scan 构造扫描算子
func Scan(vertexLabels ...string) ProcessorFunction {
	return ProcessorFunction{Operator: OpScan, VertexLabels: vertexLabels}
}

// Expand 构造扩展算子
func Expand(dir statistics.Direction, edgeLabels ...string) ProcessorFunction {
	return ProcessorFunction{Operator: OpExpand, Direction: dir, EdgeLabels: edgeLabels}
}

// Filter 构造过滤算子
func Filter(selectivity float64) ProcessorFunction {
	return ProcessorFunction{Operator: OpFilter, Selectivity: selectivity}
}

// Limit 构造 Limit 算子
func Limit(n int64) ProcessorFunction {
	return ProcessorFunction{Operator: OpLimit, Limit: n}
}

// Join 构造连接算子
func Join(selectivity float64) ProcessorFunction {
	return ProcessorFunction{Operator: OpJoin, Selectivity: selectivity}
}

// Union 构造合并算子
func Union() ProcessorFunction {
	return ProcessorFunction{Operator: OpUnion}
}

// Project 构造投影算子
func Project(recordWidth float64) ProcessorFunction {
	return ProcessorFunction{Operator: OpProject, RecordWidth: recordWidth}
}

// Dedup 构造去重算子
func Dedup() ProcessorFunction {
	return ProcessorFunction{Operator: OpDedup}
}
