package plan

import "github.com/kasuganosora/graphcbo/pkg/optimizer/statistics"

// Vertex 逻辑计划顶点
// 输入以 arena 下标引用，不持有指针
type Vertex struct {
	ID        VertexID
	Kind      VertexKind
	Functions []ProcessorFunction

	// Input 单输入顶点的输入
	Input VertexID
	// Left/Right 双输入顶点的左右输入
	Left  VertexID
	Right VertexID
	// Delegate 复用另一个顶点已计算输出的源顶点
	Delegate VertexID

	// 由 ComputeOutputEstimates 填充
	Statistics          statistics.NodeStatistics
	EstimatedNumRecords float64
	EstimatedOutputSize float64
	// StageRecords 链式顶点中每个阶段的输出记录数
	StageRecords []float64
	estimated    bool
}

// IsChain 是否为链式顶点（多个算子融合）
func (v *Vertex) IsChain() bool {
	return len(v.Functions) > 1
}

// IsDelegate 是否为委托源顶点
func (v *Vertex) IsDelegate() bool {
	return v.Kind == KindSource && v.Delegate != NoVertex
}

// Head 返回第一个算子
func (v *Vertex) Head() ProcessorFunction {
	if len(v.Functions) == 0 {
		return ProcessorFunction{}
	}
	return v.Functions[0]
}

// Estimated 是否已完成输出估算
func (v *Vertex) Estimated() bool {
	return v.estimated
}

// Inputs 按左、右顺序返回输入
func (v *Vertex) Inputs() []VertexID {
	switch v.Kind {
	case KindUnary:
		return []VertexID{v.Input}
	case KindBinary:
		return []VertexID{v.Left, v.Right}
	case KindSource:
		if v.Delegate != NoVertex {
			return []VertexID{v.Delegate}
		}
	}
	return nil
}

func (v *Vertex) resetEstimates() {
	v.Statistics = statistics.NodeStatistics{}
	v.EstimatedNumRecords = 0
	v.EstimatedOutputSize = 0
	v.StageRecords = nil
	v.estimated = false
}

func (v *Vertex) clone() *Vertex {
	out := *v
	out.Functions = make([]ProcessorFunction, len(v.Functions))
	for i, fn := range v.Functions {
		fn.EdgeLabels = append([]string(nil), fn.EdgeLabels...)
		fn.VertexLabels = append([]string(nil), fn.VertexLabels...)
		out.Functions[i] = fn
	}
	out.Statistics = v.Statistics.Clone()
	out.StageRecords = append([]float64(nil), v.StageRecords...)
	return &out
}

// Edge 计划边，连接输入顶点与消费顶点
type Edge struct {
	Src     VertexID
	Dst     VertexID
	Shuffle ShuffleType
}

type edgeKey struct {
	src, dst VertexID
}
