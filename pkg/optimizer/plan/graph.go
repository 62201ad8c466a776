package plan

import (
	"github.com/google/uuid"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/schema"
)

// Graph 逻辑计划图
// 顶点按依赖顺序追加到 arena，下标即 VertexID
type Graph struct {
	ID       string
	vertices []*Vertex
	edges    map[edgeKey]*Edge
}

// NewGraph 创建空计划图
func NewGraph() *Graph {
	return &Graph{
		ID:    uuid.NewString(),
		edges: make(map[edgeKey]*Edge),
	}
}

// Len 顶点数
func (g *Graph) Len() int {
	return len(g.vertices)
}

// Vertex 按 id 查找顶点
func (g *Graph) Vertex(id VertexID) (*Vertex, bool) {
	if id < 0 || int(id) >= len(g.vertices) {
		return nil, false
	}
	return g.vertices[id], true
}

// Vertices 按插入（拓扑）顺序返回所有顶点
func (g *Graph) Vertices() []*Vertex {
	return append([]*Vertex(nil), g.vertices...)
}

// Edge 返回 (src, dst) 之间的计划边
func (g *Graph) Edge(src, dst VertexID) (*Edge, bool) {
	e, ok := g.edges[edgeKey{src, dst}]
	return e, ok
}

// Edges 按消费顶点顺序返回所有边
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edges))
	for _, v := range g.vertices {
		if v.Kind == KindSource {
			continue
		}
		for _, in := range v.Inputs() {
			out = append(out, g.edges[edgeKey{in, v.ID}])
		}
	}
	return out
}

// Sinks 返回没有消费者的顶点
func (g *Graph) Sinks() []*Vertex {
	consumed := make(map[VertexID]bool, len(g.vertices))
	for _, v := range g.vertices {
		for _, in := range v.Inputs() {
			consumed[in] = true
		}
	}
	var sinks []*Vertex
	for _, v := range g.vertices {
		if !consumed[v.ID] {
			sinks = append(sinks, v)
		}
	}
	return sinks
}

// AddSource 添加源顶点，首个算子必须是 Scan，其后可链接单输入算子
func (g *Graph) AddSource(fns ...ProcessorFunction) (VertexID, error) {
	if len(fns) == 0 || fns[0].Operator != OpScan {
		return NoVertex, core.InvalidPlan("source vertex must start with a Scan")
	}
	if err := checkChainTail(fns[1:]); err != nil {
		return NoVertex, err
	}
	return g.append(&Vertex{Kind: KindSource, Functions: fns, Input: NoVertex, Left: NoVertex, Right: NoVertex, Delegate: NoVertex}), nil
}

// AddDelegateSource 添加复用 delegate 输出的源顶点
func (g *Graph) AddDelegateSource(delegate VertexID) (VertexID, error) {
	if _, ok := g.Vertex(delegate); !ok {
		return NoVertex, core.InvalidPlan("delegate vertex %d does not exist", delegate)
	}
	return g.append(&Vertex{Kind: KindSource, Input: NoVertex, Left: NoVertex, Right: NoVertex, Delegate: delegate}), nil
}

// AddUnary 添加单输入顶点，多个算子时为链式顶点
func (g *Graph) AddUnary(input VertexID, shuffle ShuffleType, fns ...ProcessorFunction) (VertexID, error) {
	if len(fns) == 0 {
		return NoVertex, core.InvalidPlan("unary vertex requires at least one function")
	}
	if err := checkChainTail(fns); err != nil {
		return NoVertex, err
	}
	if _, ok := g.Vertex(input); !ok {
		return NoVertex, core.InvalidPlan("input vertex %d does not exist", input)
	}
	id := g.append(&Vertex{Kind: KindUnary, Functions: fns, Input: input, Left: NoVertex, Right: NoVertex, Delegate: NoVertex})
	g.edges[edgeKey{input, id}] = &Edge{Src: input, Dst: id, Shuffle: shuffle}
	return id, nil
}

// AddBinary 添加双输入顶点
func (g *Graph) AddBinary(left VertexID, leftShuffle ShuffleType, right VertexID, rightShuffle ShuffleType, fn ProcessorFunction) (VertexID, error) {
	if !fn.Operator.IsBinary() {
		return NoVertex, core.InvalidPlan("operator %s is not a binary operator", fn.Operator)
	}
	if _, ok := g.Vertex(left); !ok {
		return NoVertex, core.InvalidPlan("left input vertex %d does not exist", left)
	}
	if _, ok := g.Vertex(right); !ok {
		return NoVertex, core.InvalidPlan("right input vertex %d does not exist", right)
	}
	if left == right {
		return NoVertex, core.InvalidPlan("binary vertex inputs must be distinct, got %d twice", left)
	}
	id := g.append(&Vertex{Kind: KindBinary, Functions: []ProcessorFunction{fn}, Input: NoVertex, Left: left, Right: right, Delegate: NoVertex})
	g.edges[edgeKey{left, id}] = &Edge{Src: left, Dst: id, Shuffle: leftShuffle}
	g.edges[edgeKey{right, id}] = &Edge{Src: right, Dst: id, Shuffle: rightShuffle}
	return id, nil
}

func checkChainTail(fns []ProcessorFunction) error {
	for _, fn := range fns {
		if !fn.Operator.IsUnary() {
			return core.InvalidPlan("operator %s cannot be chained as a unary stage", fn.Operator)
		}
	}
	return nil
}

func (g *Graph) append(v *Vertex) VertexID {
	v.ID = VertexID(len(g.vertices))
	g.vertices = append(g.vertices, v)
	return v.ID
}

// Validate 校验算子参数及其引用的点/边类型
func (g *Graph) Validate(s *schema.GraphSchema) error {
	if len(g.vertices) == 0 {
		return core.InvalidPlan("plan %s has no vertices", g.ID)
	}
	for _, v := range g.vertices {
		for _, in := range v.Inputs() {
			if in >= v.ID {
				return core.DependencyOrderViolation("vertex %d consumes vertex %d which is not appended before it", v.ID, in)
			}
		}
		for _, fn := range v.Functions {
			if fn.Selectivity < 0 || fn.Selectivity > 1 {
				return core.InvalidPlan("vertex %d: selectivity %v out of range [0,1]", v.ID, fn.Selectivity)
			}
			if fn.RecordWidth < 0 || fn.CostFactor < 0 {
				return core.InvalidPlan("vertex %d: negative record width or cost factor", v.ID)
			}
			if fn.Operator == OpLimit && fn.Limit < 0 {
				return core.InvalidPlan("vertex %d: negative limit %d", v.ID, fn.Limit)
			}
			if s == nil {
				continue
			}
			if _, err := s.ResolveVertexLabels(fn.VertexLabels); err != nil {
				return core.WrapError(err, core.ErrCodeSchemaInconsistency, "plan rejected")
			}
			if _, err := s.ResolveEdgeLabels(fn.EdgeLabels); err != nil {
				return core.WrapError(err, core.ErrCodeSchemaInconsistency, "plan rejected")
			}
		}
	}
	return nil
}

// Clone 深拷贝计划图（含估算结果），新图分配新的 ID
func (g *Graph) Clone() *Graph {
	out := &Graph{
		ID:       uuid.NewString(),
		vertices: make([]*Vertex, len(g.vertices)),
		edges:    make(map[edgeKey]*Edge, len(g.edges)),
	}
	for i, v := range g.vertices {
		out.vertices[i] = v.clone()
	}
	for k, e := range g.edges {
		copied := *e
		out.edges[k] = &copied
	}
	return out
}

// ResetEstimates 清除所有顶点的估算结果
func (g *Graph) ResetEstimates() {
	for _, v := range g.vertices {
		v.resetEstimates()
	}
}

// SetShuffle 修改已有计划边的分发策略，用于生成 what-if 计划变体
func (g *Graph) SetShuffle(src, dst VertexID, shuffle ShuffleType) error {
	e, ok := g.edges[edgeKey{src, dst}]
	if !ok {
		return core.InvalidPlan("no edge %d->%d", src, dst)
	}
	e.Shuffle = shuffle
	return nil
}
