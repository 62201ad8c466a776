package schema

// Builder 逐步构造 GraphSchema，点/边 id 按添加顺序自动分配
type Builder struct {
	vertices []VertexType
	edges    []EdgeType
	index    map[string]int
}

// NewBuilder 创建 schema 构造器
func NewBuilder() *Builder {
	return &Builder{index: make(map[string]int)}
}

// Vertex 添加点类型
func (b *Builder) Vertex(label string) *Builder {
	b.vertices = append(b.vertices, VertexType{ID: int64(len(b.vertices) + 1), Label: label})
	return b
}

// Edge 添加一条 (src, dst) 关系；同名边类型的多次调用合并为多态边类型
func (b *Builder) Edge(label, src, dst string) *Builder {
	rel := Relation{Src: src, Dst: dst}
	if i, ok := b.index[label]; ok {
		b.edges[i].Relations = append(b.edges[i].Relations, rel)
		return b
	}
	b.index[label] = len(b.edges)
	b.edges = append(b.edges, EdgeType{
		ID:        int64(len(b.edges) + 1),
		Label:     label,
		Relations: []Relation{rel},
	})
	return b
}

// Build 构造并校验 schema
func (b *Builder) Build() (*GraphSchema, error) {
	return NewGraphSchema(b.vertices, b.edges)
}
