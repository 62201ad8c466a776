// Package schema 描述优化器估算所依据的带类型属性图目录：
// 点类型，以及边类型和每种边类型可连接的 (src, dst) 点类型对
package schema

import (
	"sort"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
)

// VertexType 点类型标签及其数字 id
type VertexType struct {
	ID    int64  `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Relation 边类型可连接的一组 (src, dst) 点类型
type Relation struct {
	Src string `json:"src" yaml:"src"`
	Dst string `json:"dst" yaml:"dst"`
}

// EdgeType 边类型标签，可以是覆盖多组关系的多态边
type EdgeType struct {
	ID        int64      `json:"id" yaml:"id"`
	Label     string     `json:"label" yaml:"label"`
	Relations []Relation `json:"relations" yaml:"relations"`
}

// SrcTypes 返回去重排序后的源点类型
func (e *EdgeType) SrcTypes() []string {
	return distinct(e.Relations, func(r Relation) string { return r.Src })
}

// DstTypes 返回去重排序后的目标点类型
func (e *EdgeType) DstTypes() []string {
	return distinct(e.Relations, func(r Relation) string { return r.Dst })
}

func distinct(rels []Relation, key func(Relation) string) []string {
	seen := make(map[string]struct{}, len(rels))
	out := make([]string, 0, len(rels))
	for _, r := range rels {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// GraphSchema 不可变的点/边类型目录
// 构造完成后并发安全
type GraphSchema struct {
	vertices    map[string]*VertexType
	edges       map[string]*EdgeType
	vertexOrder []string
	edgeOrder   []string
}

// NewGraphSchema 构造并校验 schema
func NewGraphSchema(vertices []VertexType, edges []EdgeType) (*GraphSchema, error) {
	s := &GraphSchema{
		vertices: make(map[string]*VertexType, len(vertices)),
		edges:    make(map[string]*EdgeType, len(edges)),
	}

	vertexIDs := make(map[int64]string, len(vertices))
	for i := range vertices {
		v := vertices[i]
		if v.Label == "" {
			return nil, core.SchemaInconsistency("vertex type with id %d has an empty label", v.ID)
		}
		if _, dup := s.vertices[v.Label]; dup {
			return nil, core.SchemaInconsistency("duplicate vertex type %q", v.Label)
		}
		if other, dup := vertexIDs[v.ID]; dup {
			return nil, core.SchemaInconsistency("vertex types %q and %q share id %d", other, v.Label, v.ID)
		}
		vertexIDs[v.ID] = v.Label
		s.vertices[v.Label] = &v
		s.vertexOrder = append(s.vertexOrder, v.Label)
	}

	edgeIDs := make(map[int64]string, len(edges))
	for i := range edges {
		e := edges[i]
		if e.Label == "" {
			return nil, core.SchemaInconsistency("edge type with id %d has an empty label", e.ID)
		}
		if _, dup := s.edges[e.Label]; dup {
			return nil, core.SchemaInconsistency("duplicate edge type %q", e.Label)
		}
		if other, dup := edgeIDs[e.ID]; dup {
			return nil, core.SchemaInconsistency("edge types %q and %q share id %d", other, e.Label, e.ID)
		}
		edgeIDs[e.ID] = e.Label
		e.Relations = append([]Relation(nil), e.Relations...)
		s.edges[e.Label] = &e
		s.edgeOrder = append(s.edgeOrder, e.Label)
	}

	sort.Strings(s.vertexOrder)
	sort.Strings(s.edgeOrder)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate 校验每个关系的端点都是已知点类型
func (s *GraphSchema) Validate() error {
	for _, label := range s.edgeOrder {
		e := s.edges[label]
		if len(e.Relations) == 0 {
			return core.SchemaInconsistency("edge type %q has no relations", label)
		}
		for _, r := range e.Relations {
			if _, ok := s.vertices[r.Src]; !ok {
				return core.SchemaInconsistency("edge type %q references unknown source vertex type %q", label, r.Src)
			}
			if _, ok := s.vertices[r.Dst]; !ok {
				return core.SchemaInconsistency("edge type %q references unknown destination vertex type %q", label, r.Dst)
			}
		}
	}
	return nil
}

// VertexType 按标签查找点类型
func (s *GraphSchema) VertexType(label string) (*VertexType, bool) {
	v, ok := s.vertices[label]
	return v, ok
}

// EdgeType 按标签查找边类型
func (s *GraphSchema) EdgeType(label string) (*EdgeType, bool) {
	e, ok := s.edges[label]
	return e, ok
}

func (s *GraphSchema) HasVertexType(label string) bool {
	_, ok := s.vertices[label]
	return ok
}

func (s *GraphSchema) HasEdgeType(label string) bool {
	_, ok := s.edges[label]
	return ok
}

// VertexLabels 返回排序后的全部点标签
func (s *GraphSchema) VertexLabels() []string {
	return append([]string(nil), s.vertexOrder...)
}

// EdgeLabels 返回排序后的全部边标签
func (s *GraphSchema) EdgeLabels() []string {
	return append([]string(nil), s.edgeOrder...)
}

// Element 返回边类型连接的源点类型和目标点类型
func (s *GraphSchema) Element(label string) (srcTypes, dstTypes []string, err error) {
	e, ok := s.edges[label]
	if !ok {
		return nil, nil, core.SchemaInconsistency("unknown edge type %q", label)
	}
	return e.SrcTypes(), e.DstTypes(), nil
}

// ResolveEdgeLabels 按目录校验边标签过滤条件并去重
// 空过滤条件表示全部边类型
func (s *GraphSchema) ResolveEdgeLabels(filter []string) ([]string, error) {
	if len(filter) == 0 {
		return s.EdgeLabels(), nil
	}
	seen := make(map[string]struct{}, len(filter))
	out := make([]string, 0, len(filter))
	for _, label := range filter {
		if !s.HasEdgeType(label) {
			return nil, core.SchemaInconsistency("unknown edge type %q in label filter", label)
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out, nil
}

// ResolveVertexLabels 点类型版本的 ResolveEdgeLabels
func (s *GraphSchema) ResolveVertexLabels(filter []string) ([]string, error) {
	if len(filter) == 0 {
		return s.VertexLabels(), nil
	}
	seen := make(map[string]struct{}, len(filter))
	out := make([]string, 0, len(filter))
	for _, label := range filter {
		if !s.HasVertexType(label) {
			return nil, core.SchemaInconsistency("unknown vertex type %q", label)
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out, nil
}
