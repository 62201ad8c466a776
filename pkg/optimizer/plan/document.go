package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
)

// Document 计划图的可序列化形式，顶点按依赖顺序排列
type Document struct {
	ID       string           `json:"id,omitempty" yaml:"id,omitempty"`
	Vertices []VertexDocument `json:"vertices" yaml:"vertices"`
}

// VertexDocument 顶点描述，输入按名称引用此前出现的顶点
type VertexDocument struct {
	Name      string              `json:"name" yaml:"name"`
	Kind      VertexKind          `json:"kind" yaml:"kind"`
	Functions []ProcessorFunction `json:"functions,omitempty" yaml:"functions,omitempty"`
	Input     *InputDocument      `json:"input,omitempty" yaml:"input,omitempty"`
	Left      *InputDocument      `json:"left,omitempty" yaml:"left,omitempty"`
	Right     *InputDocument      `json:"right,omitempty" yaml:"right,omitempty"`
	Delegate  string              `json:"delegate,omitempty" yaml:"delegate,omitempty"`
}

// InputDocument 输入引用及其计划边的分发策略
type InputDocument struct {
	Vertex  string      `json:"vertex" yaml:"vertex"`
	Shuffle ShuffleType `json:"shuffle" yaml:"shuffle"`
}

// DocumentSet 一组候选计划
type DocumentSet struct {
	Plans []Document `json:"plans" yaml:"plans"`
}

// FromDocument 由文档构造计划图
func FromDocument(doc Document) (*Graph, error) {
	g := NewGraph()
	if doc.ID != "" {
		g.ID = doc.ID
	}

	ids := make(map[string]VertexID, len(doc.Vertices))
	resolve := func(owner, name string) (VertexID, error) {
		id, ok := ids[name]
		if !ok {
			return NoVertex, core.DependencyOrderViolation("vertex %q references %q which is not declared before it", owner, name)
		}
		return id, nil
	}

	for _, vd := range doc.Vertices {
		if vd.Name == "" {
			return nil, core.InvalidPlan("vertex without name")
		}
		if _, dup := ids[vd.Name]; dup {
			return nil, core.InvalidPlan("duplicate vertex name %q", vd.Name)
		}

		var (
			id  VertexID
			err error
		)
		switch vd.Kind {
		case KindSource:
			if vd.Delegate != "" {
				delegate, rerr := resolve(vd.Name, vd.Delegate)
				if rerr != nil {
					return nil, rerr
				}
				id, err = g.AddDelegateSource(delegate)
			} else {
				id, err = g.AddSource(vd.Functions...)
			}
		case KindUnary:
			if vd.Input == nil {
				return nil, core.InvalidPlan("unary vertex %q has no input", vd.Name)
			}
			in, rerr := resolve(vd.Name, vd.Input.Vertex)
			if rerr != nil {
				return nil, rerr
			}
			id, err = g.AddUnary(in, vd.Input.Shuffle, vd.Functions...)
		case KindBinary:
			if vd.Left == nil || vd.Right == nil {
				return nil, core.InvalidPlan("binary vertex %q needs left and right inputs", vd.Name)
			}
			if len(vd.Functions) != 1 {
				return nil, core.InvalidPlan("binary vertex %q needs exactly one function", vd.Name)
			}
			left, rerr := resolve(vd.Name, vd.Left.Vertex)
			if rerr != nil {
				return nil, rerr
			}
			right, rerr := resolve(vd.Name, vd.Right.Vertex)
			if rerr != nil {
				return nil, rerr
			}
			id, err = g.AddBinary(left, vd.Left.Shuffle, right, vd.Right.Shuffle, vd.Functions[0])
		default:
			return nil, core.InvalidPlan("vertex %q has unknown kind %v", vd.Name, vd.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("vertex %q: %w", vd.Name, err)
		}
		ids[vd.Name] = id
	}
	return g, nil
}

// Document 导出为文档，顶点名为 v<id>
func (g *Graph) Document() Document {
	name := func(id VertexID) string { return fmt.Sprintf("v%d", id) }
	input := func(src, dst VertexID) *InputDocument {
		e := g.edges[edgeKey{src, dst}]
		return &InputDocument{Vertex: name(src), Shuffle: e.Shuffle}
	}

	doc := Document{ID: g.ID, Vertices: make([]VertexDocument, 0, len(g.vertices))}
	for _, v := range g.vertices {
		vd := VertexDocument{Name: name(v.ID), Kind: v.Kind, Functions: v.clone().Functions}
		switch v.Kind {
		case KindSource:
			if v.IsDelegate() {
				vd.Delegate = name(v.Delegate)
			}
		case KindUnary:
			vd.Input = input(v.Input, v.ID)
		case KindBinary:
			vd.Left = input(v.Left, v.ID)
			vd.Right = input(v.Right, v.ID)
		}
		doc.Vertices = append(doc.Vertices, vd)
	}
	return doc
}

// ParseDocumentSet 解析 JSON 或 YAML 格式的候选计划集合
func ParseDocumentSet(data []byte, format string) (*DocumentSet, error) {
	var set DocumentSet
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("parse plan yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("parse plan json: %w", err)
		}
	}
	return &set, nil
}

// ReadDocumentSet 从文件读取候选计划，格式由扩展名决定
func ReadDocumentSet(path string) (*DocumentSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	return ParseDocumentSet(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// Graphs 将集合中的文档全部构造为计划图，计划 ID 不能重复
func (s *DocumentSet) Graphs() ([]*Graph, error) {
	graphs := make([]*Graph, 0, len(s.Plans))
	seen := make(map[string]int, len(s.Plans))
	for i, doc := range s.Plans {
		g, err := FromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("plan %d: %w", i, err)
		}
		if first, dup := seen[g.ID]; dup {
			return nil, core.InvalidPlan("plan %d: id %q already used by plan %d", i, g.ID, first)
		}
		seen[g.ID] = i
		graphs = append(graphs, g)
	}
	return graphs, nil
}
