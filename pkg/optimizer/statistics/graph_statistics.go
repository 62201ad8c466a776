package statistics

import (
	"sort"
	"sync"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/schema"
)

// Snapshot 统计信息快照（采样或精确）
type Snapshot struct {
	VertexCounts map[string]int64 `json:"vertex_counts" yaml:"vertex_counts"`
	EdgeCounts   map[string]int64 `json:"edge_counts" yaml:"edge_counts"`
	// RelationCounts 可选：多态边类型每个 (src, dst) 关系的边数
	RelationCounts []RelationCount `json:"relation_counts,omitempty" yaml:"relation_counts,omitempty"`
}

// RelationCount 单个关系的边数
type RelationCount struct {
	Edge  string `json:"edge" yaml:"edge"`
	Src   string `json:"src" yaml:"src"`
	Dst   string `json:"dst" yaml:"dst"`
	Count int64  `json:"count" yaml:"count"`
}

type relationKey struct {
	edge, src, dst string
}

// GraphStatistics 图统计信息
// 初始化一次后只读，可被并发规划的查询共享
type GraphStatistics struct {
	mu             sync.RWMutex
	schema         *schema.GraphSchema
	vertexCounts   map[string]int64
	edgeCounts     map[string]int64
	relationCounts map[relationKey]int64
	initialized    bool
}

// NewGraphStatistics 创建未初始化的统计信息
func NewGraphStatistics() *GraphStatistics {
	return &GraphStatistics{}
}

// NewInitializedGraphStatistics 创建并初始化
func NewInitializedGraphStatistics(s *schema.GraphSchema, snap *Snapshot) (*GraphStatistics, error) {
	gs := NewGraphStatistics()
	if err := gs.Initialize(s, snap); err != nil {
		return nil, err
	}
	return gs, nil
}

// Initialize 用快照填充统计信息
// schema 中存在但快照缺失的类型计为 0
func (gs *GraphStatistics) Initialize(s *schema.GraphSchema, snap *Snapshot) error {
	if s == nil {
		return core.InvalidPlan("graph statistics require a schema")
	}
	if snap == nil {
		snap = &Snapshot{}
	}

	vertexCounts := make(map[string]int64, len(snap.VertexCounts))
	for label, count := range snap.VertexCounts {
		if !s.HasVertexType(label) {
			return core.SchemaInconsistency("statistics reference unknown vertex type %q", label)
		}
		if count < 0 {
			return core.SchemaInconsistency("negative count %d for vertex type %q", count, label)
		}
		vertexCounts[label] = count
	}

	edgeCounts := make(map[string]int64, len(snap.EdgeCounts))
	for label, count := range snap.EdgeCounts {
		if !s.HasEdgeType(label) {
			return core.SchemaInconsistency("statistics reference unknown edge type %q", label)
		}
		if count < 0 {
			return core.SchemaInconsistency("negative count %d for edge type %q", count, label)
		}
		edgeCounts[label] = count
	}

	relationCounts := make(map[relationKey]int64, len(snap.RelationCounts))
	for _, rc := range snap.RelationCounts {
		et, ok := s.EdgeType(rc.Edge)
		if !ok {
			return core.SchemaInconsistency("relation count references unknown edge type %q", rc.Edge)
		}
		if !hasRelation(et, rc.Src, rc.Dst) {
			return core.SchemaInconsistency("edge type %q has no relation %s->%s", rc.Edge, rc.Src, rc.Dst)
		}
		if rc.Count < 0 {
			return core.SchemaInconsistency("negative count %d for relation %s:%s->%s", rc.Count, rc.Edge, rc.Src, rc.Dst)
		}
		relationCounts[relationKey{rc.Edge, rc.Src, rc.Dst}] = rc.Count
	}

	// 只有关系计数时，边总数由关系汇总
	for key, count := range relationCounts {
		if _, ok := snap.EdgeCounts[key.edge]; !ok {
			edgeCounts[key.edge] += count
		}
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.schema = s
	gs.vertexCounts = vertexCounts
	gs.edgeCounts = edgeCounts
	gs.relationCounts = relationCounts
	gs.initialized = true

	debugf("graph statistics initialized: %d vertex types, %d edge types", len(vertexCounts), len(edgeCounts))
	return nil
}

func hasRelation(et *schema.EdgeType, src, dst string) bool {
	for _, r := range et.Relations {
		if r.Src == src && r.Dst == dst {
			return true
		}
	}
	return false
}

// Reset 清空统计信息，回到未初始化状态
func (gs *GraphStatistics) Reset() {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.schema = nil
	gs.vertexCounts = nil
	gs.edgeCounts = nil
	gs.relationCounts = nil
	gs.initialized = false
}

// IsInitialized 是否已初始化
func (gs *GraphStatistics) IsInitialized() bool {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.initialized
}

// Schema 返回初始化时的 schema
func (gs *GraphStatistics) Schema() (*schema.GraphSchema, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if !gs.initialized {
		return nil, core.NotInitialized("graph schema")
	}
	return gs.schema, nil
}

// VertexCount 返回点类型的实例数
func (gs *GraphStatistics) VertexCount(label string) (int64, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if !gs.initialized {
		return 0, core.NotInitialized("vertex count")
	}
	if !gs.schema.HasVertexType(label) {
		return 0, core.SchemaInconsistency("unknown vertex type %q", label)
	}
	return gs.vertexCounts[label], nil
}

// EdgeCount 返回边类型在所有关系上汇总的边数
func (gs *GraphStatistics) EdgeCount(label string) (int64, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if !gs.initialized {
		return 0, core.NotInitialized("edge count")
	}
	if !gs.schema.HasEdgeType(label) {
		return 0, core.SchemaInconsistency("unknown edge type %q", label)
	}
	return gs.edgeCounts[label], nil
}

// Element 返回边类型的 src/dst 点类型
func (gs *GraphStatistics) Element(label string) (srcTypes, dstTypes []string, err error) {
	s, err := gs.Schema()
	if err != nil {
		return nil, nil, err
	}
	return s.Element(label)
}

// RelationCount 返回某个关系上的边数
// 没有显式关系计数时，边总数在该边类型的所有关系上平均分配
func (gs *GraphStatistics) RelationCount(edge, src, dst string) (float64, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if !gs.initialized {
		return 0, core.NotInitialized("relation count")
	}
	et, ok := gs.schema.EdgeType(edge)
	if !ok {
		return 0, core.SchemaInconsistency("unknown edge type %q", edge)
	}
	if !hasRelation(et, src, dst) {
		return 0, core.SchemaInconsistency("edge type %q has no relation %s->%s", edge, src, dst)
	}
	return gs.relationCountLocked(et, schema.Relation{Src: src, Dst: dst}), nil
}

func (gs *GraphStatistics) relationCountLocked(et *schema.EdgeType, rel schema.Relation) float64 {
	if count, ok := gs.relationCounts[relationKey{et.Label, rel.Src, rel.Dst}]; ok {
		return float64(count)
	}
	return float64(gs.edgeCounts[et.Label]) / float64(len(et.Relations))
}

// ratioLocked 计算扇出比：关系边数 / 端点类型实例数，端点类型为空时为 0
func (gs *GraphStatistics) ratioLocked(et *schema.EdgeType, rel schema.Relation, endpoint string) float64 {
	vertices := gs.vertexCounts[endpoint]
	if vertices == 0 {
		return 0
	}
	return gs.relationCountLocked(et, rel) / float64(vertices)
}

// Seed 以点类型实例数生成初始 NodeStatistics，labels 为空时包含所有点类型
func (gs *GraphStatistics) Seed(labels []string) (NodeStatistics, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if !gs.initialized {
		return NodeStatistics{}, core.NotInitialized("vertex count")
	}
	resolved, err := gs.schema.ResolveVertexLabels(labels)
	if err != nil {
		return NodeStatistics{}, err
	}
	ns := NewNodeStatistics()
	for _, label := range resolved {
		ns.Add(label, float64(gs.vertexCounts[label]))
	}
	return ns, nil
}

// Snapshot 导出当前统计信息
func (gs *GraphStatistics) Snapshot() (*Snapshot, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if !gs.initialized {
		return nil, core.NotInitialized("graph statistics")
	}
	snap := &Snapshot{
		VertexCounts: make(map[string]int64, len(gs.vertexCounts)),
		EdgeCounts:   make(map[string]int64, len(gs.edgeCounts)),
	}
	for k, v := range gs.vertexCounts {
		snap.VertexCounts[k] = v
	}
	for k, v := range gs.edgeCounts {
		snap.EdgeCounts[k] = v
	}
	for k, v := range gs.relationCounts {
		snap.RelationCounts = append(snap.RelationCounts, RelationCount{Edge: k.edge, Src: k.src, Dst: k.dst, Count: v})
	}
	sort.Slice(snap.RelationCounts, func(i, j int) bool {
		a, b := snap.RelationCounts[i], snap.RelationCounts[j]
		if a.Edge != b.Edge {
			return a.Edge < b.Edge
		}
		if a.Src != b.Src {
			return a.Src < b.Src
		}
		return a.Dst < b.Dst
	})
	return snap, nil
}
