package statistics

import (
	"fmt"
	"strings"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
)

// Direction 遍历方向
type Direction int

const (
	DirectionOut Direction = iota
	DirectionIn
	DirectionBoth
)

func (d Direction) String() string {
	switch d {
	case DirectionOut:
		return "OUT"
	case DirectionIn:
		return "IN"
	case DirectionBoth:
		return "BOTH"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection 解析 out/in/both（大小写不敏感）
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OUT":
		return DirectionOut, nil
	case "IN":
		return DirectionIn, nil
	case "BOTH":
		return DirectionBoth, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(d.String())), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Propagate 估算从 start 出发沿 dir 方向走一跳后到达的 NodeStatistics
//
// 对起点类型 v（估算数 c_v）、过滤后的每个边类型 e 及其每个关系 (src, dst)：
//   OUT: src == v 时向 dst 贡献 c_v * relCount(e, src, dst) / vertexCount(src)
//   IN:  dst == v 时向 src 贡献 c_v * relCount(e, src, dst) / vertexCount(dst)
// 贡献按目标类型累加。BOTH 为 OUT 与 IN 结果的加法合并，统计的是遍历事件
// 而非去重后的目标点，同时可经出边和入边到达的点会被计两次。
//
// edgeLabels 为空时考虑所有边类型。函数无状态，不修改 start。
func Propagate(start NodeStatistics, gs *GraphStatistics, dir Direction, edgeLabels []string) (NodeStatistics, error) {
	switch dir {
	case DirectionOut, DirectionIn:
		return propagate(start, gs, dir, edgeLabels)
	case DirectionBoth:
		out, err := propagate(start, gs, DirectionOut, edgeLabels)
		if err != nil {
			return NodeStatistics{}, err
		}
		in, err := propagate(start, gs, DirectionIn, edgeLabels)
		if err != nil {
			return NodeStatistics{}, err
		}
		return out.Merge(in), nil
	default:
		return NodeStatistics{}, fmt.Errorf("unsupported direction %v", dir)
	}
}

// PropagateOut is Propagate with DirectionOut.
func PropagateOut(start NodeStatistics, gs *GraphStatistics, edgeLabels ...string) (NodeStatistics, error) {
	return Propagate(start, gs, DirectionOut, edgeLabels)
}

// PropagateIn is Propagate with DirectionIn.
func PropagateIn(start NodeStatistics, gs *GraphStatistics, edgeLabels ...string) (NodeStatistics, error) {
	return Propagate(start, gs, DirectionIn, edgeLabels)
}

// PropagateBoth is Propagate with DirectionBoth.
func PropagateBoth(start NodeStatistics, gs *GraphStatistics, edgeLabels ...string) (NodeStatistics, error) {
	return Propagate(start, gs, DirectionBoth, edgeLabels)
}

func propagate(start NodeStatistics, gs *GraphStatistics, dir Direction, edgeLabels []string) (NodeStatistics, error) {
	if gs == nil {
		return NodeStatistics{}, core.NotInitialized("graph statistics")
	}

	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if !gs.initialized {
		return NodeStatistics{}, core.NotInitialized("graph statistics")
	}

	labels, err := gs.schema.ResolveEdgeLabels(edgeLabels)
	if err != nil {
		return NodeStatistics{}, err
	}

	result := NewNodeStatistics()
	for _, v := range start.Labels() {
		if !gs.schema.HasVertexType(v) {
			return NodeStatistics{}, core.SchemaInconsistency("node statistics reference unknown vertex type %q", v)
		}
		cv := start.Get(v)
		for _, label := range labels {
			et, _ := gs.schema.EdgeType(label)
			for _, rel := range et.Relations {
				switch dir {
				case DirectionOut:
					if rel.Src == v {
						result.Add(rel.Dst, cv*gs.ratioLocked(et, rel, rel.Src))
					}
				case DirectionIn:
					if rel.Dst == v {
						result.Add(rel.Src, cv*gs.ratioLocked(et, rel, rel.Dst))
					}
				}
			}
		}
	}

	debugf("propagate %s %v via %v -> %s", dir, start, labels, result)
	return result, nil
}
