// Package statsource 从外部存储加载图 schema 及其统计快照
// 支持 JSON/YAML 文件、SQL 数据库和 Badger 目录
package statsource

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/schema"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/statistics"
)

// Catalog schema 及为其收集的统计信息
type Catalog struct {
	Schema   *schema.GraphSchema
	Snapshot *statistics.Snapshot
}

// Source Catalog 来源
type Source interface {
	Name() string
	Load(ctx context.Context) (*Catalog, error)
}

// GraphStatistics 由目录构造已初始化的统计信息
func (c *Catalog) GraphStatistics() (*statistics.GraphStatistics, error) {
	return statistics.NewInitializedGraphStatistics(c.Schema, c.Snapshot)
}

// Document Catalog 的序列化形式
type Document struct {
	VertexTypes []schema.VertexType `json:"vertex_types" yaml:"vertex_types"`
	EdgeTypes   []schema.EdgeType   `json:"edge_types" yaml:"edge_types"`
	Statistics  statistics.Snapshot `json:"statistics" yaml:"statistics"`
}

// Catalog 校验文档并构造 Catalog
func (d *Document) Catalog() (*Catalog, error) {
	s, err := schema.NewGraphSchema(d.VertexTypes, d.EdgeTypes)
	if err != nil {
		return nil, err
	}
	snap := d.Statistics
	// 提前校验，避免调用方拿到无法初始化的 Catalog
	if _, err := statistics.NewInitializedGraphStatistics(s, &snap); err != nil {
		return nil, err
	}
	return &Catalog{Schema: s, Snapshot: &snap}, nil
}

// NewDocument 把 Catalog 转回序列化形式
func NewDocument(c *Catalog) *Document {
	d := &Document{}
	for _, label := range c.Schema.VertexLabels() {
		vt, _ := c.Schema.VertexType(label)
		d.VertexTypes = append(d.VertexTypes, *vt)
	}
	for _, label := range c.Schema.EdgeLabels() {
		et, _ := c.Schema.EdgeType(label)
		copied := *et
		copied.Relations = append([]schema.Relation(nil), et.Relations...)
		d.EdgeTypes = append(d.EdgeTypes, copied)
	}
	if c.Snapshot != nil {
		d.Statistics = *c.Snapshot
	}
	return d
}

// DecodeDocument 解析目录文档，format 为 "json"、"yaml" 或 "yml"
func DecodeDocument(data []byte, format string) (*Document, error) {
	var d Document
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decode catalog yaml: %w", err)
		}
	case "json", "":
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decode catalog json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
	return &d, nil
}

// EncodeDocument 序列化目录文档
func EncodeDocument(d *Document, format string) ([]byte, error) {
	switch format {
	case "yaml", "yml":
		return yaml.Marshal(d)
	case "json", "":
		return json.MarshalIndent(d, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
}
