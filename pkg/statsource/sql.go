package statsource

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/schema"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/statistics"
)

const (
	vertexStatsTable = "graph_vertex_stats"
	edgeStatsTable   = "graph_edge_stats"
)

// SQLSource 从关系库读取 Catalog
// graph_vertex_stats(label, type_id, vertex_count)
// graph_edge_stats(label, type_id, src_label, dst_label, edge_count)，每行一个关系
type SQLSource struct {
	mu      sync.Mutex
	dialect Dialect
	dsn     string
	db      *sql.DB
}

// NewSQLSource 创建 SQL 来源，连接在首次使用时建立
func NewSQLSource(driver, dsn string) (*SQLSource, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	if err := d.ValidateDSN(dsn); err != nil {
		return nil, fmt.Errorf("invalid %s dsn: %w", d.DriverName(), err)
	}
	return &SQLSource{dialect: d, dsn: dsn}, nil
}

func (s *SQLSource) Name() string {
	return "sql:" + s.dialect.DriverName()
}

// Connect 打开连接池并检查连通性
func (s *SQLSource) Connect(ctx context.Context) error {
	_, err := s.conn(ctx)
	return err
}

func (s *SQLSource) conn(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}

	db, err := sql.Open(s.dialect.DriverName(), s.dsn)
	if err != nil {
		return nil, core.SourceLoad(err, "open %s", s.dialect.DriverName())
	}
	if n := s.dialect.MaxOpenConns(); n > 0 {
		db.SetMaxOpenConns(n)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, core.SourceLoad(err, "connect %s", s.dialect.DriverName())
	}
	s.db = db
	return db, nil
}

// Close 关闭连接池
func (s *SQLSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// EnsureTables 创建统计表（已存在时跳过）
func (s *SQLSource) EnsureTables(ctx context.Context) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	q := s.dialect.QuoteIdentifier
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (label VARCHAR(255) NOT NULL PRIMARY KEY, type_id BIGINT NOT NULL, vertex_count BIGINT NOT NULL)",
			q(vertexStatsTable)),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (label VARCHAR(255) NOT NULL, type_id BIGINT NOT NULL, src_label VARCHAR(255) NOT NULL, dst_label VARCHAR(255) NOT NULL, edge_count BIGINT NOT NULL, PRIMARY KEY (label, src_label, dst_label))",
			q(edgeStatsTable)),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create statistics table: %w", err)
		}
	}
	return nil
}

// Load 读取统计表
func (s *SQLSource) Load(ctx context.Context) (*Catalog, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	doc := &Document{Statistics: statistics.Snapshot{VertexCounts: map[string]int64{}}}
	if err := s.loadVertices(ctx, db, doc); err != nil {
		return nil, core.SourceLoad(err, "load vertex statistics")
	}
	if err := s.loadEdges(ctx, db, doc); err != nil {
		return nil, core.SourceLoad(err, "load edge statistics")
	}
	return doc.Catalog()
}

func (s *SQLSource) loadVertices(ctx context.Context, db *sql.DB, doc *Document) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		"SELECT label, type_id, vertex_count FROM %s ORDER BY type_id, label",
		s.dialect.QuoteIdentifier(vertexStatsTable)))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			vt    schema.VertexType
			count int64
		)
		if err := rows.Scan(&vt.Label, &vt.ID, &count); err != nil {
			return err
		}
		doc.VertexTypes = append(doc.VertexTypes, vt)
		doc.Statistics.VertexCounts[vt.Label] = count
	}
	return rows.Err()
}

func (s *SQLSource) loadEdges(ctx context.Context, db *sql.DB, doc *Document) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		"SELECT label, type_id, src_label, dst_label, edge_count FROM %s ORDER BY type_id, label, src_label, dst_label",
		s.dialect.QuoteIdentifier(edgeStatsTable)))
	if err != nil {
		return err
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var (
			label    string
			id       int64
			src, dst string
			count    int64
		)
		if err := rows.Scan(&label, &id, &src, &dst, &count); err != nil {
			return err
		}
		i, ok := index[label]
		if !ok {
			i = len(doc.EdgeTypes)
			index[label] = i
			doc.EdgeTypes = append(doc.EdgeTypes, schema.EdgeType{ID: id, Label: label})
		}
		doc.EdgeTypes[i].Relations = append(doc.EdgeTypes[i].Relations, schema.Relation{Src: src, Dst: dst})
		doc.Statistics.RelationCounts = append(doc.Statistics.RelationCounts, statistics.RelationCount{
			Edge: label, Src: src, Dst: dst, Count: count,
		})
	}
	return rows.Err()
}

// Save 在一个事务内覆盖写入 Catalog
// 没有关系级计数的边类型按关系均分，与估算时的处理一致
func (s *SQLSource) Save(ctx context.Context, c *Catalog) error {
	gs, err := c.GraphStatistics()
	if err != nil {
		return err
	}
	if err := s.EnsureTables(ctx); err != nil {
		return err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	q := s.dialect.QuoteIdentifier
	for _, table := range []string{vertexStatsTable, edgeStatsTable} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+q(table)); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	insertVertex := fmt.Sprintf("INSERT INTO %s (label, type_id, vertex_count) VALUES (%s)",
		q(vertexStatsTable), s.placeholders(3))
	for _, label := range c.Schema.VertexLabels() {
		vt, _ := c.Schema.VertexType(label)
		count, err := gs.VertexCount(label)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertVertex, label, vt.ID, count); err != nil {
			return fmt.Errorf("insert vertex %s: %w", label, err)
		}
	}

	insertEdge := fmt.Sprintf("INSERT INTO %s (label, type_id, src_label, dst_label, edge_count) VALUES (%s)",
		q(edgeStatsTable), s.placeholders(5))
	for _, label := range c.Schema.EdgeLabels() {
		et, _ := c.Schema.EdgeType(label)
		rels := append([]schema.Relation(nil), et.Relations...)
		sort.Slice(rels, func(i, j int) bool {
			if rels[i].Src != rels[j].Src {
				return rels[i].Src < rels[j].Src
			}
			return rels[i].Dst < rels[j].Dst
		})
		for _, rel := range rels {
			count, err := gs.RelationCount(label, rel.Src, rel.Dst)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, insertEdge, label, et.ID, rel.Src, rel.Dst, int64(math.Round(count))); err != nil {
				return fmt.Errorf("insert edge %s: %w", label, err)
			}
		}
	}
	return tx.Commit()
}

func (s *SQLSource) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = s.dialect.Placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}
