package statsource

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
)

// FileSource 从 JSON 或 YAML 文件读取 Catalog，格式由扩展名决定
type FileSource struct {
	Path string
}

// NewFileSource 创建文件来源
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (fs *FileSource) Name() string {
	return "file:" + fs.Path
}

// Load 读取并校验文件
func (fs *FileSource) Load(ctx context.Context) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fs.Path)
	if err != nil {
		return nil, core.SourceLoad(err, "read statistics file %s", fs.Path)
	}
	doc, err := DecodeDocument(data, formatOf(fs.Path))
	if err != nil {
		return nil, core.SourceLoad(err, "parse statistics file %s", fs.Path)
	}
	return doc.Catalog()
}

// Save 写入 Catalog
func (fs *FileSource) Save(c *Catalog) error {
	data, err := EncodeDocument(NewDocument(c), formatOf(fs.Path))
	if err != nil {
		return err
	}
	return os.WriteFile(fs.Path, data, 0o644)
}

func formatOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
