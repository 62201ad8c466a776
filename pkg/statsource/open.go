package statsource

import (
	"fmt"
	"time"

	"github.com/kasuganosora/graphcbo/pkg/logging"
)

// Kind 统计信息来源类型
type Kind string

const (
	KindFile   Kind = "file"
	KindSQL    Kind = "sql"
	KindBadger Kind = "badger"
)

// Options 来源配置
type Options struct {
	Kind Kind
	// Path 文件路径或 Badger 目录
	Path string
	// Driver/DSN 仅 sql 使用
	Driver string
	DSN    string
	// CacheTTL > 0 时包一层 CachedSource
	CacheTTL time.Duration
}

// Open 按配置创建来源
func Open(opts Options, logger logging.Logger) (Source, error) {
	var (
		src Source
		err error
	)
	switch opts.Kind {
	case KindFile, "":
		if opts.Path == "" {
			return nil, fmt.Errorf("file statistics source requires a path")
		}
		src = NewFileSource(opts.Path)
	case KindSQL:
		src, err = NewSQLSource(opts.Driver, opts.DSN)
	case KindBadger:
		src = NewBadgerSource(opts.Path)
	default:
		return nil, fmt.Errorf("unknown statistics source %q", opts.Kind)
	}
	if err != nil {
		return nil, err
	}
	if opts.CacheTTL > 0 {
		src = NewCachedSource(src, opts.CacheTTL, logger)
	}
	return src, nil
}

// Close 释放来源持有的连接
func Close(src Source) error {
	switch s := src.(type) {
	case *CachedSource:
		return Close(s.source)
	case interface{ Close() error }:
		return s.Close()
	}
	return nil
}
