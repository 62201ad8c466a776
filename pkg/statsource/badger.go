package statsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
)

const (
	// PrefixCatalog catalog 文档前缀
	PrefixCatalog = "catalog:"
	// CurrentCatalog 当前 catalog 的 key
	CurrentCatalog = "current"
)

// BadgerSource 将 Catalog 以 JSON 文档形式持久化在 Badger 中
// 每个版本一个 key，格式 catalog:{name}
type BadgerSource struct {
	mu       sync.Mutex
	dir      string
	inMemory bool
	key      string
	db       *badger.DB
}

// NewBadgerSource 创建 Badger 来源；dir 为空时使用内存模式
func NewBadgerSource(dir string) *BadgerSource {
	return &BadgerSource{dir: dir, inMemory: dir == "", key: CurrentCatalog}
}

// WithCatalog 切换读写的 catalog 名称
func (bs *BadgerSource) WithCatalog(name string) *BadgerSource {
	bs.key = name
	return bs
}

func (bs *BadgerSource) Name() string {
	if bs.inMemory {
		return "badger:memory"
	}
	return "badger:" + bs.dir
}

func (bs *BadgerSource) open() (*badger.DB, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if bs.db != nil {
		return bs.db, nil
	}

	var opts badger.Options
	if bs.inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(bs.dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	bs.db = db
	return db, nil
}

// Close 关闭数据库
func (bs *BadgerSource) Close() error {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if bs.db == nil {
		return nil
	}
	if err := bs.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	bs.db = nil
	return nil
}

// Save 写入 Catalog
func (bs *BadgerSource) Save(ctx context.Context, c *Catalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(NewDocument(c))
	if err != nil {
		return err
	}
	db, err := bs.open()
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set(catalogKey(bs.key), data)
	})
}

// Load 读取 Catalog
func (bs *BadgerSource) Load(ctx context.Context) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, err := bs.open()
	if err != nil {
		return nil, core.SourceLoad(err, "open %s", bs.Name())
	}

	var doc Document
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(catalogKey(bs.key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, core.SourceLoad(err, "catalog %q not found in %s", bs.key, bs.Name())
	}
	if err != nil {
		return nil, core.SourceLoad(err, "read catalog %q", bs.key)
	}
	return doc.Catalog()
}

// Catalogs 列出已保存的 catalog 名称
func (bs *BadgerSource) Catalogs() ([]string, error) {
	db, err := bs.open()
	if err != nil {
		return nil, err
	}
	var names []string
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(PrefixCatalog)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, string(it.Item().Key()[len(PrefixCatalog):]))
		}
		return nil
	})
	return names, err
}

func catalogKey(name string) []byte {
	return []byte(PrefixCatalog + name)
}
