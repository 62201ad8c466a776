// Package selector 按成本顺序保存已估算的候选计划并选出最便宜的一个
package selector

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/btree"

	"github.com/kasuganosora/graphcbo/pkg/logging"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/cost"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/plan"
	"github.com/kasuganosora/graphcbo/pkg/workerpool"
)

const btreeDegree = 16

// PlanCoster 估算计划成本
type PlanCoster interface {
	EstimatePlan(g *plan.Graph) (*cost.PlanCost, error)
}

// Options 选择器配置
type Options struct {
	Comparator cost.Comparator
	// MaxCandidates 最多保留的候选数，超出时淘汰最贵的，0 表示不限
	MaxCandidates int
	Logger        logging.Logger
}

// Selector 候选计划有序集合
// 并发安全
type Selector struct {
	mu     sync.Mutex
	cmp    cost.Comparator
	max    int
	tree   *btree.BTreeG[*CostsPlanPair]
	byID   map[string]*CostsPlanPair
	logger logging.Logger
}

// New 创建选择器
func New(opts Options) *Selector {
	if opts.Comparator.Policy == "" {
		opts.Comparator = cost.DefaultComparator()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNoOpLogger()
	}
	cmp := opts.Comparator
	return &Selector{
		cmp: cmp,
		max: opts.MaxCandidates,
		tree: btree.NewG(btreeDegree, func(a, b *CostsPlanPair) bool {
			return a.Compare(b, cmp) < 0
		}),
		byID:   make(map[string]*CostsPlanPair),
		logger: opts.Logger,
	}
}

// Comparator 返回使用的比较器
func (s *Selector) Comparator() cost.Comparator {
	return s.cmp
}

// Offer 加入候选；同 ID 只保留成本更低的一个，成本相同时保留新的
// 返回候选在加入后是否仍被保留
func (s *Selector) Offer(p *CostsPlanPair) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byID[p.PlanID()]; ok {
		if s.cmp.Compare(old.Costs(), p.Costs()) < 0 {
			s.logger.Debug("[SELECT] plan %s kept over %s", old, p)
			return false
		}
		s.tree.Delete(old)
	}
	s.tree.ReplaceOrInsert(p)
	s.byID[p.PlanID()] = p

	kept := true
	for s.max > 0 && s.tree.Len() > s.max {
		evicted, _ := s.tree.DeleteMax()
		delete(s.byID, evicted.PlanID())
		if evicted == p {
			kept = false
		}
		s.logger.Debug("[SELECT] evicted plan %s", evicted)
	}
	return kept
}

// Best 返回最便宜的候选
func (s *Selector) Best() (*CostsPlanPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Min()
}

// TopK 按成本升序返回前 k 个候选，k <= 0 时返回全部
func (s *Selector) TopK(k int) []*CostsPlanPair {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k <= 0 || k > s.tree.Len() {
		k = s.tree.Len()
	}
	out := make([]*CostsPlanPair, 0, k)
	s.tree.Ascend(func(p *CostsPlanPair) bool {
		out = append(out, p)
		return len(out) < k
	})
	return out
}

// Len 候选数
func (s *Selector) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Len()
}

// Get 按计划 ID 查找
func (s *Selector) Get(planID string) (*CostsPlanPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[planID]
	return p, ok
}

// Reset 清空候选
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Clear(false)
	s.byID = make(map[string]*CostsPlanPair)
}

// RankPlans 在工作池上并发估算候选计划并加入选择器
// 每个计划只由一个 goroutine 估算；估算失败的计划被跳过，错误按输入顺序返回
func (s *Selector) RankPlans(ctx context.Context, pool *workerpool.Pool, coster PlanCoster, plans []*plan.Graph) []error {
	outcomes := workerpool.Map(ctx, pool, plans, func(_ context.Context, g *plan.Graph) (*cost.PlanCost, error) {
		return coster.EstimatePlan(g)
	})

	var errs []error
	for _, o := range outcomes {
		g := plans[o.Index]
		if o.Err != nil {
			id := "<nil>"
			if g != nil {
				id = g.ID
			}
			s.logger.Warn("[SELECT] plan %s skipped: %v", id, o.Err)
			errs = append(errs, fmt.Errorf("plan %s: %w", id, o.Err))
			continue
		}
		s.Offer(NewCostsPlanPairWithDetail(o.Value, g))
	}
	return errs
}
