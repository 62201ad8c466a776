// Package optimizer 图查询的基于代价的优化器
//
// Optimizer 组合统计信息、成本估算器和计划选择器：
// 对单个逻辑计划给出成本，对一组候选计划并发估算后按成本排序。
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kasuganosora/graphcbo/pkg/config"
	"github.com/kasuganosora/graphcbo/pkg/logging"
	"github.com/kasuganosora/graphcbo/pkg/monitor"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/cost"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/plan"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/selector"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/statistics"
	"github.com/kasuganosora/graphcbo/pkg/workerpool"
)

// Optimizer 优化器
type Optimizer struct {
	gs            *statistics.GraphStatistics
	estimator     *cost.Estimator
	comparator    cost.Comparator
	maxCandidates int
	pool          *workerpool.Pool
	metrics       *monitor.MetricsCollector
	logger        logging.Logger
}

// NewOptimizer 按配置创建优化器，cfg 为 nil 时使用默认配置
// 返回的优化器持有一个工作池，用完需 Close
func NewOptimizer(cfg *config.Config, gs *statistics.GraphStatistics, logger logging.Logger) (*Optimizer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if gs == nil || !gs.IsInitialized() {
		return nil, core.NotInitialized("graph statistics")
	}

	model, err := cfg.Optimizer.Model()
	if err != nil {
		return nil, err
	}
	cmp, err := cfg.Optimizer.Comparator()
	if err != nil {
		return nil, fmt.Errorf("optimizer config: %w", err)
	}

	pool, err := workerpool.New(cfg.Selector.PoolConfig())
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	if err := pool.Start(); err != nil {
		return nil, fmt.Errorf("start worker pool: %w", err)
	}

	logger.Info("[OPTIMIZER] policy=%s weights=cpu:%.4f/network:%.4f join_build_weight=%.2f workers=%d",
		cmp.Policy, cmp.Weights.CPU, cmp.Weights.Network, model.JoinBuildWeight, pool.WorkerCount())

	return &Optimizer{
		gs:            gs,
		estimator:     cost.NewEstimator(gs, model, logger),
		comparator:    cmp,
		maxCandidates: cfg.Selector.MaxCandidates,
		pool:          pool,
		metrics:       monitor.NewMetricsCollector(cfg.Monitor.SlowThreshold),
		logger:        logger,
	}, nil
}

// Comparator 返回排序使用的比较器
func (o *Optimizer) Comparator() cost.Comparator {
	return o.comparator
}

// Statistics 返回优化器使用的图统计信息
func (o *Optimizer) Statistics() *statistics.GraphStatistics {
	return o.gs
}

// Metrics 返回估算指标
func (o *Optimizer) Metrics() *monitor.MetricsCollector {
	return o.metrics
}

// CostQueryPlan 估算单个计划的总成本
func (o *Optimizer) CostQueryPlan(g *plan.Graph) (cost.Costs, error) {
	pc, err := o.EstimatePlan(g)
	if err != nil {
		return cost.Costs{}, err
	}
	return pc.Total, nil
}

// EstimatePlan 估算单个计划，返回总成本与逐顶点成本
func (o *Optimizer) EstimatePlan(g *plan.Graph) (*cost.PlanCost, error) {
	o.metrics.StartEstimate()
	defer o.metrics.EndEstimate()

	start := time.Now()
	pc, err := o.estimator.EstimatePlan(g)
	o.metrics.RecordPlan(time.Since(start), err, operators(g))
	return pc, err
}

// Rank 并发估算候选计划并按成本从低到高返回
// 同一个计划对象重复出现时只估算一次；不同计划使用相同 ID 时后出现的以 InvalidPlan 拒绝。
// 被拒绝和估算失败的候选都被跳过，重复 ID 的错误在前，估算错误按输入顺序在后
func (o *Optimizer) Rank(ctx context.Context, plans []*plan.Graph) ([]*selector.CostsPlanPair, []error) {
	sel := selector.New(selector.Options{
		Comparator:    o.comparator,
		MaxCandidates: o.maxCandidates,
		Logger:        o.logger,
	})
	candidates, errs := distinctPlans(plans)
	errs = append(errs, sel.RankPlans(ctx, o.pool, o, candidates)...)
	ranked := sel.TopK(0)
	o.logger.Debug("[OPTIMIZER] ranked %d of %d plans", len(ranked), len(plans))
	return ranked, errs
}

// Best 返回成本最低的计划；没有任何候选估算成功时返回错误
func (o *Optimizer) Best(ctx context.Context, plans []*plan.Graph) (*selector.CostsPlanPair, error) {
	if len(plans) == 0 {
		return nil, core.InvalidPlan("no candidate plans")
	}
	ranked, errs := o.Rank(ctx, plans)
	if len(ranked) == 0 {
		return nil, core.WrapError(errors.Join(errs...), core.ErrCodeInvalidPlan, "no candidate plan could be costed")
	}
	return ranked[0], nil
}

// Explain 估算计划后输出每个顶点的估算值和成本
func (o *Optimizer) Explain(g *plan.Graph) (string, error) {
	pc, err := o.EstimatePlan(g)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(g.Explain())
	for id, c := range pc.PerVertex {
		fmt.Fprintf(&b, "  #%d %s\n", id, c)
	}
	fmt.Fprintf(&b, "Total %s\n", pc.Total)
	return b.String(), nil
}

// Close 关闭工作池
func (o *Optimizer) Close() error {
	return o.pool.Close()
}

// distinctPlans 去掉重复的计划对象，保证每个对象只由一个 goroutine 估算
// 选择器按 ID 区分候选，ID 冲突的不同计划会互相覆盖，因此直接拒绝
func distinctPlans(plans []*plan.Graph) ([]*plan.Graph, []error) {
	seen := make(map[*plan.Graph]bool, len(plans))
	ids := make(map[string]int, len(plans))
	out := make([]*plan.Graph, 0, len(plans))
	var errs []error
	for i, g := range plans {
		if g == nil {
			out = append(out, g)
			continue
		}
		if seen[g] {
			continue
		}
		seen[g] = true
		if first, dup := ids[g.ID]; dup {
			errs = append(errs, core.InvalidPlan("plan %d: id %q already used by plan %d", i, g.ID, first))
			continue
		}
		ids[g.ID] = i
		out = append(out, g)
	}
	return out, errs
}

func operators(g *plan.Graph) []string {
	if g == nil {
		return nil
	}
	var ops []string
	for _, v := range g.Vertices() {
		for _, fn := range v.Functions {
			ops = append(ops, string(fn.Operator))
		}
	}
	return ops
}
