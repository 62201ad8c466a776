package config

import (
	"fmt"

	"github.com/kasuganosora/graphcbo/pkg/logging"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/cost"
	"github.com/kasuganosora/graphcbo/pkg/statsource"
	"github.com/kasuganosora/graphcbo/pkg/workerpool"
)

// LoggingOptions 转换为日志选项
func (c *LogConfig) LoggingOptions() logging.Options {
	return logging.Options{
		Level:      logging.ParseLevel(c.Level),
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

// Comparator 构造成本比较器
// AutoWeights 时按硬件探测结果推导权重
func (c *OptimizerConfig) Comparator() (cost.Comparator, error) {
	policy, err := cost.ParsePolicy(c.CostPolicy)
	if err != nil {
		return cost.Comparator{}, err
	}
	weights := cost.Weights{CPU: c.CPUWeight, Network: c.NetworkWeight}
	if c.AutoWeights {
		weights = cost.DetectHardwareProfile().Weights()
	}
	return cost.NewComparator(policy, weights), nil
}

// Model 构造成本模型
func (c *OptimizerConfig) Model() (cost.Model, error) {
	m, err := cost.NewModel(c.JoinBuildWeight, c.DefaultRecordWidth, c.OperatorFactors)
	if err != nil {
		return cost.Model{}, fmt.Errorf("optimizer config: %w", err)
	}
	return m, nil
}

// SourceOptions 转换为统计来源选项
func (c *StatisticsConfig) SourceOptions() statsource.Options {
	return statsource.Options{
		Kind:     statsource.Kind(c.Source),
		Path:     c.Path,
		Driver:   c.Driver,
		DSN:      c.DSN,
		CacheTTL: c.CacheTTL,
	}
}

// PoolConfig 转换为 worker pool 配置
func (c *SelectorConfig) PoolConfig() workerpool.Config {
	cfg := workerpool.DefaultConfig()
	if c.Parallelism > 0 {
		cfg.Size = c.Parallelism
	}
	if c.QueueSize > 0 {
		cfg.QueueSize = c.QueueSize
	}
	return cfg
}
