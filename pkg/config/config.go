package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用程序配置
type Config struct {
	Log        LogConfig        `json:"log" yaml:"log"`
	Optimizer  OptimizerConfig  `json:"optimizer" yaml:"optimizer"`
	Statistics StatisticsConfig `json:"statistics" yaml:"statistics"`
	Selector   SelectorConfig   `json:"selector" yaml:"selector"`
	Monitor    MonitorConfig    `json:"monitor" yaml:"monitor"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"` // json or text
	File       string `json:"file" yaml:"file"`     // 为空时输出到 stderr
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// OptimizerConfig 优化器配置
type OptimizerConfig struct {
	// CostPolicy weighted 或 lexicographic
	CostPolicy    string  `json:"cost_policy" yaml:"cost_policy"`
	CPUWeight     float64 `json:"cpu_weight" yaml:"cpu_weight"`
	NetworkWeight float64 `json:"network_weight" yaml:"network_weight"`
	// AutoWeights 为 true 时按检测到的硬件推导权重，忽略上面两项
	AutoWeights        bool               `json:"auto_weights" yaml:"auto_weights"`
	JoinBuildWeight    float64            `json:"join_build_weight" yaml:"join_build_weight"`
	DefaultRecordWidth float64            `json:"default_record_width" yaml:"default_record_width"`
	OperatorFactors    map[string]float64 `json:"operator_factors" yaml:"operator_factors"`
}

// StatisticsConfig 统计信息来源配置
type StatisticsConfig struct {
	Source   string        `json:"source" yaml:"source"` // file, sql or badger
	Path     string        `json:"path" yaml:"path"`
	Driver   string        `json:"driver" yaml:"driver"`
	DSN      string        `json:"dsn" yaml:"dsn"`
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// SelectorConfig 计划选择配置
type SelectorConfig struct {
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates"`
	// Parallelism 并发估算的 worker 数，0 表示 GOMAXPROCS
	Parallelism int `json:"parallelism" yaml:"parallelism"`
	QueueSize   int `json:"queue_size" yaml:"queue_size"`
}

// MonitorConfig 监控配置
type MonitorConfig struct {
	// SlowThreshold 估算耗时超过该值的计划记为慢估算，0 表示不统计
	SlowThreshold time.Duration `json:"slow_threshold" yaml:"slow_threshold"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Optimizer: OptimizerConfig{
			CostPolicy:         "weighted",
			CPUWeight:          1.0,
			NetworkWeight:      1.0,
			JoinBuildWeight:    2.0,
			DefaultRecordWidth: 1.0,
			OperatorFactors:    map[string]float64{},
		},
		Statistics: StatisticsConfig{
			Source:   "file",
			Path:     "statistics.yaml",
			Driver:   "sqlite",
			CacheTTL: 5 * time.Minute,
		},
		Selector: SelectorConfig{
			MaxCandidates: 0,
			Parallelism:   0,
			QueueSize:     64,
		},
		Monitor: MonitorConfig{
			SlowThreshold: 100 * time.Millisecond,
		},
	}
}

// LoadConfig 从文件加载配置，.yaml/.yml 按 YAML 解析，其余按 JSON 解析
func LoadConfig(configPath string) (*Config, error) {
	// 如果没有指定配置文件，使用默认配置
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigOrDefault 尝试从常见位置加载配置文件
func LoadConfigOrDefault() *Config {
	possiblePaths := []string{
		"graphcbo.yaml",
		"graphcbo.json",
		"./config/graphcbo.yaml",
		"/etc/graphcbo/graphcbo.yaml",
	}

	// 尝试从环境变量获取配置文件路径
	if envPath := os.Getenv("GRAPHCBO_CONFIG"); envPath != "" {
		if config, err := LoadConfig(envPath); err == nil {
			return config
		}
	}

	for _, path := range possiblePaths {
		if absPath, err := filepath.Abs(path); err == nil {
			if config, err := LoadConfig(absPath); err == nil {
				return config
			}
		}
	}

	return DefaultConfig()
}

var validOperators = map[string]bool{
	"scan": true, "expand": true, "filter": true, "project": true,
	"dedup": true, "limit": true, "join": true, "union": true,
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	switch strings.ToLower(config.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("无效的日志级别: %s", config.Log.Level)
	}
	switch strings.ToLower(config.Log.Format) {
	case "text", "json", "":
	default:
		return fmt.Errorf("无效的日志格式: %s", config.Log.Format)
	}

	opt := config.Optimizer
	switch strings.ToLower(opt.CostPolicy) {
	case "weighted", "lexicographic", "":
	default:
		return fmt.Errorf("无效的成本比较策略: %s", opt.CostPolicy)
	}
	if opt.CPUWeight < 0 || opt.NetworkWeight < 0 {
		return fmt.Errorf("成本权重不能为负数")
	}
	if !opt.AutoWeights && opt.CPUWeight == 0 && opt.NetworkWeight == 0 {
		return fmt.Errorf("CPU 与网络权重不能同时为0")
	}
	if opt.JoinBuildWeight < 0 {
		return fmt.Errorf("连接构建权重不能为负数")
	}
	if opt.DefaultRecordWidth < 0 {
		return fmt.Errorf("默认记录宽度不能为负数")
	}
	for name, factor := range opt.OperatorFactors {
		if !validOperators[strings.ToLower(name)] {
			return fmt.Errorf("未知算子: %s", name)
		}
		if factor < 0 {
			return fmt.Errorf("算子 %s 的成本因子不能为负数", name)
		}
	}

	stats := config.Statistics
	switch stats.Source {
	case "file", "badger":
		if stats.Source == "file" && stats.Path == "" {
			return fmt.Errorf("文件统计来源必须指定路径")
		}
	case "sql":
		if stats.DSN == "" {
			return fmt.Errorf("SQL 统计来源必须指定 DSN")
		}
	default:
		return fmt.Errorf("无效的统计来源: %s", stats.Source)
	}
	if stats.CacheTTL < 0 {
		return fmt.Errorf("统计缓存时间不能为负数")
	}

	if config.Selector.MaxCandidates < 0 {
		return fmt.Errorf("最大候选计划数不能为负数")
	}
	if config.Selector.Parallelism < 0 {
		return fmt.Errorf("并发数不能为负数")
	}
	if config.Selector.QueueSize < 0 {
		return fmt.Errorf("队列大小不能为负数")
	}
	if config.Monitor.SlowThreshold < 0 {
		return fmt.Errorf("慢估算阈值不能为负数")
	}
	return nil
}
