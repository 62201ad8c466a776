package monitor

import (
	"sync"
	"time"

	"github.com/kasuganosora/graphcbo/pkg/optimizer/core"
)

// ErrTypeOther 没有错误码的错误归入此类
const ErrTypeOther = "OTHER"

// MetricsCollector 计划估算指标收集器
type MetricsCollector struct {
	mu              sync.RWMutex
	planCount       int64
	planSuccess     int64
	planError       int64
	totalDuration   time.Duration
	slowThreshold   time.Duration
	slowCount       int64
	activeEstimates int64
	errorCount      map[string]int64
	operatorCount   map[string]int64
	startTime       time.Time
}

// NewMetricsCollector 创建指标收集器
// 估算耗时超过 slowThreshold 的计划计入慢估算，0 表示不统计
func NewMetricsCollector(slowThreshold time.Duration) *MetricsCollector {
	return &MetricsCollector{
		slowThreshold: slowThreshold,
		errorCount:    make(map[string]int64),
		operatorCount: make(map[string]int64),
		startTime:     time.Now(),
	}
}

// RecordPlan 记录一次计划估算
// 失败时按错误码分类；operators 为计划中出现的算子，用于统计算子使用次数
func (m *MetricsCollector) RecordPlan(duration time.Duration, err error, operators []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.planCount++
	m.totalDuration += duration

	if err == nil {
		m.planSuccess++
	} else {
		m.planError++
		errType := string(core.GetErrorCode(err))
		if errType == "" {
			errType = ErrTypeOther
		}
		m.errorCount[errType]++
	}

	if m.slowThreshold > 0 && duration > m.slowThreshold {
		m.slowCount++
	}

	for _, op := range operators {
		m.operatorCount[op]++
	}
}

// StartEstimate 开始估算
func (m *MetricsCollector) StartEstimate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.activeEstimates++
}

// EndEstimate 结束估算
func (m *MetricsCollector) EndEstimate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeEstimates > 0 {
		m.activeEstimates--
	}
}

// GetPlanCount 获取估算过的计划总数
func (m *MetricsCollector) GetPlanCount() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.planCount
}

// GetErrorCount 获取某类错误的次数
func (m *MetricsCollector) GetErrorCount(errType string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errorCount[errType]
}

// GetOperatorCount 获取算子出现次数
func (m *MetricsCollector) GetOperatorCount(op string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.operatorCount[op]
}

// GetActiveEstimates 获取正在进行的估算数
func (m *MetricsCollector) GetActiveEstimates() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeEstimates
}

// Reset 重置所有指标
func (m *MetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.planCount = 0
	m.planSuccess = 0
	m.planError = 0
	m.totalDuration = 0
	m.slowCount = 0
	m.activeEstimates = 0
	m.errorCount = make(map[string]int64)
	m.operatorCount = make(map[string]int64)
	m.startTime = time.Now()
}

// PlanMetrics 指标快照
type PlanMetrics struct {
	PlanCount       int64
	PlanSuccess     int64
	PlanError       int64
	SuccessRate     float64
	AvgDuration     time.Duration
	SlowCount       int64
	ActiveEstimates int64
	ErrorCount      map[string]int64
	OperatorCount   map[string]int64
	Uptime          time.Duration
}

// GetSnapshot 获取指标快照
func (m *MetricsCollector) GetSnapshot() *PlanMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var successRate float64
	var avgDuration time.Duration
	if m.planCount > 0 {
		successRate = float64(m.planSuccess) / float64(m.planCount) * 100
		avgDuration = m.totalDuration / time.Duration(m.planCount)
	}

	errorsCopy := make(map[string]int64, len(m.errorCount))
	for k, v := range m.errorCount {
		errorsCopy[k] = v
	}
	operatorsCopy := make(map[string]int64, len(m.operatorCount))
	for k, v := range m.operatorCount {
		operatorsCopy[k] = v
	}

	return &PlanMetrics{
		PlanCount:       m.planCount,
		PlanSuccess:     m.planSuccess,
		PlanError:       m.planError,
		SuccessRate:     successRate,
		AvgDuration:     avgDuration,
		SlowCount:       m.slowCount,
		ActiveEstimates: m.activeEstimates,
		ErrorCount:      errorsCopy,
		OperatorCount:   operatorsCopy,
		Uptime:          time.Since(m.startTime),
	}
}
