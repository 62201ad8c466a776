package cost

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

// HardwareProfile 硬件配置文件
// 用于在 AutoWeights 模式下推导 CPU 与网络成本的相对权重
type HardwareProfile struct {
	// CPU相关
	CPUCores     int     // CPU核心数
	CPUFrequency float64 // CPU频率（GHz）
	CPUSpeed     float64 // CPU速度（相对值，基准1.0）

	// 网络相关
	NetworkBandwidth float64 // 网络带宽（Mbps）
	NetworkLatency   float64 // 网络延迟（ms）

	// 系统相关
	OS             string // 操作系统
	Architecture   string // 架构: "amd64", "arm64"
	RuntimeVersion string // Go运行时版本

	MeasuredAt time.Time // 测量时间
	IsCloudEnv bool      // 是否云环境
}

// DetectHardwareProfile 自动检测硬件配置
func DetectHardwareProfile() *HardwareProfile {
	profile := &HardwareProfile{
		MeasuredAt:     time.Now(),
		OS:             runtime.GOOS,
		Architecture:   runtime.GOARCH,
		RuntimeVersion: runtime.Version(),
		IsCloudEnv:     detectCloudEnvironment(),
	}

	profile.CPUCores = runtime.NumCPU()
	profile.CPUFrequency = estimateCPUFrequency()
	profile.CPUSpeed = normalizeCPUSpeed(profile.CPUCores, profile.CPUFrequency)

	// 默认网络配置
	profile.NetworkBandwidth = baseBandwidth
	profile.NetworkLatency = 1.0

	return profile
}

const (
	benchmarkCores = 4
	benchmarkFreq  = 2.4
	baseBandwidth  = 1000.0 // 1 Gbps
	cloudPenalty   = 1.5
)

// detectCloudEnvironment 检测是否在云环境中运行
func detectCloudEnvironment() bool {
	envVars := []string{"AWS_REGION", "GOOGLE_CLOUD_PROJECT", "AZURE_RESOURCE_GROUP"}
	for _, env := range envVars {
		if os.Getenv(env) != "" {
			return true
		}
	}
	return false
}

// estimateCPUFrequency 估算CPU频率（简化）
func estimateCPUFrequency() float64 {
	return benchmarkFreq
}

// normalizeCPUSpeed 标准化CPU速度
// 基准: 4核 @ 2.4GHz = 1.0
func normalizeCPUSpeed(cores int, frequency float64) float64 {
	if cores <= 0 || frequency <= 0 {
		return 1.0
	}
	return float64(cores) * frequency / (benchmarkCores * benchmarkFreq)
}

// Weights 推导成本权重
// CPU 权重与 CPU 速度成反比，网络权重与带宽成反比，云环境网络权重上浮
// 结果归一化使 CPU 权重为 1
func (hp *HardwareProfile) Weights() Weights {
	cpuSpeed := hp.CPUSpeed
	if cpuSpeed <= 0 {
		cpuSpeed = 1.0
	}
	bandwidth := hp.NetworkBandwidth
	if bandwidth <= 0 {
		bandwidth = baseBandwidth
	}

	cpu := 1.0 / cpuSpeed
	network := baseBandwidth / bandwidth
	if hp.IsCloudEnv {
		network *= cloudPenalty
	}
	return Weights{CPU: 1.0, Network: network / cpu}
}

// String 返回硬件配置的字符串表示
func (hp *HardwareProfile) String() string {
	return fmt.Sprintf(
		"CPU: %d cores @ %.2fGHz, Network: %.0fMbps",
		hp.CPUCores, hp.CPUFrequency, hp.NetworkBandwidth,
	)
}

// Explain 返回详细的硬件配置说明
func (hp *HardwareProfile) Explain() string {
	w := hp.Weights()
	var explanation strings.Builder
	explanation.WriteString("=== Hardware Profile ===\n")
	explanation.WriteString(fmt.Sprintf("CPU:          %d cores @ %.2fGHz (Speed: %.2fx)\n",
		hp.CPUCores, hp.CPUFrequency, hp.CPUSpeed))
	explanation.WriteString(fmt.Sprintf("Network:      %.2f Mbps @ %.2fms latency\n",
		hp.NetworkBandwidth, hp.NetworkLatency))
	explanation.WriteString(fmt.Sprintf("Environment:  %s, OS: %s, Arch: %s\n",
		map[bool]string{true: "Cloud", false: "Local"}[hp.IsCloudEnv], hp.OS, hp.Architecture))
	explanation.WriteString(fmt.Sprintf("Cost Weights: CPU=%.4f, Network=%.4f\n", w.CPU, w.Network))
	return explanation.String()
}
