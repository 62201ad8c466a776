package statistics

import (
	"sync"
	"sync/atomic"

	"github.com/kasuganosora/graphcbo/pkg/logging"
)

// debugEnabled 是否输出调试日志，默认关闭
var debugEnabled atomic.Bool

var (
	debugMu     sync.RWMutex
	debugLogger logging.Logger = logging.NewNoOpLogger()
)

// SetDebug 开关统计包的调试日志
func SetDebug(enabled bool) { debugEnabled.Store(enabled) }

// IsDebugEnabled 调试日志是否开启
func IsDebugEnabled() bool { return debugEnabled.Load() }

// SetLogger 设置调试日志输出
// 任意 Logger 实现都可以随时设置和替换
func SetLogger(l logging.Logger) {
	if l == nil {
		l = logging.NewNoOpLogger()
	}
	debugMu.Lock()
	debugLogger = l
	debugMu.Unlock()
}

func debugf(format string, args ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	debugMu.RLock()
	l := debugLogger
	debugMu.RUnlock()
	l.Debug(format, args...)
}
