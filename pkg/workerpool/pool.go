// Package workerpool 在固定数量的 goroutine 上执行相互独立的任务
// 优化器用它并发估算候选计划；每个任务独占自己的计划，任务间不共享状态
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// 常见错误
var (
	ErrPoolClosed   = errors.New("workerpool: pool is closed")
	ErrPoolRunning  = errors.New("workerpool: pool is already running")
	ErrInvalidSize  = errors.New("workerpool: invalid pool size")
	ErrTaskPanic    = errors.New("workerpool: task panicked")
	ErrTaskCanceled = errors.New("workerpool: task canceled")
)

// Task 工作池执行的任务
type Task func(ctx context.Context) error

// Result 任务执行结果
type Result struct {
	Error error
}

// Config 工作池配置
type Config struct {
	// Size worker 数量，0 表示 GOMAXPROCS
	Size int
	// QueueSize 任务队列缓冲大小，0 表示无缓冲
	QueueSize int
}

// DefaultConfig 按机器核数返回默认配置
func DefaultConfig() Config {
	return Config{
		Size:      runtime.GOMAXPROCS(0),
		QueueSize: 64,
	}
}

// Pool 工作池
type Pool struct {
	config  Config
	tasks   chan taskWrapper
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
	closed  atomic.Bool
	mu      sync.Mutex
	workers int32
	taskCnt int64
	errCnt  int64
}

// taskWrapper 任务及其结果通道
type taskWrapper struct {
	task   Task
	result chan Result
	ctx    context.Context
}

// New 按配置创建工作池
func New(config Config) (*Pool, error) {
	if config.Size == 0 {
		config.Size = runtime.GOMAXPROCS(0)
	}
	if config.Size < 0 || config.QueueSize < 0 {
		return nil, ErrInvalidSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		config: config,
		tasks:  make(chan taskWrapper, config.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// NewWithSize 创建指定大小的工作池
func NewWithSize(size int) (*Pool, error) {
	return New(Config{Size: size})
}

// Start 启动工作池
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return ErrPoolClosed
	}
	if p.running.Load() {
		return ErrPoolRunning
	}
	for i := 0; i < p.config.Size; i++ {
		p.startWorker()
	}
	p.running.Store(true)
	return nil
}

// startWorker 启动一个 worker goroutine
func (p *Pool) startWorker() {
	p.wg.Add(1)
	atomic.AddInt32(&p.workers, 1)

	go func() {
		defer p.wg.Done()
		defer atomic.AddInt32(&p.workers, -1)

		for {
			select {
			case <-p.ctx.Done():
				return
			case wrapper := <-p.tasks:
				p.executeTask(wrapper)
			}
		}
	}()
}

// executeTask 执行任务并发送结果；任何情况下都会发送一次结果
func (p *Pool) executeTask(wrapper taskWrapper) {
	atomic.AddInt64(&p.taskCnt, 1)

	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&p.errCnt, 1)
			wrapper.result <- Result{Error: fmt.Errorf("%w: %v", ErrTaskPanic, r)}
		}
	}()

	if wrapper.ctx.Err() != nil {
		atomic.AddInt64(&p.errCnt, 1)
		wrapper.result <- Result{Error: ErrTaskCanceled}
		return
	}

	err := wrapper.task(wrapper.ctx)
	if err != nil {
		atomic.AddInt64(&p.errCnt, 1)
	}
	wrapper.result <- Result{Error: err}
}

// Submit 提交任务，返回结果通道
// 通道带缓冲，调用方放弃等待时 worker 也不会阻塞
func (p *Pool) Submit(ctx context.Context, task Task) (<-chan Result, error) {
	if !p.running.Load() || p.closed.Load() {
		return nil, ErrPoolClosed
	}

	resultCh := make(chan Result, 1)
	wrapper := taskWrapper{task: task, result: resultCh, ctx: ctx}

	select {
	case p.tasks <- wrapper:
		return resultCh, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, ErrPoolClosed
	}
}

// SubmitWait 提交任务并等待结果
func (p *Pool) SubmitWait(ctx context.Context, task Task) error {
	resultCh, err := p.Submit(ctx, task)
	if err != nil {
		return err
	}

	select {
	case result := <-resultCh:
		return result.Error
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// Close 停止 worker，等待执行中的任务结束；尚未开始的排队任务被丢弃
func (p *Pool) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.running.Store(false)
	p.cancel()
	p.wg.Wait()
	return nil
}

// Stats 返回当前统计
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:       int(atomic.LoadInt32(&p.workers)),
		TasksExecuted: atomic.LoadInt64(&p.taskCnt),
		TasksFailed:   atomic.LoadInt64(&p.errCnt),
		QueueSize:     len(p.tasks),
		MaxQueueSize:  p.config.QueueSize,
		IsRunning:     p.running.Load(),
		IsClosed:      p.closed.Load(),
	}
}

// Stats 工作池统计
type Stats struct {
	Workers       int
	TasksExecuted int64
	TasksFailed   int64
	QueueSize     int
	MaxQueueSize  int
	IsRunning     bool
	IsClosed      bool
}

// IsRunning 是否运行中
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

// IsClosed 是否已关闭
func (p *Pool) IsClosed() bool {
	return p.closed.Load()
}

// WorkerCount 当前 worker 数
func (p *Pool) WorkerCount() int {
	return int(atomic.LoadInt32(&p.workers))
}
