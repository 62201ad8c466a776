package workerpool

import (
	"context"
	"sync"
)

// Outcome 单个元素的处理结果
type Outcome[R any] struct {
	Index int
	Value R
	Err   error
}

// mapItem 记录元素是否已被 worker 取走
// 调用方放弃该元素（工作池关闭）后，之后取到它的 worker 直接跳过
type mapItem struct {
	mu        sync.Mutex
	started   bool
	abandoned bool
}

// Map 在工作池上对每个元素执行 fn，按输入顺序返回结果；单个失败不影响其他元素
//
// 即使 ctx 取消或工作池关闭，Map 也会等所有已开始的 fn 返回后才返回，
// 之后调用方可以放心复用这些元素；未开始的元素返回取消错误
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, item T) (R, error)) []Outcome[R] {
	out := make([]Outcome[R], len(items))
	var wg sync.WaitGroup
	wg.Add(len(items))

	for i, item := range items {
		out[i].Index = i
		// 队列满时 Submit 会阻塞，每个元素一个 goroutine 避免串行提交
		go func() {
			defer wg.Done()
			state := &mapItem{}
			values := make(chan R, 1)
			resultCh, err := p.Submit(ctx, func(ctx context.Context) error {
				state.mu.Lock()
				if state.abandoned {
					state.mu.Unlock()
					return ErrPoolClosed
				}
				state.started = true
				state.mu.Unlock()

				v, err := fn(ctx, item)
				values <- v
				return err
			})
			if err != nil {
				out[i].Err = err
				return
			}

			// 排队任务要么执行，要么在 ctx 结束后以 ErrTaskCanceled 跳过，
			// 只有工作池关闭才会让 resultCh 收不到结果
			var result Result
			select {
			case result = <-resultCh:
			case <-p.ctx.Done():
				state.mu.Lock()
				state.abandoned = true
				started := state.started
				state.mu.Unlock()
				if !started {
					out[i].Err = ErrPoolClosed
					return
				}
				result = <-resultCh
			}

			if result.Error != nil {
				out[i].Err = result.Error
				return
			}
			out[i].Value = <-values
		}()
	}

	wg.Wait()
	return out
}
