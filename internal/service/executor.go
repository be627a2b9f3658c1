package service

import (
	"context"
	"fmt"
	"sync"

	"imsheet-go/pkg/log"
)

// Executor 串行执行目录变更序列。所有会写本地目录或云端目录快照的
// 操作都必须经过同一个 Executor，按提交顺序逐个运行，彼此互不交错。
// 任意一个任务失败只影响该任务自身，后续任务照常执行。
type Executor struct {
	mu     sync.Mutex
	closed bool
	tasks  chan executorTask
}

type executorTask struct {
	ctx    context.Context
	fn     func(ctx context.Context) error
	result chan error
}

// NewExecutor 创建并启动单工作协程的串行执行器。
func NewExecutor() *Executor {
	e := &Executor{tasks: make(chan executorTask, 64)}
	go e.loop()
	return e
}

func (e *Executor) loop() {
	for t := range e.tasks {
		t.result <- e.run(t)
	}
}

func (e *Executor) run(t executorTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("任务执行发生 panic: %v", r)
			log.Errorf("[Executor] %v", err)
		}
	}()
	return t.fn(t.ctx)
}

// Submit 提交一个变更序列并等待其执行完成，返回该序列自身的错误。
// 一旦入队，任务必定会被执行；Submit 始终等到任务结束才返回。
func (e *Executor) Submit(ctx context.Context, fn func(ctx context.Context) error) error {
	t := executorTask{
		ctx:    ctx,
		fn:     fn,
		result: make(chan error, 1),
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return fmt.Errorf("执行器已关闭")
	}
	e.tasks <- t
	e.mu.Unlock()
	return <-t.result
}

// Close 停止执行器，已入队的任务仍会执行完毕。
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.tasks)
	}
}
