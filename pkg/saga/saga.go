// Package saga 实现按步骤执行、失败逆序补偿的Saga事务
//
// Saga模式核心思想：
// 1. 将一个业务操作拆分为多个可独立完成的步骤
// 2. 每个步骤有对应的补偿操作
// 3. 如果某步失败，按逆序执行已完成步骤的补偿操作
//
// 在本项目中用于下单：逐本图书原子扣减库存，任意一步失败时把已扣减的库存加回去，
// 保证"失败的下单请求不留下任何库存变化"。
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step 表示Saga中的一个步骤
//
// Action是正向操作（如扣减库存），Compensate是补偿操作（如回补库存），
// 两者都可以为nil（如最后一步通常无需补偿）。
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// StepError 某个步骤失败时返回的错误
//
// Unwrap返回步骤的原始错误，调用方可以继续用errors.Is / errors.As判断业务错误类型
// （例如库存不足），补偿阶段的失败记录在Compensation中。
type StepError struct {
	Step         string
	Err          error
	Compensation error
}

func (e *StepError) Error() string {
	if e.Compensation != nil {
		return fmt.Sprintf("步骤[%s]执行失败: %v (补偿失败: %v)", e.Step, e.Err, e.Compensation)
	}
	return fmt.Sprintf("步骤[%s]执行失败: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Option Saga配置项
type Option func(*Saga)

// WithTimeout 设置整体超时时间
func WithTimeout(d time.Duration) Option {
	return func(s *Saga) { s.timeout = d }
}

// WithLogger 设置日志记录器（默认不输出）
func WithLogger(l *zap.Logger) Option {
	return func(s *Saga) { s.logger = l }
}

// Saga 表示一个Saga事务，不可并发复用，每次业务操作新建一个
type Saga struct {
	name     string
	steps    []Step
	executed []Step
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSaga 创建一个新的Saga事务
//
// 示例：
//
//	s := saga.NewSaga("create-order", saga.WithLogger(log))
//	s.AddStep("扣减库存:1", decrement, restore)
//	s.AddStep("保存订单", saveOrder, nil)
//	err := s.Execute(ctx)
func NewSaga(name string, opts ...Option) *Saga {
	s := &Saga{
		name:   name,
		steps:  make([]Step, 0),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddStep 添加一个步骤，按添加顺序执行、按逆序补偿
//
// ❌ DON'T: 补偿操作依赖后续步骤的结果
// ✅ DO: 每个步骤的补偿只依赖自己的Action（用闭包捕获bookID、数量）
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// Execute 执行Saga事务
//
// 执行流程：
// 1. 按顺序执行每个步骤的Action
// 2. 如果某步失败或超时，逆序执行已完成步骤的Compensate
// 3. 返回*StepError
//
// 补偿使用context.WithoutCancel(ctx)：
//   - 保留ctx中的值（数据库事务、TraceID），补偿和正向操作落在同一个事务里
//   - 去掉取消和超时，请求超时也不会让补偿半途而废
func (s *Saga) Execute(ctx context.Context) error {
	s.executed = s.executed[:0]

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for _, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return s.fail(ctx, step.Name, fmt.Errorf("saga超时: %w", err))
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				return s.fail(ctx, step.Name, err)
			}
		}

		s.executed = append(s.executed, step)
	}

	return nil
}

func (s *Saga) fail(ctx context.Context, stepName string, cause error) error {
	s.logger.Warn("saga步骤失败，开始补偿",
		zap.String("saga", s.name),
		zap.String("step", stepName),
		zap.Int("compensations", len(s.executed)),
		zap.Error(cause),
	)

	return &StepError{
		Step:         stepName,
		Err:          cause,
		Compensation: s.compensate(context.WithoutCancel(ctx)),
	}
}

// compensate 逆序执行补偿
//
// 即使某个Compensate失败，也继续执行剩下的补偿（尽最大努力），
// 所有失败通过errors.Join聚合返回，并以Error级别记录，便于人工介入。
func (s *Saga) compensate(ctx context.Context) error {
	var errs []error

	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.logger.Error("saga补偿失败，需要人工介入",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
		}
	}

	s.executed = nil
	return errors.Join(errs...)
}
