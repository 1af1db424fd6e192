/**
 * 扫描调度器
 * @author: sun977
 * @date: 2026.10.19
 * @description: 目标 × 端口 展开为探测任务，固定大小的 worker 池执行，会话截止时间兜底
 */
package port

import (
	"context"
	"net/netip"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"neorecon/internal/core/model"
	"neorecon/internal/pkg/logger"
)

const (
	DefaultWorkers         = 100
	DefaultSessionDeadline = 5 * time.Minute

	progressInterval = 5 * time.Second
)

// SchedulerOptions 调度参数
type SchedulerOptions struct {
	Workers         int           // 固定 worker 数，决定同时打开的 socket 上限
	SessionDeadline time.Duration // 整个会话的截止时长
	Rate            int           // 每秒派发的探测数，0 不限速
}

// Scheduler 扫描调度器
// 一个 Scheduler 可以被多个会话复用，计数器只反映最近一次 Run
type Scheduler struct {
	prober   Prober
	workers  int
	deadline time.Duration
	rate     int

	inFlight  atomic.Int64
	completed atomic.Int64
}

// NewScheduler 创建调度器
func NewScheduler(prober Prober, opts SchedulerOptions) *Scheduler {
	s := &Scheduler{
		prober:   prober,
		workers:  opts.Workers,
		deadline: opts.SessionDeadline,
		rate:     opts.Rate,
	}
	if s.workers <= 0 {
		s.workers = DefaultWorkers
	}
	if s.deadline <= 0 {
		s.deadline = DefaultSessionDeadline
	}
	if s.rate < 0 {
		s.rate = 0
	}
	return s
}

// InFlight 正在执行的探测数
func (s *Scheduler) InFlight() int64 { return s.inFlight.Load() }

// Completed 已产出结果的探测数
func (s *Scheduler) Completed() int64 { return s.completed.Load() }

// BuildTasks 生成 目标 × 端口 的全部探测任务，协议在会话内固定
func BuildTasks(targets []netip.Addr, startPort, endPort int, proto model.Protocol) []model.ProbeTask {
	if startPort > endPort || len(targets) == 0 {
		return nil
	}
	tasks := make([]model.ProbeTask, 0, len(targets)*(endPort-startPort+1))
	for _, addr := range targets {
		for p := startPort; p <= endPort; p++ {
			tasks = append(tasks, model.ProbeTask{Address: addr, Port: uint16(p), Protocol: proto})
		}
	}
	return tasks
}

type indexedOutcome struct {
	idx int
	out model.ProbeOutcome
}

// Run 执行一个会话的全部探测，返回完成顺序的结果
// 返回的结果数恒等于任务数：截止时间到达或调用方取消时，未执行的任务合成为 error 结果
func (s *Scheduler) Run(ctx context.Context, session *model.ScanSession, targets []netip.Addr) []model.ScanResult {
	req := session.Request
	tasks := BuildTasks(targets, req.StartPort, req.EndPort, req.Protocol)
	session.Targets = targets
	session.Tasks = tasks

	s.inFlight.Store(0)
	s.completed.Store(0)
	if len(tasks) == 0 {
		return []model.ScanResult{}
	}

	// 外层倒计时：会话截止时间；内层倒计时由 Prober 针对每次探测派生
	sessionCtx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()
	session.Deadline, _ = sessionCtx.Deadline()

	workers := min(s.workers, len(tasks))
	taskCh := make(chan int)
	resultCh := make(chan indexedOutcome, workers)

	// 1. 派发：截止时间到达后停止派发，剩余任务交给合成阶段
	go s.dispatch(sessionCtx, len(tasks), taskCh)

	// 2. 固定数量的 worker，每个探测独占自己的 socket 和超时
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for idx := range taskCh {
				s.inFlight.Add(1)
				out := s.prober.Probe(sessionCtx, tasks[idx])
				s.inFlight.Add(-1)
				out.Task = tasks[idx]
				resultCh <- indexedOutcome{idx: idx, out: out}
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(resultCh)
	}()

	// 3. 单一消费者收集结果
	results := make([]model.ScanResult, 0, len(tasks))
	done := make([]bool, len(tasks))
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

collect:
	for {
		select {
		case r, ok := <-resultCh:
			if !ok {
				break collect
			}
			done[r.idx] = true
			s.completed.Add(1)
			results = append(results, r.out.ToResult())
			logger.LogProbe(session.ID, r.out.Task.Endpoint(), string(r.out.Task.Protocol),
				string(r.out.Status), r.out.ErrorCode, r.out.RTT)
		case <-ticker.C:
			s.logProgress(session, len(tasks))
		}
	}

	// 4. 从未派发（或被中止后未回写）的任务合成为会话级错误
	synthesized := 0
	for idx, ok := range done {
		if ok {
			continue
		}
		results = append(results, sessionOutcome(sessionCtx, tasks[idx]).ToResult())
		synthesized++
	}
	if synthesized > 0 {
		logger.WithFields(map[string]interface{}{
			"session_id":  session.ID,
			"synthesized": synthesized,
			"total":       len(tasks),
		}).Warn("probes abandoned before dispatch")
	}
	return results
}

// dispatch 按顺序投递任务下标，可选限速
func (s *Scheduler) dispatch(ctx context.Context, n int, taskCh chan<- int) {
	defer close(taskCh)

	var limiter *rate.Limiter
	if s.rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.rate), 1)
	}
	for idx := 0; idx < n; idx++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		select {
		case taskCh <- idx:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) logProgress(session *model.ScanSession, total int) {
	completed := int(s.completed.Load())
	progress := completed * 100 / total
	logger.LogScanOperation(session.ID, "port", session.Request.Target, logger.ScanStatusRunning,
		progress, "", time.Since(session.StartedAt), map[string]interface{}{
			"completed": completed,
			"in_flight": s.inFlight.Load(),
			"total":     total,
		})
}
