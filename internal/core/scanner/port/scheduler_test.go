package port

import (
	"context"
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neorecon/internal/core/model"
)

// fakeProber 按端口返回固定状态，可选模拟耗时
type fakeProber struct {
	status  func(model.ProbeTask) model.PortStatus
	latency time.Duration

	calls   atomic.Int64
	active  atomic.Int64
	mu      sync.Mutex
	peak    int64
	started []model.ProbeTask
}

func (f *fakeProber) Probe(ctx context.Context, task model.ProbeTask) model.ProbeOutcome {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)

	f.mu.Lock()
	if n > f.peak {
		f.peak = n
	}
	f.started = append(f.started, task)
	f.mu.Unlock()

	if f.latency > 0 {
		select {
		case <-time.After(f.latency):
		case <-ctx.Done():
			return sessionOutcome(ctx, task)
		}
	}
	status := model.StatusClosed
	if f.status != nil {
		status = f.status(task)
	}
	out := model.ProbeOutcome{Task: task, Status: status}
	if status == model.StatusOpen {
		out.Service = "ssh"
	}
	return out
}

func newSession(target string, start, end int, proto model.Protocol) *model.ScanSession {
	return model.NewScanSession(model.ScanRequest{Target: target, StartPort: start, EndPort: end, Protocol: proto})
}

func TestBuildTasks(t *testing.T) {
	targets := []netip.Addr{netip.MustParseAddr("10.0.0.1"), netip.MustParseAddr("10.0.0.2")}
	tasks := BuildTasks(targets, 20, 22, model.ProtocolUDP)

	require.Len(t, tasks, 6)
	assert.Equal(t, model.ProbeTask{Address: targets[0], Port: 20, Protocol: model.ProtocolUDP}, tasks[0])
	assert.Equal(t, model.ProbeTask{Address: targets[1], Port: 22, Protocol: model.ProtocolUDP}, tasks[5])
	assert.Empty(t, BuildTasks(nil, 1, 10, model.ProtocolTCP))
	assert.Empty(t, BuildTasks(targets, 10, 1, model.ProtocolTCP))
}

func TestSchedulerProducesOneResultPerTask(t *testing.T) {
	targets := []netip.Addr{
		netip.MustParseAddr("10.0.0.1"),
		netip.MustParseAddr("10.0.0.2"),
		netip.MustParseAddr("10.0.0.3"),
	}
	prober := &fakeProber{latency: time.Millisecond}
	s := NewScheduler(prober, SchedulerOptions{Workers: 8, SessionDeadline: 10 * time.Second})
	session := newSession("10.0.0.1-10.0.0.3", 1, 100, model.ProtocolTCP)

	results := s.Run(context.Background(), session, targets)

	assert.Len(t, results, 300)
	assert.Len(t, session.Tasks, 300)
	assert.Equal(t, targets, session.Targets)
	assert.EqualValues(t, 300, prober.calls.Load())
	assert.EqualValues(t, 300, s.Completed())
	assert.Zero(t, s.InFlight())
	assert.False(t, session.Deadline.IsZero())

	seen := make(map[string]bool, len(results))
	for _, r := range results {
		key := fmt.Sprintf("%s:%d", r.IP, r.Port)
		assert.False(t, seen[key], "duplicate result for %s:%d", r.IP, r.Port)
		seen[key] = true
	}
}

func TestSchedulerBoundsConcurrency(t *testing.T) {
	prober := &fakeProber{latency: 5 * time.Millisecond}
	s := NewScheduler(prober, SchedulerOptions{Workers: 4, SessionDeadline: 10 * time.Second})

	results := s.Run(context.Background(), newSession("127.0.0.1", 1, 64, model.ProtocolTCP),
		[]netip.Addr{netip.MustParseAddr("127.0.0.1")})

	assert.Len(t, results, 64)
	assert.LessOrEqual(t, prober.peak, int64(4))
}

func TestSchedulerDeadlineSynthesizesTimeouts(t *testing.T) {
	prober := &fakeProber{latency: time.Hour}
	s := NewScheduler(prober, SchedulerOptions{Workers: 2, SessionDeadline: 100 * time.Millisecond})

	start := time.Now()
	results := s.Run(context.Background(), newSession("127.0.0.1", 1, 50, model.ProtocolTCP),
		[]netip.Addr{netip.MustParseAddr("127.0.0.1")})

	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, results, 50)
	for _, r := range results {
		assert.Equal(t, model.StatusError, r.Status)
		require.NotNil(t, r.ErrorCode)
		assert.Equal(t, model.CodeScanTimedOut, *r.ErrorCode)
		assert.Equal(t, model.MsgScanTimedOut, *r.ErrorMessage)
	}
	// 只有 worker 数量的探测真正开始过
	assert.LessOrEqual(t, prober.calls.Load(), int64(4))
}

func TestSchedulerKeepsCompletedResultsOnDeadline(t *testing.T) {
	// 端口 1-3 立即返回，其余挂起直到截止
	prober := &fakeProber{}
	slow := &slowAfter{fast: prober, cutoff: 3}
	s := NewScheduler(slow, SchedulerOptions{Workers: 1, SessionDeadline: 150 * time.Millisecond})

	results := s.Run(context.Background(), newSession("127.0.0.1", 1, 10, model.ProtocolTCP),
		[]netip.Addr{netip.MustParseAddr("127.0.0.1")})

	require.Len(t, results, 10)
	counts := map[model.PortStatus]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	assert.Equal(t, 3, counts[model.StatusClosed])
	assert.Equal(t, 7, counts[model.StatusError])
}

type slowAfter struct {
	fast   Prober
	cutoff uint16
}

func (s *slowAfter) Probe(ctx context.Context, task model.ProbeTask) model.ProbeOutcome {
	if task.Port <= s.cutoff {
		return s.fast.Probe(ctx, task)
	}
	<-ctx.Done()
	return sessionOutcome(ctx, task)
}

func TestSchedulerCallerCancellation(t *testing.T) {
	prober := &fakeProber{latency: time.Hour}
	s := NewScheduler(prober, SchedulerOptions{Workers: 3, SessionDeadline: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	results := s.Run(ctx, newSession("127.0.0.1", 1, 20, model.ProtocolUDP),
		[]netip.Addr{netip.MustParseAddr("127.0.0.1")})

	require.Len(t, results, 20)
	for _, r := range results {
		require.NotNil(t, r.ErrorCode)
		assert.Equal(t, model.CodeProbeCancelled, *r.ErrorCode)
		assert.Equal(t, model.ProtocolUDP, r.Protocol)
	}
}

func TestSchedulerRateLimit(t *testing.T) {
	prober := &fakeProber{}
	s := NewScheduler(prober, SchedulerOptions{Workers: 10, SessionDeadline: 10 * time.Second, Rate: 20})

	start := time.Now()
	results := s.Run(context.Background(), newSession("127.0.0.1", 1, 5, model.ProtocolTCP),
		[]netip.Addr{netip.MustParseAddr("127.0.0.1")})

	assert.Len(t, results, 5)
	// 20/s、突发 1：5 个任务至少间隔 4 个 50ms
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestSchedulerEmptyTargets(t *testing.T) {
	s := NewScheduler(&fakeProber{}, SchedulerOptions{})
	results := s.Run(context.Background(), newSession("x", 1, 10, model.ProtocolTCP), nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
