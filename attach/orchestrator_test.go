package attach

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vmattach/discovery"
	"vmattach/metrics"
	"vmattach/process"
	"vmattach/process/processtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCollector counts attach metrics
type recordingCollector struct {
	metrics.Collector

	mu       sync.Mutex
	started  int
	outcomes []string
	late     int
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{Collector: metrics.NewNoop()}
}

func (r *recordingCollector) AttachStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingCollector) AttachFinished(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingCollector) AttachLateFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.late++
}

func (r *recordingCollector) snapshot() (int, []string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started, append([]string(nil), r.outcomes...), r.late
}

// outcomeRecorder captures callback invocations
type outcomeRecorder struct {
	successes atomic.Int32
	failures  atomic.Int32

	mu      sync.Mutex
	err     error
	firstAt time.Time
}

func (r *outcomeRecorder) onSuccess() {
	r.mu.Lock()
	if r.firstAt.IsZero() {
		r.firstAt = time.Now()
	}
	r.mu.Unlock()
	r.successes.Add(1)
}

func (r *outcomeRecorder) onError(err error) {
	r.mu.Lock()
	r.err = err
	if r.firstAt.IsZero() {
		r.firstAt = time.Now()
	}
	r.mu.Unlock()
	r.failures.Add(1)
}

func (r *outcomeRecorder) lastErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *outcomeRecorder) at() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.firstAt
}

func fixedPath(path string) AgentLocator {
	return LocatorFunc(func() (string, error) { return path, nil })
}

func newTarget(t *testing.T, load func(path, options string) error) (*discovery.Target, *processtest.Conn) {
	t.Helper()
	conn := processtest.NewConn("4242")
	conn.Load = load
	target, err := discovery.NewTarget(conn, "com.example.Main", time.Hour)
	require.NoError(t, err)
	return target, conn
}

func TestAttach_ImmediateLoadFailure(t *testing.T) {
	mc := newRecordingCollector()
	o := New(fixedPath("/opt/agent.jar"), WithConfirmDelay(50*time.Millisecond), WithMetricsCollector(mc))
	target, _ := newTarget(t, func(string, string) error {
		return process.Fail(process.ErrAgentLoad, "4242", errors.New("target refused"))
	})

	rec := &outcomeRecorder{}
	o.Attach(target, rec.onSuccess, rec.onError)

	require.Eventually(t, func() bool { return rec.failures.Load() == 1 }, time.Second, 5*time.Millisecond)

	// wait well past the confirmation delay
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), rec.failures.Load())
	assert.Equal(t, int32(0), rec.successes.Load())
	assert.True(t, errors.Is(rec.lastErr(), process.ErrAgentLoad))

	started, outcomes, late := mc.snapshot()
	assert.Equal(t, 1, started)
	assert.Equal(t, []string{metrics.OutcomeAgentLoad}, outcomes)
	assert.Equal(t, 0, late)
}

func TestAttach_HangingLoadReportsSuccess(t *testing.T) {
	delay := 100 * time.Millisecond
	o := New(fixedPath("/opt/agent.jar"), WithConfirmDelay(delay))

	block := make(chan struct{})
	defer close(block)
	target, conn := newTarget(t, func(string, string) error {
		<-block
		return nil
	})

	rec := &outcomeRecorder{}
	start := time.Now()
	o.Attach(target, rec.onSuccess, rec.onError)

	require.Eventually(t, func() bool { return rec.successes.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	elapsed := rec.at().Sub(start)
	assert.GreaterOrEqual(t, elapsed, delay)
	assert.Less(t, elapsed, delay+400*time.Millisecond)

	time.Sleep(2 * delay)
	assert.Equal(t, int32(1), rec.successes.Load())
	assert.Equal(t, int32(0), rec.failures.Load())
	assert.Equal(t, 1, conn.LoadCalls())
}

func TestAttach_QuickReturnStillWaitsForConfirmation(t *testing.T) {
	delay := 80 * time.Millisecond
	o := New(fixedPath("/opt/agent.jar"), WithConfirmDelay(delay))
	target, _ := newTarget(t, nil)

	rec := &outcomeRecorder{}
	start := time.Now()
	o.Attach(target, rec.onSuccess, rec.onError)

	require.Eventually(t, func() bool { return rec.successes.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, rec.at().Sub(start), delay)
}

func TestAttach_LateFailureOnlyLogged(t *testing.T) {
	mc := newRecordingCollector()
	o := New(fixedPath("/opt/agent.jar"), WithConfirmDelay(30*time.Millisecond), WithMetricsCollector(mc))

	release := make(chan struct{})
	returned := make(chan struct{})
	target, _ := newTarget(t, func(string, string) error {
		defer close(returned)
		<-release
		return process.Fail(process.ErrAgentInit, "4242", errors.New("Agent_OnAttach failed"))
	})

	rec := &outcomeRecorder{}
	o.Attach(target, rec.onSuccess, rec.onError)
	require.Eventually(t, func() bool { return rec.successes.Load() == 1 }, time.Second, 5*time.Millisecond)

	close(release)
	<-returned

	require.Eventually(t, func() bool {
		_, _, late := mc.snapshot()
		return late == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), rec.failures.Load())

	_, outcomes, _ := mc.snapshot()
	assert.Equal(t, []string{metrics.OutcomeSuccess}, outcomes)
}

func TestAttach_PathResolutionFailure(t *testing.T) {
	mc := newRecordingCollector()
	o := New(LocatorFunc(func() (string, error) { return "", errors.New("no agent jar") }),
		WithMetricsCollector(mc))
	target, conn := newTarget(t, nil)

	rec := &outcomeRecorder{}
	gate := make(chan struct{})
	returned := make(chan struct{})
	go func() {
		o.Attach(target, rec.onSuccess, func(err error) {
			<-gate
			rec.onError(err)
		})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Attach blocked on its error callback")
	}
	close(gate)

	require.Eventually(t, func() bool { return rec.failures.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, errors.Is(rec.lastErr(), process.ErrPathResolution))
	assert.Equal(t, int32(0), rec.successes.Load())
	assert.Equal(t, 0, conn.LoadCalls())

	_, outcomes, _ := mc.snapshot()
	assert.Equal(t, []string{metrics.OutcomePathResolution}, outcomes)
}

func TestAttach_SuccessCallbackOffCallerGoroutine(t *testing.T) {
	o := New(fixedPath("/opt/agent.jar"), WithConfirmDelay(time.Millisecond))
	target, _ := newTarget(t, nil)

	rec := &outcomeRecorder{}
	gate := make(chan struct{})
	entered := make(chan struct{})
	returned := make(chan struct{})
	go func() {
		o.Attach(target, func() {
			close(entered)
			<-gate
			rec.onSuccess()
		}, rec.onError)
		close(returned)
	}()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("success callback never ran")
	}
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Attach blocked on its success callback")
	}
	assert.Equal(t, int32(0), rec.successes.Load())

	close(gate)
	require.Eventually(t, func() bool { return rec.successes.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), rec.failures.Load())
}

func TestAttach_NoLocator(t *testing.T) {
	o := New(nil)
	target, _ := newTarget(t, nil)

	err := o.AttachWait(context.Background(), target)
	assert.True(t, errors.Is(err, process.ErrPathResolution))
}

func TestAttach_UnrecognizedErrorIsIO(t *testing.T) {
	o := New(fixedPath("/opt/agent.jar"), WithConfirmDelay(time.Second))
	target, _ := newTarget(t, func(string, string) error { return io.ErrUnexpectedEOF })

	err := o.AttachWait(context.Background(), target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, process.ErrAgentIO))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestAttach_PanicInLoadIsIO(t *testing.T) {
	o := New(fixedPath("/opt/agent.jar"), WithConfirmDelay(time.Second))
	target, _ := newTarget(t, func(string, string) error { panic("native crash") })

	err := o.AttachWait(context.Background(), target)
	assert.True(t, errors.Is(err, process.ErrAgentIO))
}

func TestAttach_PassesPathAndOptions(t *testing.T) {
	got := make(chan [2]string, 1)
	o := New(fixedPath("/opt/agent.jar"), WithConfirmDelay(20*time.Millisecond), WithAgentOptions("verbose=true"))
	target, _ := newTarget(t, func(path, options string) error {
		got <- [2]string{path, options}
		return nil
	})

	require.NoError(t, o.AttachWait(context.Background(), target))
	assert.Equal(t, [2]string{"/opt/agent.jar", "verbose=true"}, <-got)
}

func TestAttach_NilCallbacks(t *testing.T) {
	o := New(fixedPath("/opt/agent.jar"), WithConfirmDelay(10*time.Millisecond))
	target, _ := newTarget(t, func(string, string) error { return process.ErrAgentLoad })

	assert.NotPanics(t, func() { o.Attach(target, nil, nil) })
	time.Sleep(50 * time.Millisecond)
}

func TestAttachWait_ContextDone(t *testing.T) {
	o := New(fixedPath("/opt/agent.jar"), WithConfirmDelay(time.Hour))
	block := make(chan struct{})
	defer close(block)
	target, _ := newTarget(t, func(string, string) error {
		<-block
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := o.AttachWait(ctx, target)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDetach(t *testing.T) {
	o := New(nil)
	target, conn := newTarget(t, nil)

	require.NoError(t, o.Detach(target))
	assert.Equal(t, 1, conn.Detached())

	conn.SetDetachError(errors.New("socket gone"))
	err := o.Detach(target)
	assert.True(t, errors.Is(err, process.ErrDetach))
}

func TestDefaults(t *testing.T) {
	o := New(nil, WithConfirmDelay(-1))
	assert.Equal(t, DefaultConfirmDelay, o.ConfirmDelay())
}
