package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emrgen/coa/internal/blob"
	"github.com/emrgen/coa/internal/metrics"
	"github.com/emrgen/coa/internal/model"
	"github.com/emrgen/coa/internal/notify"
	"github.com/emrgen/coa/internal/objref"
	"github.com/emrgen/coa/internal/queue"
	"github.com/emrgen/coa/internal/repair"
	"github.com/emrgen/coa/internal/tester"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs    atomic.Int32
	release chan struct{}
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() {
	j.runs.Add(1)
	if j.release != nil {
		<-j.release
	}
}

func TestTaskExecutorRunsJobs(t *testing.T) {
	job := &countingJob{}
	executor := NewTaskExecutor([]Job{job}, nil).WithInterval("@every 1s")
	require.NoError(t, executor.Start())
	defer executor.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestTaskExecutorSkipsOverlappingRuns(t *testing.T) {
	job := &countingJob{release: make(chan struct{})}
	executor := NewTaskExecutor([]Job{job}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		executor.tryRun(job)
	}()
	assert.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 10*time.Millisecond)

	assert.False(t, executor.tryRun(job))

	close(job.release)
	wg.Wait()

	assert.True(t, executor.tryRun(job))
	assert.Equal(t, int32(2), job.runs.Load())
}

func TestTaskExecutorRejectsBadSchedule(t *testing.T) {
	audit := NewIntegrityAuditJob(nil, "not a schedule")
	executor := NewTaskExecutor(nil, []CronJob{audit})
	assert.Error(t, executor.Start())
}

func TestIntegrityAuditJob(t *testing.T) {
	ctx := context.Background()
	s := tester.Store(t)
	blobs := tester.Blobs()
	resolver := objref.NewResolver("http://localhost:4020", objref.DefaultBucket)

	_, err := blobs.Put(ctx, "coas/stray_1.pdf", strings.NewReader("%PDF-1.4"), blob.PutOptions{})
	require.NoError(t, err)
	require.NoError(t, s.CreateCOA(ctx, &model.COA{
		Code:       "ZT-2024-001",
		ClientName: "Acme",
		Compound:   "BPC-157",
		FileKey:    "coas/ZT-2024-001_1.pdf",
		FileURL:    resolver.PublicURL("coas/ZT-2024-001_1.pdf"),
	}))

	job := NewIntegrityAuditJob(repair.New(s, blobs, resolver, repair.Options{}), "")
	assert.Equal(t, DefaultAuditSchedule, job.Schedule())
	job.Run()

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.IntegrityIssues.WithLabelValues(string(repair.IssueMissingFile))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.IntegrityIssues.WithLabelValues(string(repair.IssueOrphanObject))))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.IntegrityIssues.WithLabelValues(string(repair.IssueSharedURL))))
}

type recordingDispatcher struct {
	mu       sync.Mutex
	requests []notify.Request
	fail     string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, req notify.Request) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if req.Type == d.fail {
		return "", errors.New("provider down")
	}
	d.requests = append(d.requests, req)
	return "msg-1", nil
}

func publish(t *testing.T, q queue.Queue, eventType, key string, payload any) {
	event, err := queue.NewEvent(eventType, key, payload)
	require.NoError(t, err)
	require.NoError(t, q.Publish(context.Background(), event))
}

func TestNotificationJob(t *testing.T) {
	q := queue.NewMemory(64)
	defer q.Close()
	dispatcher := &recordingDispatcher{}

	publish(t, q, queue.EventContact, "ann@example.com", map[string]any{"name": "Ann", "email": "ann@example.com", "message": "hi"})
	publish(t, q, queue.EventSample, "bob@example.com", map[string]any{"name": "Bob", "compound": "TB-500"})
	publish(t, q, queue.EventNewsletter, "cy@example.com", map[string]any{"email": "cy@example.com"})
	publish(t, q, "unknown.event", "", map[string]any{})

	job := NewNotificationJob(q, dispatcher)
	assert.Equal(t, 3, job.Drain(context.Background()))

	require.Len(t, dispatcher.requests, 3)
	assert.Equal(t, notify.TypeContact, dispatcher.requests[0].Type)
	assert.Equal(t, notify.TypeSample, dispatcher.requests[1].Type)
	assert.Equal(t, "bob@example.com", dispatcher.requests[1].Data["email"])
	assert.Equal(t, notify.TypeNewsletter, dispatcher.requests[2].Type)

	assert.Equal(t, 0, job.Drain(context.Background()))
}

func TestNotificationJobDrainsBatches(t *testing.T) {
	q := queue.NewMemory(64)
	defer q.Close()
	dispatcher := &recordingDispatcher{fail: notify.TypeContact}

	for i := 0; i < 25; i++ {
		publish(t, q, queue.EventNewsletter, "reader@example.com", map[string]any{"email": "reader@example.com"})
	}
	publish(t, q, queue.EventContact, "ann@example.com", map[string]any{"name": "Ann"})

	job := NewNotificationJob(q, dispatcher)
	assert.Equal(t, 25, job.Drain(context.Background()))
	assert.Equal(t, 0, job.Drain(context.Background()))
}

// failingQueue returns whatever it read together with a read error, the way
// the kafka consumer does when the broker drops mid batch.
type failingQueue struct {
	queue.Queue
	err error
}

func (q failingQueue) Poll(_ context.Context, max int) ([]*queue.Event, error) {
	events, _ := q.Queue.Poll(context.Background(), max)
	return events, q.err
}

func TestNotificationJobSendsEventsReadBeforePollError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		cancel bool
	}{
		{name: "broker error", err: errors.New("kafka read: broker transport failure")},
		{name: "deadline", err: context.DeadlineExceeded, cancel: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := queue.NewMemory(64)
			defer mem.Close()
			dispatcher := &recordingDispatcher{}

			publish(t, mem, queue.EventContact, "ann@example.com", map[string]any{"name": "Ann", "email": "ann@example.com"})
			publish(t, mem, queue.EventNewsletter, "cy@example.com", map[string]any{"email": "cy@example.com"})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}

			job := NewNotificationJob(failingQueue{Queue: mem, err: tt.err}, dispatcher)
			assert.Equal(t, 2, job.Drain(ctx))
			require.Len(t, dispatcher.requests, 2)
			assert.Equal(t, notify.TypeContact, dispatcher.requests[0].Type)
			assert.Equal(t, notify.TypeNewsletter, dispatcher.requests[1].Type)
		})
	}
}
