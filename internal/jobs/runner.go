package jobs

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

// DefaultInterval drives the plain jobs that have no schedule of their own.
const DefaultInterval = "@every 5s"

type Job interface {
	Name() string
	Run()
}

type CronJob interface {
	Schedule() string
	Job
}

// TaskExecutor runs jobs on a cron. A job never overlaps with itself: a
// tick arriving while the previous run is still going is skipped.
type TaskExecutor struct {
	cron     *cron.Cron
	jobs     []Job
	cronJobs []CronJob
	interval string
	running  mapset.Set[string]
	mu       sync.Mutex
}

func NewTaskExecutor(jobs []Job, cronJobs []CronJob) *TaskExecutor {
	return &TaskExecutor{
		cron:     cron.New(),
		jobs:     jobs,
		cronJobs: cronJobs,
		interval: DefaultInterval,
		running:  mapset.NewSet[string](),
	}
}

// WithInterval changes how often plain jobs run.
func (t *TaskExecutor) WithInterval(interval string) *TaskExecutor {
	if interval != "" {
		t.interval = interval
	}
	return t
}

// Start registers every job and starts the cron in its own goroutine.
func (t *TaskExecutor) Start() error {
	for _, job := range t.cronJobs {
		job := job
		if err := t.cron.AddFunc(job.Schedule(), func() { t.tryRun(job) }); err != nil {
			logrus.Errorf("failed to schedule %s: %v", job.Name(), err)
			return err
		}
		logrus.Infof("scheduled %s at %s", job.Name(), job.Schedule())
	}

	for _, job := range t.jobs {
		job := job
		if err := t.cron.AddFunc(t.interval, func() { t.tryRun(job) }); err != nil {
			logrus.Errorf("failed to schedule %s: %v", job.Name(), err)
			return err
		}
	}

	t.cron.Start()
	return nil
}

// tryRun runs job unless it is already running and reports whether it ran.
func (t *TaskExecutor) tryRun(job Job) bool {
	t.mu.Lock()
	if t.running.Contains(job.Name()) {
		t.mu.Unlock()
		logrus.Warnf("%s is still running, skipping", job.Name())
		return false
	}
	t.running.Add(job.Name())
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.running.Remove(job.Name())
	}()

	job.Run()
	return true
}

func (t *TaskExecutor) Stop() {
	logrus.Infof("stopping all tasks")
	t.cron.Stop()
}
