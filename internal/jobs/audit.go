package jobs

import (
	"context"
	"time"

	"github.com/emrgen/coa/internal/metrics"
	"github.com/emrgen/coa/internal/repair"
	"github.com/sirupsen/logrus"
)

// DefaultAuditSchedule is used when AUDIT_SCHEDULE is empty.
const DefaultAuditSchedule = "@every 1h"

type Auditor interface {
	Audit(ctx context.Context) (*repair.Report, error)
}

// IntegrityAuditJob audits COA files periodically and exports the issue
// counts as gauges. It never repairs anything.
type IntegrityAuditJob struct {
	auditor  Auditor
	schedule string
	timeout  time.Duration
}

func NewIntegrityAuditJob(auditor Auditor, schedule string) *IntegrityAuditJob {
	if schedule == "" {
		schedule = DefaultAuditSchedule
	}
	return &IntegrityAuditJob{auditor: auditor, schedule: schedule, timeout: 5 * time.Minute}
}

func (j *IntegrityAuditJob) Name() string {
	return "integrity_audit"
}

func (j *IntegrityAuditJob) Schedule() string {
	return j.schedule
}

func (j *IntegrityAuditJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.auditor.Audit(ctx)
	if err != nil {
		logrus.Errorf("integrity audit failed: %v", err)
		return
	}

	for _, kind := range repair.IssueKinds {
		metrics.IntegrityIssues.WithLabelValues(string(kind)).Set(float64(report.Count(kind)))
	}
	if len(report.Issues) > 0 {
		logrus.Warnf("integrity audit found %d issues across %d coas", len(report.Issues), report.Checked)
	}
}
