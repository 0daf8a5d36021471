package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Purger deletes persisted rows older than a cutoff.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob purges old sessions, shot events and window summaries on a
// cron schedule. A non-positive retention disables it.
type RetentionJob struct {
	cron  *cron.Cron
	store Purger
	keep  time.Duration
	now   func() time.Time
}

func NewRetentionJob(store Purger, days int) *RetentionJob {
	return &RetentionJob{
		cron:  cron.New(),
		store: store,
		keep:  time.Duration(days) * 24 * time.Hour,
		now:   time.Now,
	}
}

func (j *RetentionJob) Enabled() bool {
	return j.store != nil && j.keep > 0
}

// Start schedules the purge; schedule accepts cron specs and descriptors
// such as "@daily".
func (j *RetentionJob) Start(schedule string) error {
	if !j.Enabled() {
		log.Info("Retention disabled")
		return nil
	}
	if _, err := j.cron.AddFunc(schedule, func() {
		if _, err := j.RunOnce(context.Background()); err != nil {
			log.Warnf("Retention purge failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("retention schedule %q: %w", schedule, err)
	}
	j.cron.Start()
	log.Infof("Retention scheduled %q, keeping %s", schedule, j.keep)
	return nil
}

func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	if !j.Enabled() {
		return 0, nil
	}
	cutoff := j.now().Add(-j.keep)
	n, err := j.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	log.Infof("Retention purged %d rows older than %s", n, cutoff.Format(time.RFC3339))
	return n, nil
}

// Stop waits for a running purge to finish.
func (j *RetentionJob) Stop() {
	<-j.cron.Stop().Done()
}
