package chat

import (
	"context"
	"time"
)

// SweepJob is the scheduler job that expires idle sessions.
type SweepJob struct {
	svc     *Service
	timeout time.Duration
}

func NewSweepJob(svc *Service) *SweepJob {
	return &SweepJob{svc: svc, timeout: time.Minute}
}

func (j *SweepJob) Name() string { return "chat_session_sweep" }

func (j *SweepJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	_, err := j.svc.SweepIdle(ctx)
	return err
}
