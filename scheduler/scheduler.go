// Package scheduler drives the sync engine and the backup task on a cadence,
// independent of any UI lifecycle. Each task is a single idempotent attempt;
// the outcome is reported so the host can decide on retry and backoff.
package scheduler

import (
	"context"
	"log"
	"time"

	"creditbook/localstore"
	"creditbook/services"
	"creditbook/syncclient"

	"github.com/robfig/cron/v3"
)

// Session is the authenticated identity tasks run under. A nil session
// makes every task fail fast instead of retrying forever.
type Session struct {
	UserID     string
	OwnerPhone string
}

// Outcome is what a task run reports. Retryable failures should be
// rescheduled; terminal ones surfaced.
type Outcome struct {
	Task      string
	StartedAt time.Time
	Duration  time.Duration
	Err       error
	Retryable bool
}

type Reporter func(Outcome)

// LogReporter is the default sink: every outcome lands in the log, never
// silently dropped.
func LogReporter(o Outcome) {
	if o.Err != nil {
		log.Printf("[TASK] %s failed after %v (retryable=%t): %v", o.Task, o.Duration, o.Retryable, o.Err)
		return
	}
	log.Printf("[TASK] %s completed in %v", o.Task, o.Duration)
}

type Scheduler struct {
	engine  *syncclient.Engine
	api     *syncclient.Client
	store   *localstore.Store
	session func() *Session
	report  Reporter

	cron        *cron.Cron
	syncSpec    string
	backupSpec  string
	taskTimeout time.Duration
}

// New wires a scheduler. session is consulted at each task start so login
// and logout take effect without restarting anything.
func New(engine *syncclient.Engine, api *syncclient.Client, store *localstore.Store, session func() *Session, report Reporter) *Scheduler {
	if report == nil {
		report = LogReporter
	}
	return &Scheduler{
		engine:      engine,
		api:         api,
		store:       store,
		session:     session,
		report:      report,
		syncSpec:    "@every 15m",
		backupSpec:  "0 2 * * *",
		taskTimeout: 2 * time.Minute,
	}
}

func (s *Scheduler) Start() {
	s.cron = cron.New()
	s.cron.AddFunc(s.syncSpec, s.RunSync)
	s.cron.AddFunc(s.backupSpec, s.RunBackup)
	s.cron.Start()
	log.Println("Background scheduler started")
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// RunSync performs one sync cycle for the current session's partition.
// Also invoked on demand when a ledger screen opens or connectivity
// returns.
func (s *Scheduler) RunSync() {
	start := time.Now()
	sess := s.session()
	if sess == nil {
		s.report(Outcome{
			Task:      "sync",
			StartedAt: start,
			Err:       &services.AuthError{Msg: "no active session"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.taskTimeout)
	defer cancel()

	err := s.engine.Sync(ctx, sess.OwnerPhone)
	s.report(Outcome{
		Task:      "sync",
		StartedAt: start,
		Duration:  time.Since(start),
		Err:       err,
		Retryable: syncclient.IsRetryable(err),
	})
}

// RunBackup serializes the whole cache to an opaque blob and uploads it,
// replacing the previous blob for this account.
func (s *Scheduler) RunBackup() {
	start := time.Now()
	sess := s.session()
	if sess == nil {
		s.report(Outcome{
			Task:      "backup",
			StartedAt: start,
			Err:       &services.AuthError{Msg: "no active session"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.taskTimeout)
	defer cancel()

	data, err := s.store.Snapshot()
	if err == nil {
		err = s.api.UploadBackup(ctx, data)
	}
	s.report(Outcome{
		Task:      "backup",
		StartedAt: start,
		Duration:  time.Since(start),
		Err:       err,
		Retryable: syncclient.IsRetryable(err),
	})
}

// RunRestore downloads the account's blob and overwrites the local store
// with it wholesale. No event replay, no reconciliation.
func (s *Scheduler) RunRestore() error {
	sess := s.session()
	if sess == nil {
		return &services.AuthError{Msg: "no active session"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.taskTimeout)
	defer cancel()

	data, err := s.api.DownloadBackup(ctx)
	if err != nil {
		return err
	}
	return s.store.Restore(data)
}
