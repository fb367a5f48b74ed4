package cron

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go/log"
	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/customeros/mxvalidator/config"
	"github.com/customeros/mxvalidator/interfaces"
	"github.com/customeros/mxvalidator/internal/enum"
	"github.com/customeros/mxvalidator/internal/logger"
	"github.com/customeros/mxvalidator/internal/repository"
	"github.com/customeros/mxvalidator/internal/tracing"
	"github.com/customeros/mxvalidator/internal/utils"
)

// CONSTANTS
const (
	// GroupMxValidator is the group for batch maintenance jobs
	GroupMxValidator = "mxvalidator"

	LeaderLeaseName = "mxvalidator-cron-leader"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second
)

const (
	jobHeartbeat         = "heartbeat"
	jobStalePendingSweep = "stale_pending_sweep"
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupMxValidator: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg      *config.CronConfig
	log      logger.Logger
	cron     *cronv3.Cron
	k8s      kubernetes.Interface
	ctx      context.Context
	cancel   context.CancelFunc
	stopCh   chan struct{}
	stopOnce sync.Once
	jobIDs   map[string]cronv3.EntryID
	batch    interfaces.BatchService
	postgres *repository.Repositories
}

func NewCronManager(cfg *config.CronConfig, log logger.Logger, k8s kubernetes.Interface, batch interfaces.BatchService, postgres *repository.Repositories) *CronManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &CronManager{
		cfg:      cfg,
		log:      log,
		k8s:      k8s,
		ctx:      ctx,
		cancel:   cancel,
		stopCh:   make(chan struct{}),
		jobIDs:   make(map[string]cronv3.EntryID),
		batch:    batch,
		postgres: postgres,
	}
}

// Start initializes and starts the cron manager with leader election
// If k8s is nil, it will start in local mode without leader election
func (cm *CronManager) Start() error {
	if cm.k8s == nil || cm.cfg.LocalDev {
		cm.log.Info("Starting cron manager in local mode")
		return cm.StartCron()
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      LeaderLeaseName,
			Namespace: cm.cfg.Namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: cm.cfg.PodName,
		},
	}

	// Channel to track leader election errors
	errCh := make(chan error, 1)

	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					if err := cm.StartCron(); err != nil {
						cm.log.Errorf("Failed to start crons after winning leadership: %v", err)
					}
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.Stop()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-cm.stopCh
			cancel()
		}()
		le.Run(ctx)
	}()

	// Wait briefly to see if leader election fails immediately
	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		return cm.StartCron()
	case <-time.After(5 * time.Second):
	}

	return nil
}

// Stop cancels running jobs and waits for them to return. Safe to call more
// than once.
func (cm *CronManager) Stop() {
	cm.stopOnce.Do(func() {
		cm.cancel()
		close(cm.stopCh)
		if cm.cron != nil {
			cm.log.Info("Stopping cron manager")
			ctx := cm.cron.Stop()
			// Wait for jobs to finish
			<-ctx.Done()
		}
	})
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) error {
	if cm.cfg.CronScheduleHeartbeat != "" {
		podName := cm.cfg.PodName
		id, err := c.AddFunc(cm.cfg.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		})
		if err != nil {
			return err
		}
		cm.jobIDs[jobHeartbeat] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cm.cfg.CronScheduleHeartbeat)
	}

	if cm.cfg.CronScheduleStalePendingSweep != "" {
		id, err := c.AddFunc(cm.cfg.CronScheduleStalePendingSweep, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupMxValidator].Lock()
			defer jobLocks.locks[GroupMxValidator].Unlock()
			cm.sweepStalePending(cm.ctx)
		})
		if err != nil {
			return err
		}
		cm.jobIDs[jobStalePendingSweep] = id
		cm.log.Infof("Registered stale pending sweep with schedule: %s", cm.cfg.CronScheduleStalePendingSweep)
	}

	return nil
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() error {
	cm.log.Info("Starting cron manager")
	// Create a new cron with seconds field enabled and panic recovery
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger), // Skip if still running
			cronv3.Recover(cronv3.DefaultLogger),            // Default recovery as backup
		),
	}
	c := cronv3.New(cronOptions...)
	if err := cm.registerJobs(c); err != nil {
		return err
	}
	c.Start()
	cm.cron = c
	return nil
}

// sweepStalePending re-runs resolution and write-back for domains whose rows
// stayed pending past the threshold, e.g. after a failed write-back or a
// crash mid-batch.
func (cm *CronManager) sweepStalePending(ctx context.Context) int {
	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.sweepStalePending")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	createdBefore := utils.Now().Add(-cm.cfg.StalePendingAfter)
	pending, err := cm.postgres.EmailRecordRepository.FindStalePending(ctx, createdBefore, cm.cfg.StalePendingLimit)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to load stale pending domains: %v", err)
		return 0
	}
	span.LogFields(log.Int("domains", len(pending)))
	if len(pending) == 0 {
		return 0
	}

	cm.log.Infof("Re-dispatching %d stale pending domains", len(pending))
	recovered := 0
	for _, item := range pending {
		if ctx.Err() != nil {
			cm.log.Infof("Stale pending sweep interrupted after %d domains", recovered)
			return recovered
		}

		outcome, err := cm.batch.ProcessDomain(ctx, item.BatchID, item.Domain)
		if err != nil {
			tracing.TraceErr(span, err)
			cm.log.Warnf("Stale pending domain %s in batch %s still not written back: %v", item.Domain, item.BatchID, err)
			continue
		}
		if outcome != enum.ResolutionResolved {
			cm.log.Infof("Stale pending domain %s in batch %s resolved as %s", item.Domain, item.BatchID, outcome)
		}
		recovered++
	}

	return recovered
}
