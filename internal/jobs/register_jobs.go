package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/premiads/backend/internal/queue"
	"github.com/premiads/backend/internal/services/notification"
)

// RegisterAllJobHandlers registers all job handlers with the queue
func RegisterAllJobHandlers(
	q queue.QueueInterface,
	notificationSvc *notification.Service,
	reconcileJob *ReconcileJob,
) {
	q.RegisterHandler(queue.JobTypeSendNotification, notificationSvc.HandleSendNotification)
	q.RegisterHandler(queue.JobTypeReconcileBalances, reconcileJob.Handle)
}

// ScheduleRecurringJobs wires the recurring jobs onto the scheduler. The
// scheduler itself is started by the caller.
func ScheduleRecurringJobs(scheduler *gocron.Scheduler, reconcileJob *ReconcileJob, reconcileInterval time.Duration) error {
	_, err := scheduler.Every(reconcileInterval).Do(func() {
		if err := reconcileJob.Enqueue(); err != nil {
			log.Printf("Error enqueueing balance reconciliation: %v", err)
		}
	})
	return err
}
