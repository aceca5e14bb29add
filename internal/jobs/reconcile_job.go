package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/premiads/backend/internal/queue"
	"github.com/premiads/backend/internal/services/rifas"
)

// ReconcileJob periodically recomputes cached rifas/cashback balances from
// the ledger. The ledger is the source of truth; this job repairs any drift
// the incremental updates may have accumulated.
type ReconcileJob struct {
	ledger *rifas.Service
	queue  queue.QueueInterface
}

// NewReconcileJob creates a new reconcile job
func NewReconcileJob(ledger *rifas.Service, q queue.QueueInterface) *ReconcileJob {
	return &ReconcileJob{ledger: ledger, queue: q}
}

// Enqueue queues one reconciliation run
func (j *ReconcileJob) Enqueue() error {
	payload, _ := json.Marshal(map[string]interface{}{
		"requested_at": time.Now().UTC(),
	})
	return j.queue.Enqueue(&queue.Job{
		Type:       queue.JobTypeReconcileBalances,
		Payload:    payload,
		MaxRetries: queue.DefaultMaxRetries,
	})
}

// Handle is the queue handler for a reconciliation run
func (j *ReconcileJob) Handle(ctx context.Context, job queue.Job) (interface{}, error) {
	corrected, err := j.ledger.Reconcile()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"profiles_corrected": corrected}, nil
}
