package notification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/premiads/backend/internal/models"
	"github.com/premiads/backend/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeQueue struct {
	jobs []*queue.Job
	err  error
}

func (q *fakeQueue) RegisterHandler(jobType queue.JobType, handler queue.JobHandler) {}

func (q *fakeQueue) Enqueue(job *queue.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) EnqueueIn(job *queue.Job, delay time.Duration) error {
	return q.Enqueue(job)
}

func setupNotificationTest(t *testing.T) (*Service, *fakeQueue, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:notification_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Notification{}))
	q := &fakeQueue{}
	return NewService(db, q), q, db
}

func TestNotifyEnqueuesJob(t *testing.T) {
	service, q, _ := setupNotificationTest(t)
	userID := uuid.New()

	service.Notify(userID, "submission_approved", "Submissão aprovada", "Você ganhou 30 rifas!")

	require.Len(t, q.jobs, 1)
	assert.Equal(t, queue.JobTypeSendNotification, q.jobs[0].Type)
}

func TestNotifyNeverPanicsOnQueueFailure(t *testing.T) {
	service, q, _ := setupNotificationTest(t)
	q.err = assert.AnError

	service.Notify(uuid.New(), "submission_approved", "Título", "Mensagem")
	assert.Empty(t, q.jobs)
}

func TestHandleSendNotification(t *testing.T) {
	service, q, db := setupNotificationTest(t)
	userID := uuid.New()

	service.Notify(userID, "submission_rejected", "Submissão rejeitada", "Tente novamente")
	require.Len(t, q.jobs, 1)

	_, err := service.HandleSendNotification(context.Background(), *q.jobs[0])
	require.NoError(t, err)

	var stored []models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, "submission_rejected", stored[0].Type)
	assert.False(t, stored[0].Read)
}

func TestListAndMarkRead(t *testing.T) {
	service, q, _ := setupNotificationTest(t)
	userID := uuid.New()

	for i := 0; i < 2; i++ {
		service.Notify(userID, "bonus", fmt.Sprintf("Bônus %d", i), "Você recebeu rifas")
	}
	for _, job := range q.jobs {
		_, err := service.HandleSendNotification(context.Background(), *job)
		require.NoError(t, err)
	}

	unread, err := service.ListForUser(userID, true)
	require.NoError(t, err)
	require.Len(t, unread, 2)

	require.NoError(t, service.MarkRead(userID, unread[0].ID))

	unread, err = service.ListForUser(userID, true)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	all, err := service.ListForUser(userID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// can't mark someone else's notification
	err = service.MarkRead(uuid.New(), unread[0].ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
