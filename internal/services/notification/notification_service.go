package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/premiads/backend/internal/models"
	"github.com/premiads/backend/internal/queue"
	"gorm.io/gorm"
)

// Payload is the wire shape of a send_notification job
type Payload struct {
	UserID  uuid.UUID `json:"user_id"`
	Type    string    `json:"type"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

// Service writes user inbox notifications. Delivery is fire-and-forget
// through the job queue; a queue failure is logged and never propagated, so
// core operations cannot fail because of a notification.
type Service struct {
	db    *gorm.DB
	queue queue.QueueInterface
}

// NewService creates a new notification service
func NewService(db *gorm.DB, q queue.QueueInterface) *Service {
	return &Service{db: db, queue: q}
}

// Notify enqueues a notification for async delivery
func (s *Service) Notify(userID uuid.UUID, notificationType, title, message string) {
	payload, err := json.Marshal(Payload{
		UserID:  userID,
		Type:    notificationType,
		Title:   title,
		Message: message,
	})
	if err != nil {
		log.Printf("Failed to marshal notification payload for user %s: %v", userID, err)
		return
	}

	job := &queue.Job{
		Type:       queue.JobTypeSendNotification,
		Payload:    payload,
		MaxRetries: queue.DefaultMaxRetries,
	}
	if err := s.queue.Enqueue(job); err != nil {
		log.Printf("Failed to enqueue notification for user %s: %v", userID, err)
	}
}

// HandleSendNotification is the queue handler that persists the inbox row
func (s *Service) HandleSendNotification(ctx context.Context, job queue.Job) (interface{}, error) {
	var payload Payload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("invalid notification payload: %w", err)
	}

	notification := &models.Notification{
		UserID:  payload.UserID,
		Type:    payload.Type,
		Title:   payload.Title,
		Message: payload.Message,
	}
	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, fmt.Errorf("error creating notification: %w", err)
	}

	return map[string]interface{}{"notification_id": notification.ID}, nil
}

// ListForUser returns a user's notifications, newest first
func (s *Service) ListForUser(userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	query := s.db.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead marks one of the user's notifications as read
func (s *Service) MarkRead(userID, notificationID uuid.UUID) error {
	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)
	if result.Error != nil {
		return fmt.Errorf("error marking notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
