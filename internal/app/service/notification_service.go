package service

import (
	"context"

	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/app/repository"
	"github.com/ikkim/bizmarket-backend/internal/websocket"
	"github.com/ikkim/bizmarket-backend/pkg/logger"
)

const defaultNotificationLimit = 50

// NotificationSink is informed of trust-related changes. Delivery failures never reach the caller.
type NotificationSink interface {
	Notify(ctx context.Context, userID uint, kind model.NotificationType, message string)
}

type NotificationService interface {
	NotificationSink
	ListRecent(ctx context.Context, userID uint, limit int) ([]model.Notification, error)
}

type notificationService struct {
	repo repository.NotificationRepository
	hub  *websocket.Hub
}

// NewNotificationService 알림 서비스 생성자 (hub 가 nil 이면 저장만 한다)
func NewNotificationService(repo repository.NotificationRepository, hub *websocket.Hub) NotificationService {
	return &notificationService{
		repo: repo,
		hub:  hub,
	}
}

func (s *notificationService) Notify(ctx context.Context, userID uint, kind model.NotificationType, message string) {
	notification := &model.Notification{
		UserID:  userID,
		Type:    kind,
		Message: message,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		logger.Warn("Failed to save notification", map[string]interface{}{
			"user_id": userID,
			"type":    kind,
			"error":   err.Error(),
		})
		return
	}

	if s.hub == nil {
		return
	}

	wsMessage := map[string]interface{}{
		"type": "notification",
		"data": notification,
	}
	if err := s.hub.SendToUser(userID, wsMessage); err != nil {
		logger.Warn("Failed to push notification", map[string]interface{}{
			"user_id":         userID,
			"notification_id": notification.ID,
			"error":           err.Error(),
		})
	}
}

func (s *notificationService) ListRecent(ctx context.Context, userID uint, limit int) ([]model.Notification, error) {
	if limit < 1 || limit > defaultNotificationLimit {
		limit = defaultNotificationLimit
	}
	return s.repo.FindByUserID(ctx, userID, limit)
}
