package service

import (
	"context"
	"errors"

	"rehber-go/internal/model"
	"rehber-go/internal/repository"
	"rehber-go/internal/security"

	"github.com/google/uuid"
)

// ErrInvalidScore 表示评分不在 1..5 范围内。
var ErrInvalidScore = errors.New("score must be between 1 and 5")

// autoReasons 是各评分档位对应的固定理由文案。
var autoReasons = map[int]string{
	1: "Rezalet",
	2: "Kotu",
	3: "Idare eder",
	4: "Iyi",
	5: "Cok iyi",
}

// FeedbackService 处理用户对助手回答的评分，同一消息重复评分按更新处理。
type FeedbackService interface {
	Submit(ctx context.Context, tenantID, profileKey string, req model.FeedbackRequest) (bool, error)
}

type feedbackService struct {
	feedbackRepo repository.FeedbackRepository
}

// NewFeedbackService 创建一个新的 FeedbackService 实例。
func NewFeedbackService(feedbackRepo repository.FeedbackRepository) FeedbackService {
	return &feedbackService{feedbackRepo: feedbackRepo}
}

func (s *feedbackService) Submit(ctx context.Context, tenantID, profileKey string, req model.FeedbackRequest) (bool, error) {
	if req.Score < 1 || req.Score > 5 {
		return false, ErrInvalidScore
	}
	messageID, err := security.SanitizeIdentifier(req.MessageID, "message_id")
	if err != nil {
		return false, err
	}

	feedback := model.ChatFeedback{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		ProfileKey: profileKey,
		MessageID:  messageID,
		Score:      req.Score,
		Reason:     autoReasons[req.Score],
	}
	return s.feedbackRepo.Upsert(ctx, &feedback)
}
