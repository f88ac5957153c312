package service

import (
	"context"
	"fmt"
	"time"

	"rehber-go/internal/model"
	"rehber-go/internal/repository"
	"rehber-go/internal/security"
	"rehber-go/pkg/log"
)

const (
	sessionListLimit    = 50
	sessionMessageLimit = 200
)

// SessionService 提供会话列表、消息记录查询与会话删除。
type SessionService interface {
	ListSessions(ctx context.Context, tenantID, profileKey, userID string) ([]model.SessionSummary, error)
	Messages(ctx context.Context, tenantID, profileKey, userID, sessionID string) ([]model.MessageView, error)
	Delete(ctx context.Context, tenantID, profileKey, sessionID string) error
}

type sessionService struct {
	sessionRepo repository.SessionRepository
	messageRepo repository.MessageRepository
}

// NewSessionService 创建一个新的 SessionService 实例。
func NewSessionService(sessionRepo repository.SessionRepository, messageRepo repository.MessageRepository) SessionService {
	return &sessionService{sessionRepo: sessionRepo, messageRepo: messageRepo}
}

// ListSessions 按最近活跃时间倒序返回用户的会话摘要，预览为最后一条助手回答。
func (s *sessionService) ListSessions(ctx context.Context, tenantID, profileKey, userID string) ([]model.SessionSummary, error) {
	userID, err := security.SanitizeIdentifier(userID, "user_id")
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessionRepo.ListForUser(ctx, tenantID, profileKey, userID, sessionListLimit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	summaries := make([]model.SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		preview, err := s.messageRepo.LastAnswer(ctx, tenantID, profileKey, sess.ID)
		if err != nil {
			log.Errorf("读取会话预览失败: session=%s err=%v", sess.ID, err)
		}
		summaries = append(summaries, model.SessionSummary{
			SessionID:    sess.ID,
			Title:        sess.Title,
			StartedAt:    sess.StartedAt.UTC().Format(time.RFC3339),
			LastActivity: formatActivity(sess),
			Preview:      previewOf(preview),
			TitleLocked:  sess.TitleLocked,
		})
	}
	return summaries, nil
}

// Messages 返回会话的消息记录，按时间升序。
// sessionID 为空时回落到用户最近活跃的会话；归属校验失败按不存在处理。
func (s *sessionService) Messages(ctx context.Context, tenantID, profileKey, userID, sessionID string) ([]model.MessageView, error) {
	userID, err := security.SanitizeIdentifier(userID, "user_id")
	if err != nil {
		return nil, err
	}

	if sessionID == "" {
		sessionID, err = s.sessionRepo.LatestForUser(ctx, tenantID, profileKey, userID)
		if err != nil {
			return nil, fmt.Errorf("resolve latest session: %w", err)
		}
		if sessionID == "" {
			return []model.MessageView{}, nil
		}
	}

	owner, err := s.sessionRepo.Owner(ctx, tenantID, profileKey, sessionID)
	if err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, repository.ErrSessionNotFound
	}

	messages, err := s.messageRepo.ListForSession(ctx, tenantID, profileKey, sessionID, sessionMessageLimit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	views := make([]model.MessageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, model.MessageView{
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return views, nil
}

func (s *sessionService) Delete(ctx context.Context, tenantID, profileKey, sessionID string) error {
	if _, err := s.sessionRepo.Owner(ctx, tenantID, profileKey, sessionID); err != nil {
		return err
	}
	return s.sessionRepo.Delete(ctx, tenantID, profileKey, sessionID)
}

func formatActivity(sess model.ChatSession) string {
	if sess.LastActivityAt != nil {
		return sess.LastActivityAt.UTC().Format(time.RFC3339)
	}
	return sess.StartedAt.UTC().Format(time.RFC3339)
}
