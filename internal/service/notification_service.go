package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/model"
	"github.com/purelyricky/avashift-com-sub000/internal/notify"
	"github.com/purelyricky/avashift-com-sub000/internal/repository"
	pkgerrors "github.com/purelyricky/avashift-com-sub000/pkg/errors"
)

// ── 通知模块业务错误 ──

var ErrNotificationNotFound = pkgerrors.New(pkgerrors.KindNotFound, 80001, "通知不存在")

// NotificationService 站内通知业务接口（前端每 60 秒轮询）
type NotificationService interface {
	ListMine(ctx context.Context, userID string, req *dto.NotificationListRequest) (*dto.NotificationPage, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func (s *notificationService) ListMine(ctx context.Context, userID string, req *dto.NotificationListRequest) (*dto.NotificationPage, error) {
	list, total, err := s.repo.Notification.ListByUser(ctx, userID, req.UnreadOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	unread, err := s.repo.Notification.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("统计未读通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	items := make([]dto.NotificationResponse, 0, len(list))
	for _, n := range list {
		items = append(items, dto.NotificationResponse{
			ID:          n.NotificationID,
			Type:        n.Type,
			Title:       n.Title,
			Content:     n.Content,
			IsRead:      n.IsRead,
			RelatedType: n.RelatedType,
			RelatedID:   n.RelatedID,
			CreatedAt:   formatTime(n.CreatedAt),
		})
	}

	return &dto.NotificationPage{
		List:        items,
		Total:       total,
		UnreadCount: unread,
		Page:        req.GetPage(),
		PageSize:    req.GetPageSize(),
	}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.Notification.MarkRead(ctx, id, userID); err != nil {
		if isNotFound(err) {
			return ErrNotificationNotFound
		}
		s.logger.Error("标记通知已读失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.Notification.MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error("全部标记已读失败", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	return n, nil
}

// ════════════════════════════════════════════════════════════
// notifier 状态变更提交后的站内通知 + 邮件，失败只记日志
// ════════════════════════════════════════════════════════════

type notifier struct {
	repo        *repository.Repository
	publisher   notify.Publisher
	frontendURL string
	logger      *zap.Logger
}

func newNotifier(repo *repository.Repository, publisher notify.Publisher, frontendURL string, logger *zap.Logger) *notifier {
	return &notifier{repo: repo, publisher: publisher, frontendURL: frontendURL, logger: logger}
}

// inApp 写入一条站内通知；调用方请求被取消时仍然写入
func (n *notifier) inApp(ctx context.Context, userID, typ, title, content, relatedType, relatedID string) {
	if n == nil || userID == "" {
		return
	}
	row := &model.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Content: content,
	}
	if relatedType != "" {
		row.RelatedType = &relatedType
	}
	if relatedID != "" {
		row.RelatedID = &relatedID
	}
	if err := n.repo.Notification.Create(context.WithoutCancel(ctx), row); err != nil {
		n.logger.Warn("写入站内通知失败",
			zap.String("user_id", userID),
			zap.String("type", typ),
			zap.Error(err),
		)
	}
}

// email 投递邮件；Link 字段缺省指向前端首页
func (n *notifier) email(to *dto.UserResponse, template string, fields map[string]string) {
	if n == nil || n.publisher == nil || to == nil {
		return
	}
	if fields == nil {
		fields = make(map[string]string)
	}
	if _, ok := fields["Link"]; !ok {
		fields["Link"] = n.frontendURL
	}
	if !n.publisher.Dispatch(notify.Message{
		RecipientName:  to.Name,
		RecipientEmail: to.Email,
		Template:       template,
		Fields:         fields,
	}) {
		n.logger.Warn("邮件通知未入队", zap.String("to", to.Email), zap.String("template", template))
	}
}
