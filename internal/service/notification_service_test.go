package service

import (
	"context"
	"testing"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/model"
)

func TestNotifications(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()
	ctx := context.Background()

	// 分配与取消申请审批各产生一条学生通知
	assignAlice(t, env, sc)
	id := submitCancellation(t, env, sc)
	if _, err := env.svc.Review.RejectRequest(ctx, id, sc.admin.UserID, "人手不足"); err != nil {
		t.Fatalf("RejectRequest 应成功: %v", err)
	}

	page, err := env.svc.Notification.ListMine(ctx, sc.alice.UserID, &dto.NotificationListRequest{})
	if err != nil {
		t.Fatalf("ListMine 应成功: %v", err)
	}
	if page.Total != 2 || page.UnreadCount != 2 || page.Page != 1 || page.PageSize != 20 {
		t.Fatalf("分页结果不符: total=%d unread=%d", page.Total, page.UnreadCount)
	}
	if page.List[0].Type != model.NotificationRequestReviewed {
		t.Errorf("最新通知应为审批结果，实际=%s", page.List[0].Type)
	}

	// 其他人不能标记
	err = env.svc.Notification.MarkRead(ctx, page.List[0].ID, sc.bob.UserID)
	expectErr(t, err, ErrNotificationNotFound)

	if err := env.svc.Notification.MarkRead(ctx, page.List[0].ID, sc.alice.UserID); err != nil {
		t.Fatalf("MarkRead 应成功: %v", err)
	}
	unread, _ := env.svc.Notification.ListMine(ctx, sc.alice.UserID, &dto.NotificationListRequest{UnreadOnly: true})
	if unread.Total != 1 || unread.UnreadCount != 1 {
		t.Errorf("应剩 1 条未读，实际 total=%d unread=%d", unread.Total, unread.UnreadCount)
	}

	n, err := env.svc.Notification.MarkAllRead(ctx, sc.alice.UserID)
	if err != nil || n != 1 {
		t.Errorf("MarkAllRead 应标记 1 条: n=%d err=%v", n, err)
	}
}

// submitCancellation alice 已被分配时直接提交取消申请
func submitCancellation(t *testing.T, env *testEnv, sc *scenario) string {
	t.Helper()
	resp, err := env.svc.Request.CreateShiftCancellationRequest(context.Background(), sc.alice.UserID, &dto.CreateCancellationRequest{
		ShiftID: sc.shift.ShiftID,
		Reason:  "生病",
	})
	if err != nil {
		t.Fatalf("CreateShiftCancellationRequest 应成功: %v", err)
	}
	return resp.RequestID
}
