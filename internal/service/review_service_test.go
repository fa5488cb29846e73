package service

import (
	"context"
	"testing"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/model"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		total, reviewed int64
		want            int
	}{
		{0, 0, 0},
		{3, 1, 33},
		{3, 2, 67},
		{8, 8, 100},
		{200, 1, 1},
	}
	for _, tt := range tests {
		if got := progress(tt.total, tt.reviewed); got != tt.want {
			t.Errorf("progress(%d, %d) = %d, want %d", tt.total, tt.reviewed, got, tt.want)
		}
	}
}

// seedRequests 提交三条申请：alice 取消、安保取消、alice 可用状态
func seedRequests(t *testing.T, env *testEnv, sc *scenario) (aliceCancel, guardCancel, availability string) {
	t.Helper()
	ctx := context.Background()
	aliceCancel = assignAndCancel(t, env, sc, sc.bob.Email)

	resp, err := env.svc.Request.CreateShiftCancellationRequest(ctx, sc.guard.UserID, &dto.CreateCancellationRequest{
		ShiftID: sc.shift.ShiftID,
		Reason:  "请假",
	})
	if err != nil {
		t.Fatalf("安保提交取消申请失败: %v", err)
	}
	guardCancel = resp.RequestID

	resp, err = env.svc.Request.CreateAvailabilityChangeRequest(ctx, sc.alice.UserID, &dto.AvailabilityChangeRequest{
		Status: model.AvailabilityInactive,
	})
	if err != nil {
		t.Fatalf("提交可用状态申请失败: %v", err)
	}
	availability = resp.RequestID
	return
}

func TestGetAdminRequestStats_NoRequests(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()

	stats, err := env.svc.Review.GetAdminRequestStats(context.Background(), sc.admin.UserID, &dto.RequestStatsRequest{})
	if err != nil {
		t.Fatalf("GetAdminRequestStats 应成功: %v", err)
	}
	if stats.TotalRequests != 0 || stats.ReviewedRequests != 0 || stats.ProgressPercentage != 0 {
		t.Errorf("无申请时应全部为 0，实际=%+v", stats)
	}
}

func TestGetAdminRequestStats_Progress(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()
	ctx := context.Background()
	_, guardCancel, _ := seedRequests(t, env, sc)

	if _, err := env.svc.Review.RejectRequest(ctx, guardCancel, sc.admin.UserID, ""); err != nil {
		t.Fatalf("驳回失败: %v", err)
	}

	stats, err := env.svc.Review.GetAdminRequestStats(ctx, sc.admin.UserID, &dto.RequestStatsRequest{ProjectID: sc.project.ProjectID})
	if err != nil {
		t.Fatalf("GetAdminRequestStats 应成功: %v", err)
	}
	if stats.TotalRequests != 3 || stats.ReviewedRequests != 1 {
		t.Errorf("期望 3/1，实际 %d/%d", stats.TotalRequests, stats.ReviewedRequests)
	}
	if stats.ProgressPercentage != 33 {
		t.Errorf("进度应为 33，实际=%d", stats.ProgressPercentage)
	}
}

func TestGetAdminRequestStats_OtherAdminSeesNothing(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()
	ctx := context.Background()
	seedRequests(t, env, sc)
	other := env.addUser(model.RoleAdmin, "另一管理员", "other@ava.test")

	stats, err := env.svc.Review.GetAdminRequestStats(ctx, other.UserID, &dto.RequestStatsRequest{})
	if err != nil {
		t.Fatalf("GetAdminRequestStats 应成功: %v", err)
	}
	if stats.TotalRequests != 0 {
		t.Errorf("其他管理员不应看到申请，实际=%d", stats.TotalRequests)
	}

	_, err = env.svc.Review.GetAdminRequestStats(ctx, other.UserID, &dto.RequestStatsRequest{ProjectID: sc.project.ProjectID})
	expectErr(t, err, ErrNotProjectOwner)
}

func TestGetAdminRequestStats_InvalidDate(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()

	_, err := env.svc.Review.GetAdminRequestStats(context.Background(), sc.admin.UserID, &dto.RequestStatsRequest{From: "2025/03/01"})
	expectErr(t, err, ErrInvalidDate)
}

func TestGetAdminRequests_Filters(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()
	ctx := context.Background()
	_, guardCancel, _ := seedRequests(t, env, sc)
	if _, err := env.svc.Review.RejectRequest(ctx, guardCancel, sc.admin.UserID, "不批"); err != nil {
		t.Fatalf("驳回失败: %v", err)
	}

	// 默认只看 pending
	pending, err := env.svc.Review.GetAdminRequests(ctx, sc.admin.UserID, &dto.AdminRequestListRequest{})
	if err != nil {
		t.Fatalf("GetAdminRequests 应成功: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("默认应返回 2 条 pending 申请，实际=%d", len(pending))
	}
	for _, r := range pending {
		if r.Requester == nil || r.Requester.ID != sc.alice.UserID {
			t.Errorf("pending 申请的申请人应为 alice")
		}
	}

	all, err := env.svc.Review.GetAdminRequests(ctx, sc.admin.UserID, &dto.AdminRequestListRequest{Status: "all"})
	if err != nil {
		t.Fatalf("GetAdminRequests 应成功: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("status=all 应返回 3 条，实际=%d", len(all))
	}

	rejected, _ := env.svc.Review.GetAdminRequests(ctx, sc.admin.UserID, &dto.AdminRequestListRequest{Status: model.RequestRejected})
	if len(rejected) != 1 || rejected[0].ReviewNote != "不批" {
		t.Errorf("rejected 过滤结果不符: %+v", rejected)
	}

	// 按申请人姓名搜索，不区分大小写
	found, _ := env.svc.Review.GetAdminRequests(ctx, sc.admin.UserID, &dto.AdminRequestListRequest{Status: "all", Search: "ALI"})
	if len(found) != 2 {
		t.Errorf("搜索 ALI 应命中 2 条，实际=%d", len(found))
	}
	none, _ := env.svc.Review.GetAdminRequests(ctx, sc.admin.UserID, &dto.AdminRequestListRequest{Status: "all", Search: "zzz"})
	if len(none) != 0 {
		t.Errorf("搜索 zzz 应为空，实际=%d", len(none))
	}
}

func TestApproveRequest_UnknownType(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()
	id := assignAndCancel(t, env, sc, "")
	env.store.requests[id].RequestType = "swap"

	_, err := env.svc.Review.ApproveRequest(context.Background(), id, &dto.ApproveRequestInput{}, sc.admin.UserID)
	expectErr(t, err, ErrWrongRequestType)
}

func TestApproveRequest_NotFound(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()

	_, err := env.svc.Review.ApproveRequest(context.Background(), "missing", &dto.ApproveRequestInput{}, sc.admin.UserID)
	expectErr(t, err, ErrRequestNotFound)
}
