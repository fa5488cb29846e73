package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/purelyricky/avashift-com-sub000/internal/model"
)

func TestGenerateCode(t *testing.T) {
	for _, n := range []int{0, 4, 6} {
		code, err := generateCode(n)
		if err != nil {
			t.Fatalf("generateCode(%d) 失败: %v", n, err)
		}
		want := n
		if want == 0 {
			want = 4
		}
		if len(code) != want {
			t.Errorf("generateCode(%d) 长度=%d，期望 %d", n, len(code), want)
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Errorf("签到码包含非法字符 %q", c)
			}
		}
	}
}

// assignAlice 把 alice 分配到场景班次
func assignAlice(t *testing.T, env *testEnv, sc *scenario) {
	t.Helper()
	if _, err := env.svc.Shift.AssignStudent(context.Background(), sc.shift.ShiftID, sc.alice.UserID, sc.admin.UserID); err != nil {
		t.Fatalf("AssignStudent 应成功: %v", err)
	}
}

func (e *testEnv) codesOf(studentID string) []model.VerificationCode {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	var list []model.VerificationCode
	for _, c := range e.store.codes {
		if c.StudentID == studentID {
			list = append(list, *c)
		}
	}
	return list
}

// ── RequestClockIn ──

func TestRequestClockIn_ReturnsSameCodeUntilUsed(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()
	assignAlice(t, env, sc)
	ctx := context.Background()

	first, err := env.svc.Verification.RequestClockIn(ctx, sc.alice.UserID, sc.shift.ShiftID)
	if err != nil {
		t.Fatalf("RequestClockIn 应成功: %v", err)
	}
	if len(first.VerificationCode) != 4 {
		t.Errorf("签到码长度应为 4，实际=%q", first.VerificationCode)
	}

	env.setNow(env.now.Add(5 * time.Minute))
	second, err := env.svc.Verification.RequestClockIn(ctx, sc.alice.UserID, sc.shift.ShiftID)
	if err != nil {
		t.Fatalf("RequestClockIn 应成功: %v", err)
	}
	if second.VerificationCode != first.VerificationCode {
		t.Errorf("有效期内应返回同一签到码: %s != %s", second.VerificationCode, first.VerificationCode)
	}
	if n := len(env.codesOf(sc.alice.UserID)); n != 1 {
		t.Errorf("不应生成新的签到码记录，实际=%d", n)
	}
}

func TestRequestClockIn_ExpiredCodeReplaced(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()
	assignAlice(t, env, sc)
	ctx := context.Background()

	if _, err := env.svc.Verification.RequestClockIn(ctx, sc.alice.UserID, sc.shift.ShiftID); err != nil {
		t.Fatalf("RequestClockIn 应成功: %v", err)
	}
	env.setNow(env.now.Add(16 * time.Minute))
	if _, err := env.svc.Verification.RequestClockIn(ctx, sc.alice.UserID, sc.shift.ShiftID); err != nil {
		t.Fatalf("RequestClockIn 应成功: %v", err)
	}

	var active, expired int
	for _, c := range env.codesOf(sc.alice.UserID) {
		switch c.Status {
		case model.CodeActive:
			active++
		case model.CodeExpired:
			expired++
		}
	}
	if active != 1 || expired != 1 {
		t.Errorf("应为 1 条 active、1 条 expired，实际 active=%d expired=%d", active, expired)
	}
}

func TestRequestClockIn_Preconditions(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()
	ctx := context.Background()

	_, err := env.svc.Verification.RequestClockIn(ctx, sc.alice.UserID, sc.shift.ShiftID)
	expectErr(t, err, ErrNotAssigned)

	_, err = env.svc.Verification.RequestClockIn(ctx, sc.alice.UserID, "missing")
	expectErr(t, err, ErrShiftNotFound)

	assignAlice(t, env, sc)
	env.store.shifts[sc.shift.ShiftID].Status = model.ShiftCompleted
	_, err = env.svc.Verification.RequestClockIn(ctx, sc.alice.UserID, sc.shift.ShiftID)
	expectErr(t, err, ErrShiftNotClockable)
}

// ── ConfirmCode ──

func TestConfirmCode_CreatesAttendance(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()
	assignAlice(t, env, sc)
	ctx := context.Background()

	issued, err := env.svc.Verification.RequestClockIn(ctx, sc.alice.UserID, sc.shift.ShiftID)
	if err != nil {
		t.Fatalf("RequestClockIn 应成功: %v", err)
	}

	// 大小写与首尾空格不影响核验
	resp, err := env.svc.Verification.ConfirmCode(ctx, " "+strings.ToLower(issued.VerificationCode)+" ", sc.guard.UserID)
	if err != nil {
		t.Fatalf("ConfirmCode 应成功: %v", err)
	}
	if resp.StudentID != sc.alice.UserID || resp.StudentName != "Alice" {
		t.Errorf("核验结果不符: %+v", resp)
	}

	rec := env.store.attendance[resp.AttendanceID]
	if rec == nil || rec.Status != model.AttendancePending || rec.ClockInTime == nil || !rec.ClockInTime.Equal(env.now) {
		t.Fatalf("应创建 pending 考勤并记录签到时间: %+v", rec)
	}
	if env.shiftRow(sc.shift.ShiftID).Status != model.ShiftInProgress {
		t.Error("首次签到后班次应进入 in_progress")
	}

	status, err := env.svc.Verification.CheckVerificationStatus(ctx, sc.alice.UserID, sc.shift.ShiftID)
	if err != nil || !status.IsVerified {
		t.Errorf("核验后 IsVerified 应为 true: %+v %v", status, err)
	}

	// 同一签到码不能重复使用
	_, err = env.svc.Verification.ConfirmCode(ctx, issued.VerificationCode, sc.guard.UserID)
	expectErr(t, err, ErrInvalidCode)
}

func TestConfirmCode_NewCodeAfterUseKeepsClockIn(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()
	assignAlice(t, env, sc)
	ctx := context.Background()
	firstAt := env.now

	issued, _ := env.svc.Verification.RequestClockIn(ctx, sc.alice.UserID, sc.shift.ShiftID)
	if _, err := env.svc.Verification.ConfirmCode(ctx, issued.VerificationCode, sc.guard.UserID); err != nil {
		t.Fatalf("ConfirmCode 应成功: %v", err)
	}

	// 已核验的码不再复用，重新申请得到新记录
	env.setNow(firstAt.Add(30 * time.Minute))
	again, err := env.svc.Verification.RequestClockIn(ctx, sc.alice.UserID, sc.shift.ShiftID)
	if err != nil {
		t.Fatalf("RequestClockIn 应成功: %v", err)
	}
	if n := len(env.codesOf(sc.alice.UserID)); n != 2 {
		t.Fatalf("应生成第二条签到码记录，实际=%d", n)
	}
	resp, err := env.svc.Verification.ConfirmCode(ctx, again.VerificationCode, sc.guard.UserID)
	if err != nil {
		t.Fatalf("第二次 ConfirmCode 应成功: %v", err)
	}
	rec := env.store.attendance[resp.AttendanceID]
	if !rec.ClockInTime.Equal(firstAt) {
		t.Errorf("应保留首次签到时间 %v，实际=%v", firstAt, rec.ClockInTime)
	}
}

func TestConfirmCode_AmbiguousCode(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()
	ctx := context.Background()
	for _, u := range []string{sc.alice.UserID, sc.bob.UserID} {
		if _, err := env.svc.Shift.AssignStudent(ctx, sc.shift.ShiftID, u, sc.admin.UserID); err != nil {
			t.Fatalf("AssignStudent 应成功: %v", err)
		}
		if _, err := env.svc.Verification.RequestClockIn(ctx, u, sc.shift.ShiftID); err != nil {
			t.Fatalf("RequestClockIn 应成功: %v", err)
		}
	}
	for _, c := range env.store.codes {
		c.Code = "AB12"
	}

	_, err := env.svc.Verification.ConfirmCode(ctx, "AB12", sc.guard.UserID)
	expectErr(t, err, ErrAmbiguousCode)
	if len(env.store.attendance) != 0 {
		t.Error("歧义签到码不应写入考勤")
	}
}

func TestConfirmCode_GuardScopeAndExpiry(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()
	assignAlice(t, env, sc)
	ctx := context.Background()
	issued, _ := env.svc.Verification.RequestClockIn(ctx, sc.alice.UserID, sc.shift.ShiftID)

	otherGuard := env.addUser(model.RoleGuard, "其他安保", "guard2@ava.test")
	_, err := env.svc.Verification.ConfirmCode(ctx, issued.VerificationCode, otherGuard.UserID)
	expectErr(t, err, ErrInvalidCode)

	env.setNow(env.now.Add(15 * time.Minute))
	_, err = env.svc.Verification.ConfirmCode(ctx, issued.VerificationCode, sc.guard.UserID)
	expectErr(t, err, ErrInvalidCode)
}

// ── 其他 ──

func TestGetCodeQR(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()
	assignAlice(t, env, sc)
	ctx := context.Background()

	_, err := env.svc.Verification.GetCodeQR(ctx, sc.alice.UserID, sc.shift.ShiftID)
	expectErr(t, err, ErrNoActiveCode)

	if _, err := env.svc.Verification.RequestClockIn(ctx, sc.alice.UserID, sc.shift.ShiftID); err != nil {
		t.Fatalf("RequestClockIn 应成功: %v", err)
	}
	png, err := env.svc.Verification.GetCodeQR(ctx, sc.alice.UserID, sc.shift.ShiftID)
	if err != nil {
		t.Fatalf("GetCodeQR 应成功: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("应返回 PNG 图片")
	}
}

func TestListPendingCodes(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()
	assignAlice(t, env, sc)
	ctx := context.Background()
	issued, _ := env.svc.Verification.RequestClockIn(ctx, sc.alice.UserID, sc.shift.ShiftID)

	list, err := env.svc.Verification.ListPendingCodes(ctx, sc.shift.ShiftID, sc.guard.UserID)
	if err != nil {
		t.Fatalf("ListPendingCodes 应成功: %v", err)
	}
	if len(list) != 1 || list[0].Code != issued.VerificationCode || list[0].StudentName != "Alice" {
		t.Errorf("待核验列表不符: %+v", list)
	}

	_, err = env.svc.Verification.ListPendingCodes(ctx, sc.shift.ShiftID, sc.leader.UserID)
	expectErr(t, err, ErrNotShiftGuard)
}

func TestExpireStaleCodes(t *testing.T) {
	env := newTestEnv(t)
	sc := env.seedScenario()
	assignAlice(t, env, sc)
	ctx := context.Background()
	if _, err := env.svc.Verification.RequestClockIn(ctx, sc.alice.UserID, sc.shift.ShiftID); err != nil {
		t.Fatalf("RequestClockIn 应成功: %v", err)
	}

	n, err := env.svc.Verification.ExpireStaleCodes(ctx, env.now.Add(10*time.Minute))
	if err != nil || n != 0 {
		t.Fatalf("有效期内不应过期: n=%d err=%v", n, err)
	}
	n, err = env.svc.Verification.ExpireStaleCodes(ctx, env.now.Add(20*time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("应过期 1 条: n=%d err=%v", n, err)
	}
	status, _ := env.svc.Verification.CheckVerificationStatus(ctx, sc.alice.UserID, sc.shift.ShiftID)
	if status.IsVerified {
		t.Error("过期码不应视为已核验")
	}
}
