package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/purelyricky/avashift-com-sub000/config"
	"github.com/purelyricky/avashift-com-sub000/internal/model"
	"github.com/purelyricky/avashift-com-sub000/pkg/jwt"
)

// ── 测试环境 ──

type testEnv struct {
	cfg   *config.Config
	store *mockStore
	pub   *recordingPublisher
	svc   *Service
	now   time.Time
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret-key-for-unit-tests",
			AccessTokenTTL: 15 * time.Minute,
		},
		Mail:         config.MailConfig{Provider: "log", FrontendURL: "https://ava.test"},
		Shift:        config.ShiftConfig{Timezone: "UTC", MaxOccurrences: 366},
		Verification: config.VerificationConfig{CodeTTL: 15 * time.Minute, CodeLength: 4},
		Scoring:      config.ScoringConfig{PenaltyRating: 0.3, PenaltyPunctuality: 2, HistoryWeight: 0.7},
	}
}

// newTestEnv 组装全部 Service，Redis 为 nil，时间固定在 2025-03-10 10:00 UTC
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	store := newMockStore()
	pub := &recordingPublisher{}
	svc := NewService(cfg, store.repository(), jwt.NewManager(&cfg.Auth), nil, pub, zap.NewNop())

	env := &testEnv{cfg: cfg, store: store, pub: pub, svc: svc}
	env.setNow(time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC))
	return env
}

// setNow 固定各 Service 的当前时间
func (e *testEnv) setNow(t time.Time) {
	e.now = t
	clock := func() time.Time { return e.now }
	e.svc.Shift.(*shiftService).now = clock
	e.svc.Verification.(*verificationService).now = clock
	e.svc.Attendance.(*attendanceService).now = clock
	e.svc.Request.(*requestService).now = clock
}

func (e *testEnv) addUser(role, name, email string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	u := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	if role == model.RoleStudent {
		u.Student = &model.Student{
			PunctualityScore:   100,
			Rating:             5,
			AvailabilityStatus: model.AvailabilityActive,
			Version:            1,
		}
	}
	if err := (&mockUserRepo{e.store}).Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

func (e *testEnv) addProject(ownerID string) *model.Project {
	p := &model.Project{Name: "校园安保", Status: model.ProjectActive, OwnerID: ownerID}
	if err := (&mockProjectRepo{e.store}).Create(context.Background(), p); err != nil {
		panic(err)
	}
	return p
}

func (e *testEnv) addMember(projectID string, u *model.User) *model.ProjectMember {
	m := &model.ProjectMember{ProjectID: projectID, UserID: u.UserID, MemberRole: u.Role, Status: model.MemberActive}
	if err := (&mockMemberRepo{e.store}).Create(context.Background(), m); err != nil {
		panic(err)
	}
	return m
}

// addShift 创建一个 published 班次，start 为开始时间，持续 hours 小时
func (e *testEnv) addShift(projectID string, start time.Time, hours, required int, leader, guard *model.User) *model.Shift {
	sh := &model.Shift{
		ProjectID:        projectID,
		StartTime:        start,
		StopTime:         start.Add(time.Duration(hours) * time.Hour),
		DayOfWeek:        dayOfWeek(start),
		TimeType:         timeTypeOf(start, ""),
		RequiredStudents: required,
		ShiftType:        model.ShiftTypeNormal,
		Status:           model.ShiftPublished,
	}
	if leader != nil {
		sh.LeaderID = &leader.UserID
	}
	if guard != nil {
		sh.GuardID = &guard.UserID
	}
	if err := (&mockShiftRepo{e.store}).Create(context.Background(), sh); err != nil {
		panic(err)
	}
	return sh
}

// scenario 一个项目、一名管理员、一名组长、一名安保、两名学生和一个班次
type scenario struct {
	admin, leader, guard, alice, bob *model.User
	project                          *model.Project
	shift                            *model.Shift
}

func (e *testEnv) seedScenario() *scenario {
	sc := &scenario{
		admin:  e.addUser(model.RoleAdmin, "管理员", "admin@ava.test"),
		leader: e.addUser(model.RoleLeader, "组长", "leader@ava.test"),
		guard:  e.addUser(model.RoleGuard, "安保", "guard@ava.test"),
		alice:  e.addUser(model.RoleStudent, "Alice", "alice@ava.test"),
		bob:    e.addUser(model.RoleStudent, "Bob", "bob@ava.test"),
	}
	sc.project = e.addProject(sc.admin.UserID)
	for _, u := range []*model.User{sc.leader, sc.guard, sc.alice, sc.bob} {
		e.addMember(sc.project.ProjectID, u)
	}
	sc.shift = e.addShift(sc.project.ProjectID, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), 8, 2, sc.leader, sc.guard)
	return sc
}

// student 读取学生当前分数档案
func (e *testEnv) student(userID string) *model.Student {
	st, err := (&mockStudentRepo{e.store}).GetByUserID(context.Background(), userID)
	if err != nil {
		panic(err)
	}
	return st
}

func (e *testEnv) shiftRow(id string) *model.Shift {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	cp := *e.store.shifts[id]
	return &cp
}

func (e *testEnv) assignmentsOf(shiftID string) []model.ShiftAssignment {
	list, _ := (&mockAssignmentRepo{e.store}).ListByShift(context.Background(), shiftID)
	return list
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("期望错误 %v，实际: %v", want, err)
	}
}
