package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/purelyricky/avashift-com-sub000/internal/model"
	"github.com/purelyricky/avashift-com-sub000/internal/notify"
	"github.com/purelyricky/avashift-com-sub000/internal/repository"
	pkgerrors "github.com/purelyricky/avashift-com-sub000/pkg/errors"
)

// ── 内存数据源 ──
// 所有 mock repository 共享一个 mockStore，读操作返回副本，与数据库行为一致

type mockStore struct {
	mu  sync.Mutex
	seq int

	users         map[string]*model.User
	students      map[string]*model.Student
	projects      map[string]*model.Project
	members       map[string]*model.ProjectMember
	shifts        map[string]*model.Shift
	assignments   map[string]*model.ShiftAssignment
	codes         map[string]*model.VerificationCode
	attendance    map[string]*model.AttendanceRecord
	requests      map[string]*model.AdminRequest
	ratings       map[string]*model.RatingSubmission
	notifications map[string]*model.Notification
}

func newMockStore() *mockStore {
	return &mockStore{
		users:         make(map[string]*model.User),
		students:      make(map[string]*model.Student),
		projects:      make(map[string]*model.Project),
		members:       make(map[string]*model.ProjectMember),
		shifts:        make(map[string]*model.Shift),
		assignments:   make(map[string]*model.ShiftAssignment),
		codes:         make(map[string]*model.VerificationCode),
		attendance:    make(map[string]*model.AttendanceRecord),
		requests:      make(map[string]*model.AdminRequest),
		ratings:       make(map[string]*model.RatingSubmission),
		notifications: make(map[string]*model.Notification),
	}
}

func (s *mockStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// repository 组装内存版 Repository 聚合
// 事务执行器直接以同一聚合调用回调，不模拟回滚
func (s *mockStore) repository() *repository.Repository {
	repo := &repository.Repository{
		User:             &mockUserRepo{s},
		Student:          &mockStudentRepo{s},
		Project:          &mockProjectRepo{s},
		ProjectMember:    &mockMemberRepo{s},
		Shift:            &mockShiftRepo{s},
		Assignment:       &mockAssignmentRepo{s},
		VerificationCode: &mockCodeRepo{s},
		Attendance:       &mockAttendanceRepo{s},
		AdminRequest:     &mockRequestRepo{s},
		Rating:           &mockRatingRepo{s},
		Notification:     &mockNotificationRepo{s},
	}
	return repo.WithTransactor(func(_ context.Context, fn func(tx *repository.Repository) error) error {
		return fn(repo)
	})
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// ── Mock UserRepository ──

type mockUserRepo struct{ *mockStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = m.nextID("user")
	}
	cp := *user
	cp.Student = nil
	m.users[user.UserID] = &cp
	if user.Student != nil {
		st := *user.Student
		st.UserID = user.UserID
		m.students[user.UserID] = &st
	}
	return nil
}

func (m *mockUserRepo) withStudent(u *model.User) *model.User {
	cp := *u
	if st, ok := m.students[u.UserID]; ok {
		s := *st
		cp.Student = &s
	}
	return &cp
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return m.withStudent(u), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return m.withStudent(u), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *m.withStudent(u))
		}
	}
	return result, nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role string) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.User
	for _, u := range m.users {
		if u.Role == role && u.IsActive {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct{ *mockStore }

func (m *mockStudentRepo) Create(_ context.Context, student *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[student.UserID]; ok {
		return gorm.ErrDuplicatedKey
	}
	cp := *student
	if cp.Version == 0 {
		cp.Version = 1
	}
	m.students[student.UserID] = &cp
	return nil
}

func (m *mockStudentRepo) GetByUserID(_ context.Context, userID string) (*model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.students[userID]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByUserIDForUpdate(ctx context.Context, userID string) (*model.Student, error) {
	return m.GetByUserID(ctx, userID)
}

func (m *mockStudentRepo) UpdateScores(_ context.Context, student *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.students[student.UserID]
	if !ok || st.Version != student.Version {
		return pkgerrors.ErrOptimisticLock
	}
	student.Version++
	cp := *student
	m.students[student.UserID] = &cp
	return nil
}

// ── Mock ProjectRepository ──

type mockProjectRepo struct{ *mockStore }

func (m *mockProjectRepo) Create(_ context.Context, project *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if project.ProjectID == "" {
		project.ProjectID = m.nextID("project")
	}
	cp := *project
	m.projects[project.ProjectID] = &cp
	return nil
}

func (m *mockProjectRepo) GetByID(_ context.Context, id string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProjectRepo) list(match func(p *model.Project) bool) []model.Project {
	var result []model.Project
	for _, p := range m.projects {
		if match(p) {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ProjectID < result[j].ProjectID })
	return result
}

func (m *mockProjectRepo) ListByOwner(_ context.Context, ownerID string) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(p *model.Project) bool { return p.OwnerID == ownerID }), nil
}

func (m *mockProjectRepo) ListByClient(_ context.Context, clientID string) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(p *model.Project) bool { return p.ClientID != nil && *p.ClientID == clientID }), nil
}

func (m *mockProjectRepo) ListByMember(_ context.Context, userID string) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	joined := make(map[string]bool)
	for _, mem := range m.members {
		if mem.UserID == userID && mem.Status == model.MemberActive {
			joined[mem.ProjectID] = true
		}
	}
	return m.list(func(p *model.Project) bool { return joined[p.ProjectID] }), nil
}

// ── Mock ProjectMemberRepository ──

type mockMemberRepo struct{ *mockStore }

func (m *mockMemberRepo) Create(_ context.Context, member *model.ProjectMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.members {
		if mem.ProjectID == member.ProjectID && mem.UserID == member.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	if member.MembershipID == "" {
		member.MembershipID = m.nextID("member")
	}
	if member.Status == "" {
		member.Status = model.MemberActive
	}
	cp := *member
	cp.User = nil
	m.members[member.MembershipID] = &cp
	return nil
}

func (m *mockMemberRepo) find(projectID, userID string, activeOnly bool) (*model.ProjectMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.members {
		if mem.ProjectID == projectID && mem.UserID == userID {
			if activeOnly && mem.Status != model.MemberActive {
				break
			}
			cp := *mem
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMemberRepo) GetByProjectAndUser(_ context.Context, projectID, userID string) (*model.ProjectMember, error) {
	return m.find(projectID, userID, false)
}

func (m *mockMemberRepo) GetActive(_ context.Context, projectID, userID string) (*model.ProjectMember, error) {
	return m.find(projectID, userID, true)
}

func (m *mockMemberRepo) ListByProject(_ context.Context, projectID string) ([]model.ProjectMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ProjectMember
	for _, mem := range m.members {
		if mem.ProjectID != projectID {
			continue
		}
		cp := *mem
		if u, ok := m.users[mem.UserID]; ok {
			uc := *u
			cp.User = &uc
		}
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MembershipID < result[j].MembershipID })
	return result, nil
}

func (m *mockMemberRepo) UpdateStatus(_ context.Context, membershipID, status, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[membershipID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	mem.Status = status
	return nil
}

// ── Mock ShiftRepository ──

type mockShiftRepo struct{ *mockStore }

func (m *mockShiftRepo) insert(shift *model.Shift) {
	if shift.ShiftID == "" {
		shift.ShiftID = m.nextID("shift")
	}
	if shift.Version == 0 {
		shift.Version = 1
	}
	cp := *shift
	cp.Project = nil
	m.shifts[shift.ShiftID] = &cp
}

func (m *mockShiftRepo) Create(_ context.Context, shift *model.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(shift)
	return nil
}

func (m *mockShiftRepo) BatchCreate(_ context.Context, shifts []model.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range shifts {
		m.insert(&shifts[i])
	}
	return nil
}

func (m *mockShiftRepo) load(id string, withProject bool) (*model.Shift, error) {
	sh, ok := m.shifts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sh
	if withProject {
		if p, ok := m.projects[sh.ProjectID]; ok {
			pc := *p
			cp.Project = &pc
		}
	}
	return &cp, nil
}

func (m *mockShiftRepo) GetByID(_ context.Context, id string) (*model.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id, true)
}

func (m *mockShiftRepo) GetByIDForUpdate(_ context.Context, id string) (*model.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id, false)
}

func (m *mockShiftRepo) sorted(match func(sh *model.Shift) bool, withProject bool) []model.Shift {
	var result []model.Shift
	for id, sh := range m.shifts {
		if match(sh) {
			cp, _ := m.load(id, withProject)
			result = append(result, *cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result
}

func (m *mockShiftRepo) ListByProject(_ context.Context, projectID string, from, to *time.Time) ([]model.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(sh *model.Shift) bool {
		if sh.ProjectID != projectID {
			return false
		}
		if from != nil && sh.StartTime.Before(*from) {
			return false
		}
		if to != nil && !sh.StartTime.Before(*to) {
			return false
		}
		return true
	}, false), nil
}

func (m *mockShiftRepo) ListByIDs(_ context.Context, ids []string) ([]model.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(sh *model.Shift) bool { return contains(ids, sh.ShiftID) }, true), nil
}

func (m *mockShiftRepo) ListIDsByProjects(_ context.Context, projectIDs []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, sh := range m.sorted(func(sh *model.Shift) bool { return contains(projectIDs, sh.ProjectID) }, false) {
		ids = append(ids, sh.ShiftID)
	}
	return ids, nil
}

func (m *mockShiftRepo) ListActiveIDsByGuard(_ context.Context, guardID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, sh := range m.shifts {
		if sh.IsGuard(guardID) && (sh.Status == model.ShiftPublished || sh.Status == model.ShiftInProgress) {
			ids = append(ids, sh.ShiftID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockShiftRepo) ListEndedBefore(_ context.Context, t time.Time) ([]model.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(sh *model.Shift) bool {
		return sh.StopTime.Before(t) && (sh.Status == model.ShiftPublished || sh.Status == model.ShiftInProgress)
	}, false), nil
}

func (m *mockShiftRepo) UpdateStatus(_ context.Context, id string, from []string, to string, _ *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sh, ok := m.shifts[id]
	if !ok || !contains(from, sh.Status) {
		return pkgerrors.ErrStateConflict
	}
	sh.Status = to
	sh.Version++
	return nil
}

func (m *mockShiftRepo) IncrementAssigned(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sh, ok := m.shifts[id]
	if !ok || sh.AssignedCount >= sh.RequiredStudents {
		return pkgerrors.ErrStateConflict
	}
	sh.AssignedCount++
	return nil
}

func (m *mockShiftRepo) DecrementAssigned(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sh, ok := m.shifts[id]; ok && sh.AssignedCount > 0 {
		sh.AssignedCount--
	}
	return nil
}

func (m *mockShiftRepo) UpdateStaff(_ context.Context, id string, leaderID, guardID *string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sh, ok := m.shifts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sh.LeaderID = leaderID
	sh.GuardID = guardID
	return nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct{ *mockStore }

func (m *mockAssignmentRepo) Create(_ context.Context, a *model.ShiftAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.assignments {
		if x.ShiftID == a.ShiftID && x.StudentID == a.StudentID && x.Status != model.AssignmentCancelled {
			return gorm.ErrDuplicatedKey
		}
	}
	if a.AssignmentID == "" {
		a.AssignmentID = m.nextID("assignment")
	}
	cp := *a
	cp.Shift = nil
	m.assignments[a.AssignmentID] = &cp
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.ShiftAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.assignments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) GetActive(_ context.Context, shiftID, studentID string) (*model.ShiftAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assignments {
		if a.ShiftID == shiftID && a.StudentID == studentID && contains(model.ActiveAssignmentStatuses, a.Status) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) list(match func(a *model.ShiftAssignment) bool) []model.ShiftAssignment {
	var result []model.ShiftAssignment
	for _, a := range m.assignments {
		if match(a) {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AssignmentID < result[j].AssignmentID })
	return result
}

func (m *mockAssignmentRepo) ListByShift(_ context.Context, shiftID string) ([]model.ShiftAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(a *model.ShiftAssignment) bool { return a.ShiftID == shiftID }), nil
}

func (m *mockAssignmentRepo) ListByShiftIDs(_ context.Context, shiftIDs []string) ([]model.ShiftAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(a *model.ShiftAssignment) bool { return contains(shiftIDs, a.ShiftID) }), nil
}

func (m *mockAssignmentRepo) ListActiveByStudent(_ context.Context, studentID string) ([]model.ShiftAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := m.list(func(a *model.ShiftAssignment) bool {
		return a.StudentID == studentID && contains(model.ActiveAssignmentStatuses, a.Status)
	})
	for i := range result {
		if sh, ok := m.shifts[result[i].ShiftID]; ok {
			cp := *sh
			if p, ok := m.projects[sh.ProjectID]; ok {
				pc := *p
				cp.Project = &pc
			}
			result[i].Shift = &cp
		}
	}
	return result, nil
}

func (m *mockAssignmentRepo) UpdateStatus(_ context.Context, id string, from []string, to string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok || !contains(from, a.Status) {
		return pkgerrors.ErrStateConflict
	}
	a.Status = to
	if to == model.AssignmentCancelled {
		now := time.Now()
		a.CancelledAt = &now
	}
	return nil
}

// ── Mock VerificationCodeRepository ──

type mockCodeRepo struct{ *mockStore }

func (m *mockCodeRepo) Create(_ context.Context, code *model.VerificationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.StudentID == code.StudentID && c.ShiftID == code.ShiftID && c.Status == model.CodeActive {
			return gorm.ErrDuplicatedKey
		}
	}
	if code.CodeID == "" {
		code.CodeID = m.nextID("code")
	}
	if code.Status == "" {
		code.Status = model.CodeActive
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	cp := *code
	m.codes[code.CodeID] = &cp
	return nil
}

func (m *mockCodeRepo) latest(match func(c *model.VerificationCode) bool) (*model.VerificationCode, error) {
	var found *model.VerificationCode
	for _, c := range m.codes {
		if match(c) && (found == nil || c.CreatedAt.After(found.CreatedAt)) {
			found = c
		}
	}
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *found
	return &cp, nil
}

func (m *mockCodeRepo) GetActiveUnread(_ context.Context, studentID, shiftID string) (*model.VerificationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest(func(c *model.VerificationCode) bool {
		return c.StudentID == studentID && c.ShiftID == shiftID && c.Status == model.CodeActive && !c.IsRead
	})
}

func (m *mockCodeRepo) GetLatest(_ context.Context, studentID, shiftID string) (*model.VerificationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest(func(c *model.VerificationCode) bool {
		return c.StudentID == studentID && c.ShiftID == shiftID && (c.Status == model.CodeActive || c.Status == model.CodeUsed)
	})
}

func (m *mockCodeRepo) list(match func(c *model.VerificationCode) bool) []model.VerificationCode {
	var result []model.VerificationCode
	for _, c := range m.codes {
		if match(c) {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

func (m *mockCodeRepo) ListActiveByCode(_ context.Context, code string, shiftIDs []string) ([]model.VerificationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(c *model.VerificationCode) bool {
		return c.Code == code && c.Status == model.CodeActive && !c.IsRead && contains(shiftIDs, c.ShiftID)
	}), nil
}

func (m *mockCodeRepo) ListActiveByShift(_ context.Context, shiftID string) ([]model.VerificationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(c *model.VerificationCode) bool {
		return c.ShiftID == shiftID && c.Status == model.CodeActive && !c.IsRead
	}), nil
}

func (m *mockCodeRepo) MarkUsed(_ context.Context, codeID, guardID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[codeID]
	if !ok || c.Status != model.CodeActive || c.IsRead {
		return pkgerrors.ErrStateConflict
	}
	c.Status = model.CodeUsed
	c.IsRead = true
	c.VerifiedAt = &at
	c.VerifiedBy = &guardID
	return nil
}

func (m *mockCodeRepo) Expire(_ context.Context, codeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[codeID]
	if !ok || c.Status != model.CodeActive {
		return pkgerrors.ErrStateConflict
	}
	c.Status = model.CodeExpired
	return nil
}

func (m *mockCodeRepo) ExpireCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.codes {
		if c.Status == model.CodeActive && c.CreatedAt.Before(cutoff) {
			c.Status = model.CodeExpired
			n++
		}
	}
	return n, nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct{ *mockStore }

func (m *mockAttendanceRepo) Create(_ context.Context, record *model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.attendance {
		if r.ShiftID == record.ShiftID && r.StudentID == record.StudentID {
			return gorm.ErrDuplicatedKey
		}
	}
	if record.AttendanceID == "" {
		record.AttendanceID = m.nextID("attendance")
	}
	if record.Status == "" {
		record.Status = model.AttendancePending
	}
	cp := *record
	cp.Shift = nil
	m.attendance[record.AttendanceID] = &cp
	return nil
}

func (m *mockAttendanceRepo) find(match func(r *model.AttendanceRecord) bool) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.attendance {
		if match(r) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) GetByShiftAndStudent(_ context.Context, shiftID, studentID string) (*model.AttendanceRecord, error) {
	return m.find(func(r *model.AttendanceRecord) bool { return r.ShiftID == shiftID && r.StudentID == studentID })
}

func (m *mockAttendanceRepo) GetOpen(_ context.Context, shiftID, studentID string) (*model.AttendanceRecord, error) {
	return m.find(func(r *model.AttendanceRecord) bool {
		return r.ShiftID == shiftID && r.StudentID == studentID && r.ClockInTime != nil && r.ClockOutTime == nil
	})
}

func (m *mockAttendanceRepo) RecordClockIn(_ context.Context, id string, at time.Time, guardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.attendance[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.ClockInTime = &at
	r.ClockInVerifiedBy = &guardID
	return nil
}

func (m *mockAttendanceRepo) SetClockOut(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.attendance[id]
	if !ok || r.ClockOutTime != nil {
		return pkgerrors.ErrStateConflict
	}
	r.ClockOutTime = &at
	return nil
}

func (m *mockAttendanceRepo) UpdateStatus(_ context.Context, id, status, markedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.attendance[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.Status = status
	r.MarkedByLeader = &markedBy
	return nil
}

func (m *mockAttendanceRepo) list(match func(r *model.AttendanceRecord) bool) []model.AttendanceRecord {
	var result []model.AttendanceRecord
	for _, r := range m.attendance {
		if match(r) {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AttendanceID < result[j].AttendanceID })
	return result
}

func (m *mockAttendanceRepo) ListByShift(_ context.Context, shiftID string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(r *model.AttendanceRecord) bool { return r.ShiftID == shiftID }), nil
}

func (m *mockAttendanceRepo) ListByShiftIDs(_ context.Context, shiftIDs []string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(r *model.AttendanceRecord) bool { return contains(shiftIDs, r.ShiftID) }), nil
}

func (m *mockAttendanceRepo) ListByStudent(_ context.Context, studentID string, from, to *time.Time) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceRecord
	for _, r := range m.list(func(r *model.AttendanceRecord) bool { return r.StudentID == studentID }) {
		sh, ok := m.shifts[r.ShiftID]
		if !ok {
			continue
		}
		if from != nil && sh.StartTime.Before(*from) {
			continue
		}
		if to != nil && !sh.StartTime.Before(*to) {
			continue
		}
		cp := *sh
		r.Shift = &cp
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Shift.StartTime.Before(result[j].Shift.StartTime) })
	return result, nil
}

// ── Mock AdminRequestRepository ──

type mockRequestRepo struct{ *mockStore }

func (m *mockRequestRepo) Create(_ context.Context, req *model.AdminRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.RequestID == "" {
		req.RequestID = m.nextID("request")
	}
	if req.Status == "" {
		req.Status = model.RequestPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	cp := *req
	cp.Shift = nil
	m.requests[req.RequestID] = &cp
	return nil
}

func (m *mockRequestRepo) load(id string, withShift bool) (*model.AdminRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	if withShift && r.ShiftID != nil {
		if sh, ok := m.shifts[*r.ShiftID]; ok {
			sc := *sh
			cp.Shift = &sc
		}
	}
	return &cp, nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id string) (*model.AdminRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id, true)
}

func (m *mockRequestRepo) GetByIDForUpdate(_ context.Context, id string) (*model.AdminRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id, false)
}

func (m *mockRequestRepo) HasPending(_ context.Context, requesterID string, shiftID *string, requestType string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.RequesterID != requesterID || r.RequestType != requestType || r.Status != model.RequestPending {
			continue
		}
		if shiftID == nil && r.ShiftID == nil {
			return true, nil
		}
		if shiftID != nil && r.ShiftID != nil && *shiftID == *r.ShiftID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRequestRepo) inScope(r *model.AdminRequest, f repository.ReviewFilter) bool {
	var ok bool
	if r.ShiftID != nil {
		ok = contains(f.ShiftIDs, *r.ShiftID)
	} else {
		ok = f.IncludeUnscoped && contains(f.RequesterIDs, r.RequesterID)
	}
	if !ok {
		return false
	}
	if f.From != nil && r.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !r.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}

func (m *mockRequestRepo) ListForReview(_ context.Context, f repository.ReviewFilter) ([]model.AdminRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AdminRequest
	for id, r := range m.requests {
		if !m.inScope(r, f) || (f.Status != "" && r.Status != f.Status) {
			continue
		}
		cp, _ := m.load(id, true)
		result = append(result, *cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockRequestRepo) CountForReview(_ context.Context, f repository.ReviewFilter) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total, reviewed int64
	for _, r := range m.requests {
		if !m.inScope(r, f) {
			continue
		}
		total++
		if r.Status != model.RequestPending {
			reviewed++
		}
	}
	return total, reviewed, nil
}

func (m *mockRequestRepo) ListByRequester(_ context.Context, requesterID string) ([]model.AdminRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AdminRequest
	for id, r := range m.requests {
		if r.RequesterID == requesterID {
			cp, _ := m.load(id, true)
			result = append(result, *cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockRequestRepo) Review(_ context.Context, req *model.AdminRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[req.RequestID]
	if !ok || r.Status != model.RequestPending {
		return pkgerrors.ErrStateConflict
	}
	r.Status = req.Status
	r.ReviewedBy = req.ReviewedBy
	r.ReviewedAt = req.ReviewedAt
	r.ReviewNote = req.ReviewNote
	r.ReplacementEmail = req.ReplacementEmail
	r.Penalized = req.Penalized
	return nil
}

// ── Mock RatingRepository ──

type mockRatingRepo struct{ *mockStore }

func (m *mockRatingRepo) Create(_ context.Context, sub *model.RatingSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.ratings {
		if r.ShiftID == sub.ShiftID && r.StudentID == sub.StudentID {
			return gorm.ErrDuplicatedKey
		}
	}
	if sub.SubmissionID == "" {
		sub.SubmissionID = m.nextID("rating")
	}
	cp := *sub
	m.ratings[sub.SubmissionID] = &cp
	return nil
}

func (m *mockRatingRepo) ListByStudent(_ context.Context, studentID string) ([]model.RatingSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.RatingSubmission
	for _, r := range m.ratings {
		if r.StudentID == studentID {
			result = append(result, *r)
		}
	}
	return result, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ *mockStore }

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.NotificationID == "" {
		n.NotificationID = m.nextID("notification")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	}
	cp := *n
	m.notifications[n.NotificationID] = &cp
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			all = append(all, *n)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, x := range m.notifications {
		if x.UserID == userID && !x.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	n.IsRead = true
	n.ReadAt = &now
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	now := time.Now()
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
			count++
		}
	}
	return count, nil
}

// ── 记录型 Publisher ──

type recordingPublisher struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (p *recordingPublisher) Dispatch(msg notify.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return true
}

func (p *recordingPublisher) sentTo(email, template string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.messages {
		if m.RecipientEmail == email && m.Template == template {
			return true
		}
	}
	return false
}
