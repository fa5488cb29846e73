package seed

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/service"
)

const sample = `
users:
  - {name: 管理员, email: admin@ava.test, password: password123, role: admin}
  - {name: 客户, email: client@ava.test, password: password123, role: client}
  - {name: Alice, email: alice@ava.test, password: password123, role: student}
projects:
  - name: 校园安保
    owner: admin@ava.test
    client: client@ava.test
    members: [alice@ava.test]
`

// ── 内存版业务层 ──

type fakeDirectory struct {
	users map[string]*dto.UserResponse // email → user
}

func (d *fakeDirectory) Resolve(_ context.Context, id string) (*dto.UserResponse, error) {
	for _, u := range d.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, service.ErrUserNotFound
}
func (d *fakeDirectory) ResolveByEmail(_ context.Context, email string) (*dto.UserResponse, error) {
	if u, ok := d.users[email]; ok {
		return u, nil
	}
	return nil, service.ErrUserNotFound
}
func (d *fakeDirectory) ResolveMany(_ context.Context, _ []string) (map[string]*dto.UserResponse, error) {
	return nil, nil
}
func (d *fakeDirectory) Invalidate(_ context.Context, _ string) {}

type fakeUsers struct{ dir *fakeDirectory }

func (f *fakeUsers) CreateUser(_ context.Context, req *dto.CreateUserRequest, _ string) (*dto.UserResponse, error) {
	if _, ok := f.dir.users[req.Email]; ok {
		return nil, service.ErrEmailExists
	}
	u := &dto.UserResponse{ID: fmt.Sprintf("u%d", len(f.dir.users)+1), Name: req.Name, Email: req.Email, Role: req.Role, IsActive: true}
	f.dir.users[req.Email] = u
	return u, nil
}
func (f *fakeUsers) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	return f.dir.Resolve(ctx, id)
}
func (f *fakeUsers) ListByRole(_ context.Context, _ string) ([]dto.UserResponse, error) {
	return nil, nil
}

type fakeProjects struct {
	projects []dto.ProjectResponse
	members  map[string]bool // projectID/userID
}

func (f *fakeProjects) CreateProject(_ context.Context, req *dto.CreateProjectRequest, adminID string) (*dto.ProjectResponse, error) {
	p := dto.ProjectResponse{ID: fmt.Sprintf("p%d", len(f.projects)+1), Name: strings.TrimSpace(req.Name), OwnerID: adminID, ClientID: req.ClientID}
	f.projects = append(f.projects, p)
	return &p, nil
}
func (f *fakeProjects) GetProject(_ context.Context, _, _, _ string) (*dto.ProjectResponse, error) {
	return nil, service.ErrProjectNotFound
}
func (f *fakeProjects) ListProjects(_ context.Context, callerID, _ string) ([]dto.ProjectResponse, error) {
	var out []dto.ProjectResponse
	for _, p := range f.projects {
		if p.OwnerID == callerID {
			out = append(out, p)
		}
	}
	return out, nil
}
func (f *fakeProjects) AddMember(_ context.Context, projectID string, req *dto.AddMemberRequest, _ string) (*dto.MemberResponse, error) {
	key := projectID + "/" + req.UserID
	if f.members[key] {
		return nil, service.ErrMemberExists
	}
	f.members[key] = true
	return &dto.MemberResponse{ProjectID: projectID, UserID: req.UserID}, nil
}
func (f *fakeProjects) DeactivateMember(_ context.Context, _, _, _ string) error { return nil }
func (f *fakeProjects) ListMembers(_ context.Context, _, _, _ string) ([]dto.MemberResponse, error) {
	return nil, nil
}
func (f *fakeProjects) GetProjectHealth(_ context.Context, _, _, _ string) (*dto.ProjectHealthResponse, error) {
	return nil, nil
}

func newLoader() (*Loader, *fakeProjects) {
	dir := &fakeDirectory{users: map[string]*dto.UserResponse{}}
	projects := &fakeProjects{members: map[string]bool{}}
	return &Loader{
		users:     &fakeUsers{dir: dir},
		projects:  projects,
		directory: dir,
		logger:    zap.NewNop(),
	}, projects
}

// ── 测试 ──

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Len(t, f.Users, 3)
	require.Len(t, f.Projects, 1)
	assert.Equal(t, []string{"alice@ava.test"}, f.Projects[0].Members)
}

func TestParse_Rejections(t *testing.T) {
	tests := map[string]string{
		"unknown role":  "users: [{name: Bob, email: bob@ava.test, password: password123, role: janitor}]",
		"short pwd":     "users: [{name: Bob, email: bob@ava.test, password: short, role: student}]",
		"bad member":    "projects: [{name: 项目, owner: admin@ava.test, members: [not-an-email]}]",
		"unknown field": "users: [{name: Bob, email: bob@ava.test, password: password123, role: student, age: 3}]",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestApply_Idempotent(t *testing.T) {
	f, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	l, projects := newLoader()

	res, err := l.Apply(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, &Result{UsersCreated: 3, ProjectsCreated: 1, MembersAdded: 1}, res)
	require.Len(t, projects.projects, 1)
	require.NotNil(t, projects.projects[0].ClientID)

	// 再次执行不产生重复数据
	res, err = l.Apply(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, &Result{UsersSkipped: 3, ProjectsSkipped: 1}, res)
	assert.Len(t, projects.projects, 1)
}

func TestApply_OwnerMustBeAdmin(t *testing.T) {
	doc := `
users:
  - {name: Alice, email: alice@ava.test, password: password123, role: student}
projects:
  - {name: 项目, owner: alice@ava.test}
`
	f, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	l, _ := newLoader()

	_, err = l.Apply(context.Background(), f)
	assert.ErrorContains(t, err, "不是管理员")
}

func TestApply_UnknownMember(t *testing.T) {
	doc := `
users:
  - {name: 管理员, email: admin@ava.test, password: password123, role: admin}
projects:
  - {name: 项目, owner: admin@ava.test, members: [ghost@ava.test]}
`
	f, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	l, _ := newLoader()

	_, err = l.Apply(context.Background(), f)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}
