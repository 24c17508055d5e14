package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ACondori95/admin-tarea/models"
	"github.com/ACondori95/admin-tarea/services"
	"github.com/ACondori95/admin-tarea/testutil"
	"github.com/ACondori95/admin-tarea/utils"
)

const inviteToken = "invite-secret"

type testServer struct {
	handler http.Handler
	users   *testutil.UserStore
	tasks   *testutil.TaskStore
	pingErr error

	admin models.AuthResponse
	alice models.AuthResponse
	bob   models.AuthResponse
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{users: testutil.NewUserStore(), tasks: testutil.NewTaskStore()}
	tokens := utils.NewTokenIssuer("handler-secret", time.Hour)
	userService := services.NewUserService(s.users, s.tasks, tokens, utils.BcryptHasher{}, inviteToken)

	s.handler = NewRouter(Services{
		Users:      userService,
		Tasks:      services.NewTaskService(s.tasks, s.users),
		Dashboards: services.NewDashboardService(s.tasks),
		Reports:    services.NewReportService(s.tasks, s.users),
		Ping:       func(context.Context) error { return s.pingErr },
		ClientURL:  "*",
		DBTimeout:  5 * time.Second,
	})

	s.admin = s.register(t, "Admin", "admin@example.com", inviteToken)
	s.alice = s.register(t, "Alice", "alice@example.com", "")
	s.bob = s.register(t, "Bob", "bob@example.com", "")
	return s
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, name, email, invite string) models.AuthResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":             name,
		"email":            email,
		"password":         "password1",
		"adminInviteToken": invite,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp models.AuthResponse
	decode(t, rec, &resp)
	return resp
}

func (s *testServer) createTask(t *testing.T, body map[string]interface{}) models.Task {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/tasks", s.admin.Token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Message string      `json:"message"`
		Task    models.Task `json:"task"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "Task created successfully", resp.Message)
	return resp.Task
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func messageOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body utils.MessageResponse
	decode(t, rec, &body)
	return body.Message
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, models.RoleAdmin, s.admin.Role)
	assert.Equal(t, models.RoleMember, s.alice.Role)

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Dup", "email": "alice@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", messageOf(t, rec))

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "password1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login models.AuthResponse
	decode(t, rec, &login)
	assert.Equal(t, s.alice.ID, login.ID)
	assert.NotEmpty(t, login.Token)

	wrong := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "nope",
	})
	unknown := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ghost@example.com", "password": "password1",
	})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestProfile(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/auth/profile", s.alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Contains(t, rec.Body.String(), "alice@example.com")

	rec = s.do(t, http.MethodPut, "/api/auth/profile", s.alice.Token, map[string]string{"name": "Alice B"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.AuthResponse
	decode(t, rec, &updated)
	assert.Equal(t, "Alice B", updated.Name)
	assert.NotEmpty(t, updated.Token)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized, no token", messageOf(t, rec))

	rec = s.do(t, http.MethodGet, "/api/tasks", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized, token failed", messageOf(t, rec))
}

func TestAdminRoutesRejectMembers(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/tasks"},
		{http.MethodGet, "/api/tasks/dashboard-data"},
		{http.MethodGet, "/api/users"},
		{http.MethodGet, "/api/reports/export/tasks"},
		{http.MethodGet, "/api/reports/export/users"},
	} {
		rec := s.do(t, tc.method, tc.path, s.alice.Token, map[string]string{})
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "Access denied, admins only", messageOf(t, rec))
	}
}

func TestCreateTaskValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/tasks", s.admin.Token, map[string]interface{}{
		"title":      "t",
		"dueDate":    "2030-01-01",
		"assignedTo": s.alice.ID.Hex(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "assignedTo must be an array of user IDs", messageOf(t, rec))

	rec = s.do(t, http.MethodPost, "/api/tasks", s.admin.Token, map[string]interface{}{
		"title":      "t",
		"dueDate":    "next week",
		"assignedTo": []string{s.alice.ID.Hex()},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/tasks", s.admin.Token, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, s.tasks.Writes)
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(t)
	task := s.createTask(t, map[string]interface{}{
		"title":      "Prepare slides",
		"dueDate":    "2030-01-01T00:00:00Z",
		"assignedTo": []string{s.alice.ID.Hex()},
		"todoChecklist": []map[string]interface{}{
			{"text": "A", "completed": false},
			{"text": "B", "completed": false},
		},
	})
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	path := "/api/tasks/" + task.ID.Hex()

	// Members only see their own tasks.
	rec := s.do(t, http.MethodGet, "/api/tasks", s.bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bobList struct {
		Tasks         []json.RawMessage    `json:"tasks"`
		StatusSummary models.StatusSummary `json:"statusSummary"`
	}
	decode(t, rec, &bobList)
	assert.Empty(t, bobList.Tasks)
	assert.Equal(t, models.StatusSummary{}, bobList.StatusSummary)

	rec = s.do(t, http.MethodGet, path, s.bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/tasks", s.alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var aliceList struct {
		Tasks []struct {
			ID         string               `json:"_id"`
			AssignedTo []models.UserSummary `json:"assignedTo"`
			Completed  int                  `json:"completedTodoCount"`
		} `json:"tasks"`
		StatusSummary models.StatusSummary `json:"statusSummary"`
	}
	decode(t, rec, &aliceList)
	require.Len(t, aliceList.Tasks, 1)
	require.Len(t, aliceList.Tasks[0].AssignedTo, 1)
	assert.Equal(t, "alice@example.com", aliceList.Tasks[0].AssignedTo[0].Email)
	assert.Equal(t, models.StatusSummary{All: 1, PendingTasks: 1}, aliceList.StatusSummary)

	// A non-assignee cannot touch progress.
	rec = s.do(t, http.MethodPut, path+"/todo", s.bob.Token, map[string]interface{}{
		"todoChecklist": []map[string]interface{}{{"text": "A", "completed": true}},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	writes := s.tasks.Writes

	rec = s.do(t, http.MethodPut, path+"/todo", s.alice.Token, map[string]interface{}{
		"todoChecklist": []map[string]interface{}{
			{"text": "A", "completed": true},
			{"text": "B", "completed": false},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var checklist struct {
		Message string `json:"message"`
		Task    struct {
			Progress   int                  `json:"progress"`
			Status     models.TaskStatus    `json:"status"`
			AssignedTo []models.UserSummary `json:"assignedTo"`
		} `json:"task"`
	}
	decode(t, rec, &checklist)
	assert.Equal(t, 50, checklist.Task.Progress)
	assert.Equal(t, models.StatusInProgress, checklist.Task.Status)
	assert.Len(t, checklist.Task.AssignedTo, 1)
	assert.Equal(t, writes+1, s.tasks.Writes)

	rec = s.do(t, http.MethodPut, path+"/status", s.alice.Token, map[string]string{"status": "Completed"})
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Task models.Task `json:"task"`
	}
	decode(t, rec, &status)
	assert.Equal(t, 100, status.Task.Progress)
	for _, item := range status.Task.TodoChecklist {
		assert.True(t, item.Completed)
	}

	rec = s.do(t, http.MethodPut, path, s.admin.Token, map[string]interface{}{"priority": "High"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated struct {
		Message     string      `json:"message"`
		UpdatedTask models.Task `json:"updatedTask"`
	}
	decode(t, rec, &updated)
	assert.Equal(t, models.PriorityHigh, updated.UpdatedTask.Priority)
	assert.Equal(t, "Prepare slides", updated.UpdatedTask.Title)
	assert.Equal(t, []string{s.alice.ID.Hex()}, hexes(updated.UpdatedTask))

	rec = s.do(t, http.MethodPut, path, s.admin.Token, map[string]interface{}{"assignedTo": "nobody"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, path, s.admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Task deleted successfully", messageOf(t, rec))

	rec = s.do(t, http.MethodGet, path, s.admin.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task not found", messageOf(t, rec))
}

func hexes(task models.Task) []string {
	out := make([]string, 0, len(task.AssignedTo))
	for _, id := range task.AssignedTo {
		out = append(out, id.Hex())
	}
	return out
}

func TestChecklistAlias(t *testing.T) {
	s := newTestServer(t)
	task := s.createTask(t, map[string]interface{}{
		"title":      "t",
		"dueDate":    "2030-01-01",
		"assignedTo": []string{s.alice.ID.Hex()},
	})

	rec := s.do(t, http.MethodPut, "/api/tasks/"+task.ID.Hex()+"/checklist", s.alice.Token, map[string]interface{}{
		"todoChecklist": []map[string]interface{}{{"text": "only", "completed": true}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Completed"`)
}

func TestDashboards(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/tasks/dashboard-data", s.admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var empty models.Dashboard
	decode(t, rec, &empty)
	assert.Equal(t, models.DashboardStatistics{}, empty.Statistics)
	assert.Equal(t, int64(0), empty.Charts.TaskDistribution["Total"])
	assert.Contains(t, rec.Body.String(), `"recentTasks":[]`)

	s.createTask(t, map[string]interface{}{
		"title":      "mine",
		"dueDate":    "2030-01-01",
		"assignedTo": []string{s.alice.ID.Hex()},
	})
	s.createTask(t, map[string]interface{}{
		"title":      "theirs",
		"dueDate":    "2030-01-01",
		"assignedTo": []string{s.bob.ID.Hex()},
	})

	rec = s.do(t, http.MethodGet, "/api/tasks/user-dashboard-data", s.alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine models.Dashboard
	decode(t, rec, &mine)
	assert.Equal(t, int64(1), mine.Statistics.TotalTasks)
	assert.Equal(t, int64(1), mine.Charts.TaskDistribution["Pending"])
	require.Len(t, mine.RecentTasks, 1)
	assert.Equal(t, "mine", mine.RecentTasks[0].Title)
}

func TestUsers(t *testing.T) {
	s := newTestServer(t)
	s.createTask(t, map[string]interface{}{
		"title":      "t",
		"dueDate":    "2030-01-01",
		"assignedTo": []string{s.alice.ID.Hex()},
	})

	rec := s.do(t, http.MethodGet, "/api/users", s.admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members []struct {
		Email        string `json:"email"`
		Role         string `json:"role"`
		PendingTasks int64  `json:"pendingTasks"`
	}
	decode(t, rec, &members)
	require.Len(t, members, 2)
	for _, m := range members {
		assert.Equal(t, "member", m.Role)
		if m.Email == "alice@example.com" {
			assert.Equal(t, int64(1), m.PendingTasks)
		}
	}
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(t, http.MethodGet, "/api/users/"+s.bob.ID.Hex(), s.alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bob@example.com")

	rec = s.do(t, http.MethodGet, "/api/users/zzz", s.alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportExport(t *testing.T) {
	s := newTestServer(t)
	s.createTask(t, map[string]interface{}{
		"title":      "Quarterly numbers",
		"dueDate":    "2030-01-01",
		"assignedTo": []string{s.alice.ID.Hex()},
	})

	rec := s.do(t, http.MethodGet, "/api/reports/export/tasks", s.admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.SpreadsheetContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="tasks_report.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Tasks Report")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Quarterly numbers", rows[1][1])
	assert.True(t, strings.HasPrefix(rows[1][6], "Alice"))

	rec = s.do(t, http.MethodGet, "/api/reports/export/users", s.admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="users_report.xlsx"`, rec.Header().Get("Content-Disposition"))
}

func TestHealthAndCORS(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	s.pingErr = errors.New("no primary")
	rec = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.do(t, http.MethodOptions, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	s := newTestServer(t)
	s.tasks.Err = errors.New("connection reset by peer")

	rec := s.do(t, http.MethodGet, "/api/tasks", s.admin.Token, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", messageOf(t, rec))
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

// deadlineTaskStore records whether Find ran under a context deadline.
type deadlineTaskStore struct {
	*testutil.TaskStore
	hasDeadline bool
	remaining   time.Duration
}

func (d *deadlineTaskStore) Find(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	deadline, ok := ctx.Deadline()
	d.hasDeadline = ok
	if ok {
		d.remaining = time.Until(deadline)
	}
	return d.TaskStore.Find(ctx, f)
}

func TestStoreCallsRunUnderRequestDeadline(t *testing.T) {
	s := newTestServer(t)
	tasks := &deadlineTaskStore{TaskStore: s.tasks}
	tokens := utils.NewTokenIssuer("handler-secret", time.Hour)
	handler := NewRouter(Services{
		Users:      services.NewUserService(s.users, tasks, tokens, utils.BcryptHasher{}, inviteToken),
		Tasks:      services.NewTaskService(tasks, s.users),
		Dashboards: services.NewDashboardService(tasks),
		Reports:    services.NewReportService(tasks, s.users),
		Ping:       func(context.Context) error { return nil },
		DBTimeout:  3 * time.Second,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+s.admin.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, tasks.hasDeadline)
	assert.True(t, tasks.remaining > 0 && tasks.remaining <= 3*time.Second, "remaining %s", tasks.remaining)
}
