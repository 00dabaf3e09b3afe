package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainauth "github.com/target/dispatch-api/internal/domain/auth"
	"github.com/target/dispatch-api/internal/domain/dashboard"
	"github.com/target/dispatch-api/internal/domain/dispatch"
	"github.com/target/dispatch-api/internal/domain/model"
	"github.com/target/dispatch-api/internal/service"
)

var errNotStubbed = errors.New("not stubbed")

const (
	userSessionID  = "sess-user"
	adminSessionID = "sess-admin"
	guestSessionID = "sess-guest"
)

// mockAuthService is a test double for AuthServiceInterface. Known session
// IDs resolve to fixed sessions unless getSessionFunc overrides them.
type mockAuthService struct {
	providerDisabled  bool
	beginLoginFunc    func(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	completeLoginFunc func(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	passwordLoginFunc func(ctx context.Context, email, password string) (*service.CompleteLoginResult, error)
	getSessionFunc    func(ctx context.Context, sessionID string) (*domainauth.Session, error)
	logoutFunc        func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) ProviderEnabled() bool { return !m.providerDisabled }

func (m *mockAuthService) BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error) {
	if m.beginLoginFunc != nil {
		return m.beginLoginFunc(ctx, redirectURL)
	}
	return &service.BeginLoginResult{
		AuthURL: "https://idp.test/authorize?state=test-state",
		State:   "test-state",
		Nonce:   "test-nonce",
	}, nil
}

func (m *mockAuthService) CompleteLogin(
	ctx context.Context,
	input service.CompleteLoginInput,
) (*service.CompleteLoginResult, error) {
	if m.completeLoginFunc != nil {
		return m.completeLoginFunc(ctx, input)
	}
	return &service.CompleteLoginResult{Session: testSession("new-session", domainauth.RoleUser)}, nil
}

func (m *mockAuthService) PasswordLogin(ctx context.Context, email, password string) (*service.CompleteLoginResult, error) {
	if m.passwordLoginFunc != nil {
		return m.passwordLoginFunc(ctx, email, password)
	}
	return nil, errNotStubbed
}

func (m *mockAuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if m.getSessionFunc != nil {
		return m.getSessionFunc(ctx, sessionID)
	}
	var s domainauth.Session
	switch sessionID {
	case userSessionID:
		s = testSession(sessionID, domainauth.RoleUser)
	case adminSessionID:
		s = testSession(sessionID, domainauth.RoleAdmin)
	case guestSessionID:
		s = testSession(sessionID, domainauth.RoleGuest)
	default:
		return nil, errors.New("session not found")
	}
	return &s, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, sessionID)
	}
	return nil
}

func testSession(id string, role domainauth.Role) domainauth.Session {
	return domainauth.Session{
		ID:        id,
		UserID:    "u-" + string(role),
		FirstName: "Dana",
		LastName:  "Reyes",
		Email:     string(role) + "@example.com",
		Role:      role,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

// stubJobs implements JobAPI with per-test overrides.
type stubJobs struct {
	create       func(actor domainauth.Actor, req *model.CreateJobRequest, p dispatch.ClientPlatform) (*service.JobResult, error)
	get          func(actor domainauth.Actor, id string) (*model.Job, error)
	update       func(actor domainauth.Actor, id string, patch model.JobPatch, p dispatch.ClientPlatform) (*service.JobResult, error)
	del          func(actor domainauth.Actor, id string) error
	updates      func(actor domainauth.Actor, id string) ([]model.JobUpdate, error)
	links        func(actor domainauth.Actor, id string, p dispatch.ClientPlatform) (*service.JobLinks, error)
	portalGet    func(id string, p dispatch.ClientPlatform) (*service.PortalJob, error)
	portalUpdate func(id string, patch model.PortalJobPatch, p dispatch.ClientPlatform) (*service.PortalJob, error)
}

func (s *stubJobs) Create(
	_ context.Context,
	actor domainauth.Actor,
	req *model.CreateJobRequest,
	p dispatch.ClientPlatform,
) (*service.JobResult, error) {
	if s.create == nil {
		return nil, errNotStubbed
	}
	return s.create(actor, req, p)
}

func (s *stubJobs) Get(_ context.Context, actor domainauth.Actor, id string) (*model.Job, error) {
	if s.get == nil {
		return nil, errNotStubbed
	}
	return s.get(actor, id)
}

func (s *stubJobs) Update(
	_ context.Context,
	actor domainauth.Actor,
	id string,
	patch model.JobPatch,
	p dispatch.ClientPlatform,
) (*service.JobResult, error) {
	if s.update == nil {
		return nil, errNotStubbed
	}
	return s.update(actor, id, patch, p)
}

func (s *stubJobs) Delete(_ context.Context, actor domainauth.Actor, id string) error {
	if s.del == nil {
		return errNotStubbed
	}
	return s.del(actor, id)
}

func (s *stubJobs) ListUpdates(_ context.Context, actor domainauth.Actor, id string) ([]model.JobUpdate, error) {
	if s.updates == nil {
		return nil, errNotStubbed
	}
	return s.updates(actor, id)
}

func (s *stubJobs) Links(
	_ context.Context,
	actor domainauth.Actor,
	id string,
	p dispatch.ClientPlatform,
) (*service.JobLinks, error) {
	if s.links == nil {
		return nil, errNotStubbed
	}
	return s.links(actor, id, p)
}

func (s *stubJobs) PortalGet(_ context.Context, id string, p dispatch.ClientPlatform) (*service.PortalJob, error) {
	if s.portalGet == nil {
		return nil, errNotStubbed
	}
	return s.portalGet(id, p)
}

func (s *stubJobs) PortalUpdate(
	_ context.Context,
	id string,
	patch model.PortalJobPatch,
	p dispatch.ClientPlatform,
) (*service.PortalJob, error) {
	if s.portalUpdate == nil {
		return nil, errNotStubbed
	}
	return s.portalUpdate(id, patch, p)
}

// stubDashboard implements DashboardAPI and ExportAPI.
type stubDashboard struct {
	jobs       []model.Job
	lastFilter dashboard.Filter
	exportErr  error
}

func (s *stubDashboard) Jobs(_ context.Context, _ domainauth.Actor, f dashboard.Filter) ([]model.Job, error) {
	s.lastFilter = f
	return s.jobs, nil
}

func (s *stubDashboard) Overview(_ context.Context, _ domainauth.Actor, f dashboard.Filter) (*service.DashboardView, error) {
	s.lastFilter = f
	return &service.DashboardView{Jobs: s.jobs, Summary: dashboard.Summarize(s.jobs)}, nil
}

func (s *stubDashboard) Filename() string { return "jobs-20260309.xlsx" }

func (s *stubDashboard) WriteXLSX(_ context.Context, _ domainauth.Actor, f dashboard.Filter, w io.Writer) error {
	s.lastFilter = f
	if s.exportErr != nil {
		return s.exportErr
	}
	_, err := io.WriteString(w, "PK-fake-workbook")
	return err
}

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T, services RouterServices) *testServer {
	t.Helper()
	if services.Auth == nil {
		services.Auth = &mockAuthService{}
	}
	return &testServer{t: t, handler: NewRouter(services)}
}

// do sends a request with an optional JSON body and session cookie.
func (s *testServer) do(method, target, body, sessionID string) *httptest.ResponseRecorder {
	s.t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: cookieSession, Value: sessionID})
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }
