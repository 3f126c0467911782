package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/constructtrack/internal/authorization"
	"github.com/smallbiznis/constructtrack/internal/companycontext"
	"github.com/smallbiznis/constructtrack/internal/config"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/constructtrack/internal/invoice/domain"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuthz struct {
	mock.Mock
}

func (f *fakeAuthz) Authorize(ctx context.Context, actor string, companyID string, object string, action string) error {
	args := f.Called(actor, companyID, object, action)
	return args.Error(0)
}

type fakeTimeService struct {
	timetrackingdomain.Service

	clockInReq timetrackingdomain.ClockInRequest
	companyID  snowflake.ID
	actorID    snowflake.ID
	err        error
}

func (f *fakeTimeService) ClockIn(ctx context.Context, req timetrackingdomain.ClockInRequest) (*timetrackingdomain.TimeLog, error) {
	f.clockInReq = req
	f.companyID, _ = companycontext.CompanyIDFromContext(ctx)
	f.actorID, _ = companycontext.ActorIDFromContext(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return &timetrackingdomain.TimeLog{ID: 900, UserID: 20, ProjectID: 10}, nil
}

type fakeInventoryService struct {
	inventorydomain.Service

	removed inventorydomain.OrderEntry
	added   string
}

func (f *fakeInventoryService) AddManualToOrderList(ctx context.Context, name string) (inventorydomain.OrderEntry, error) {
	f.added = name
	return inventorydomain.ManualEntry{ID: 71, Name: name}, nil
}

func (f *fakeInventoryService) RemoveFromOrderList(ctx context.Context, entry inventorydomain.OrderEntry) error {
	f.removed = entry
	return nil
}

type fakeInvoiceService struct {
	invoicedomain.Service
	err error
}

func (f *fakeInvoiceService) Generate(ctx context.Context, projectID string) (*invoicedomain.Invoice, error) {
	return nil, f.err
}

type fakeProjectService struct {
	projectdomain.Service
}

func (f *fakeProjectService) Get(ctx context.Context, id string) (*projectdomain.Detail, error) {
	return nil, projectdomain.ErrNotFound
}

type testServer struct {
	engine    *gin.Engine
	authz     *fakeAuthz
	time      *fakeTimeService
	inventory *fakeInventoryService
	invoice   *fakeInvoiceService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	ts := &testServer{
		engine:    engine,
		authz:     &fakeAuthz{},
		time:      &fakeTimeService{},
		inventory: &fakeInventoryService{},
		invoice:   &fakeInvoiceService{},
	}
	NewServer(ServerParams{
		Gin:          engine,
		Cfg:          config.Config{HTTPAddr: ":0"},
		Log:          zap.NewNop(),
		AuthzSvc:     ts.authz,
		TimeSvc:      ts.time,
		InventorySvc: ts.inventory,
		InvoiceSvc:   ts.invoice,
		ProjectSvc:   &fakeProjectService{},
	})
	return ts
}

func (ts *testServer) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func userHeaders(userID string) map[string]string {
	return map[string]string{HeaderCompany: "1", HeaderActor: userID}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestMissingCompanyHeaderIsRejected(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/projects/10", nil, map[string]string{HeaderActor: "20"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_company", payload.Errors[0].Code)
}

func TestMissingActorIsUnauthorized(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/projects/10", nil, map[string]string{HeaderCompany: "1"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForbiddenByPolicy(t *testing.T) {
	ts := newTestServer(t)
	ts.authz.On("Authorize", "user:20", "1", authorization.ObjectInvoice, authorization.ActionInvoiceGenerate).
		Return(authorization.ErrForbidden)

	rec := ts.do(http.MethodPost, "/api/projects/10/invoices", nil, userHeaders("20"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	ts.authz.AssertExpectations(t)
}

func TestClockInPassesContextAndLocation(t *testing.T) {
	ts := newTestServer(t)
	ts.authz.On("Authorize", "user:20", "1", authorization.ObjectTimeLog, authorization.ActionTimeClock).Return(nil)

	rec := ts.do(http.MethodPost, "/api/users/20/clock-in", map[string]any{
		"project_id": "10",
		"location":   map[string]any{"lat": 40.7128, "lng": -74.006, "accuracy": 12},
	}, userHeaders("20"))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "20", ts.time.clockInReq.UserID)
	assert.Equal(t, "10", ts.time.clockInReq.ProjectID)
	assert.Equal(t, snowflake.ID(1), ts.time.companyID)
	assert.Equal(t, snowflake.ID(20), ts.time.actorID)
	require.NotNil(t, ts.time.clockInReq.Locator)

	loc, err := ts.time.clockInReq.Locator.Locate(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 40.7128, loc.Latitude, 1e-9)
}

func TestClockInWithoutLocation(t *testing.T) {
	ts := newTestServer(t)
	ts.authz.On("Authorize", "user:20", "1", authorization.ObjectTimeLog, authorization.ActionTimeClock).Return(nil)

	rec := ts.do(http.MethodPost, "/api/users/20/clock-in", map[string]any{"project_id": "10"}, userHeaders("20"))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, ts.time.clockInReq.Locator)
}

func TestClockInForAnotherUserNeedsUserManage(t *testing.T) {
	ts := newTestServer(t)
	ts.authz.On("Authorize", "user:20", "1", authorization.ObjectTimeLog, authorization.ActionTimeClock).Return(nil)
	ts.authz.On("Authorize", "user:20", "1", authorization.ObjectUser, authorization.ActionUserManage).
		Return(authorization.ErrForbidden)

	rec := ts.do(http.MethodPost, "/api/users/21/clock-in", map[string]any{"project_id": "10"}, userHeaders("20"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, ts.time.clockInReq.UserID)
}

func TestClockInTwiceIsConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.authz.On("Authorize", "system", "1", authorization.ObjectTimeLog, authorization.ActionTimeClock).Return(nil)
	ts.time.err = fmt.Errorf("clock in: %w", timetrackingdomain.ErrInvalidTransition)

	rec := ts.do(http.MethodPost, "/api/users/20/clock-in", map[string]any{"project_id": "10"},
		map[string]string{HeaderCompany: "1", HeaderActor: "system"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeError(t, rec).Type)
}

func TestNothingToInvoiceIsConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.authz.On("Authorize", "user:20", "1", authorization.ObjectInvoice, authorization.ActionInvoiceGenerate).Return(nil)
	ts.invoice.err = invoicedomain.ErrNothingToInvoice

	rec := ts.do(http.MethodPost, "/api/projects/10/invoices", nil, userHeaders("20"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "nothing to invoice", decodeError(t, rec).Message)
}

func TestOrderListRequiresExactlyOneSource(t *testing.T) {
	ts := newTestServer(t)
	ts.authz.On("Authorize", "user:20", "1", authorization.ObjectOrderList, authorization.ActionOrderListManage).Return(nil)

	rec := ts.do(http.MethodPost, "/api/order-list", map[string]any{"item_id": "70", "name": "Mud"}, userHeaders("20"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/order-list", map[string]any{"name": "Drywall mud"}, userHeaders("20"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Drywall mud", ts.inventory.added)

	var resp struct {
		Data inventorydomain.OrderEntryView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "manual:71", resp.Data.Key)
}

func TestRemoveOrderListEntryByKey(t *testing.T) {
	ts := newTestServer(t)
	ts.authz.On("Authorize", "user:20", "1", authorization.ObjectOrderList, authorization.ActionOrderListManage).Return(nil)

	rec := ts.do(http.MethodDelete, "/api/order-list/inventory:70", nil, userHeaders("20"))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, inventorydomain.InventoryEntry{ItemID: 70}, ts.inventory.removed)

	rec = ts.do(http.MethodDelete, "/api/order-list/bogus", nil, userHeaders("20"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownProjectIsNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.authz.On("Authorize", "user:20", "1", authorization.ObjectProject, authorization.ActionProjectView).Return(nil)

	rec := ts.do(http.MethodGet, "/api/projects/10", nil, userHeaders("20"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/nope", nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCompanyIsSystemOnly(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/companies", map[string]any{"name": "Acme"}, map[string]string{HeaderActor: "20"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{timetrackingdomain.ErrSameProject, http.StatusConflict},
		{inventorydomain.ErrInsufficientStock, http.StatusConflict},
		{invoicedomain.ErrAlreadyInvoiced, http.StatusConflict},
		{inventorydomain.ErrInvalidQuantity, http.StatusBadRequest},
		{projectdomain.ErrInvalidDateRange, http.StatusBadRequest},
		{invoicedomain.ErrInvalidStatus, http.StatusBadRequest},
		{inventorydomain.ErrItemNotFound, http.StatusNotFound},
		{projectdomain.ErrPhotoNotFound, http.StatusNotFound},
		{authorization.ErrForbidden, http.StatusForbidden},
		{ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}
}
