package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocksync/internal/api/middleware"
	"stocksync/internal/apperrors"
	"stocksync/internal/config"
	"stocksync/internal/events"
	"stocksync/internal/logger"
	"stocksync/internal/models"
	"stocksync/internal/services/catalogsync"
	"stocksync/internal/services/clover"
	"stocksync/internal/worker/processors/export"
	"stocksync/internal/worker/processors/importer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockCloverService struct {
	err       error
	lastReq   catalogsync.Request
	direction string
	enqueued  string
	conn      *catalogsync.Connection
	oauthArgs []string
}

func (m *mockCloverService) AuthorizationURL(ctx context.Context, userID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "https://sandbox.dev.clover.com/oauth/authorize?client_id=app&state=s-" + userID, nil
}

func (m *mockCloverService) CompleteOAuth(ctx context.Context, state, code, merchantID string) (*catalogsync.Connection, error) {
	m.oauthArgs = []string{state, code, merchantID}
	if m.err != nil {
		return nil, m.err
	}
	return m.conn, nil
}

func (m *mockCloverService) Status(ctx context.Context, userID string) (*catalogsync.ConnectionStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &catalogsync.ConnectionStatus{Connected: true, MerchantID: "M1", ConnectedAt: &at}, nil
}

func (m *mockCloverService) Disconnect(ctx context.Context, userID string) error {
	return m.err
}

func (m *mockCloverService) MerchantInfo(ctx context.Context, userID, sessionID string) (*clover.Merchant, error) {
	m.lastReq = catalogsync.Request{UserID: userID, SessionID: sessionID}
	if m.err != nil {
		return nil, m.err
	}
	return &clover.Merchant{ID: "M1", Name: "Corner Store"}, nil
}

func (m *mockCloverService) History(ctx context.Context, userID string, limit int) ([]models.SyncRun, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []models.SyncRun{{ID: "run-1", UserID: userID, Kind: models.SyncKindProducts, Status: models.SyncRunCompleted}}, nil
}

func (m *mockCloverService) Import(ctx context.Context, req catalogsync.Request) (*importer.Summary, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &importer.Summary{Imported: 3, Skipped: 1, Total: 4}, nil
}

func (m *mockCloverService) SyncProducts(ctx context.Context, req catalogsync.Request) (*export.Report, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &export.Report{Succeeded: 1, Failed: 1, Total: 2, Results: []export.Result{
		{ProductID: "p1", Name: "Widget", Status: export.StatusSuccess, CloverID: "R1"},
		{ProductID: "p2", Name: "Gadget", Status: export.StatusFailed, Error: "price must not be negative"},
	}}, nil
}

func (m *mockCloverService) SyncInventory(ctx context.Context, req catalogsync.Request) (*export.Report, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &export.Report{}, nil
}

func (m *mockCloverService) ManualSync(ctx context.Context, req catalogsync.Request, direction string) (*catalogsync.ManualResult, error) {
	m.lastReq = req
	m.direction = direction
	if m.err != nil {
		return nil, m.err
	}
	return &catalogsync.ManualResult{Direction: direction, Import: &importer.Summary{Imported: 2, Total: 2}}, nil
}

func (m *mockCloverService) EnqueueSync(ctx context.Context, requestType string, req catalogsync.Request) error {
	m.lastReq = req
	m.enqueued = requestType
	return m.err
}

func newCloverRouter(svc CloverService) *gin.Engine {
	cfg := &config.Config{FrontendURL: "http://localhost:3000"}
	h := NewCloverHandler(svc, logger.NewNop(), cfg)

	r := gin.New()
	r.Use(apperrors.Middleware(nil))
	r.GET("/oauth-callback", h.OAuthCallback)

	authed := r.Group("", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "u1")
		c.Next()
	})
	authed.GET("/authorize-url", h.AuthorizeURL)
	authed.GET("/connection-status", h.ConnectionStatus)
	authed.GET("/merchant-info", h.MerchantInfo)
	authed.POST("/import", h.Import)
	authed.POST("/sync-products", h.SyncProducts)
	authed.POST("/sync-inventory", h.SyncInventory)
	authed.POST("/manual-sync", h.ManualSync)
	authed.GET("/sync-status", h.SyncStatus)
	authed.POST("/disconnect", h.Disconnect)
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthorizeURL(t *testing.T) {
	w := serve(newCloverRouter(&mockCloverService{}), http.MethodGet, "/authorize-url", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["url"], "state=s-u1")
}

func TestOAuthCallback_Redirects(t *testing.T) {
	svc := &mockCloverService{conn: &catalogsync.Connection{UserID: "u1", MerchantID: "M9", SessionID: "handle-1"}}
	w := serve(newCloverRouter(svc), http.MethodGet, "/oauth-callback?code=abc&state=st&merchant_id=M9", "")

	assert.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", loc.Path)
	assert.Equal(t, "connected", loc.Query().Get("clover"))
	assert.Equal(t, "handle-1", loc.Query().Get("session"))
	assert.Equal(t, []string{"st", "abc", "M9"}, svc.oauthArgs)
}

func TestOAuthCallback_Errors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
		msg    string
	}{
		{"remote denial", "?error=access_denied", nil, http.StatusBadRequest, "access_denied"},
		{"missing code", "?state=st", nil, http.StatusBadRequest, "Missing required parameters"},
		{"bad state", "?code=c&state=st", catalogsync.ErrInvalidState, http.StatusBadRequest, catalogsync.ErrInvalidState.Error()},
		{"rejected code", "?code=c&state=st", &clover.AuthExchangeError{Status: 400, Reason: "invalid code"}, http.StatusBadRequest, "Clover authorization failed: invalid code"},
		{"remote down", "?code=c&state=st", &clover.AuthExchangeError{Status: 503}, http.StatusBadGateway, "Failed to exchange authorization code"},
		{"not configured", "?code=c&state=st", catalogsync.ErrNotConfigured, http.StatusInternalServerError, "Clover integration is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(newCloverRouter(&mockCloverService{err: tt.err}), http.MethodGet, "/oauth-callback"+tt.query, "")

			assert.Equal(t, tt.status, w.Code)
			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, tt.msg, resp["error"])
		})
	}
}

func TestConnectionStatus(t *testing.T) {
	w := serve(newCloverRouter(&mockCloverService{}), http.MethodGet, "/connection-status", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"connected":true,"merchantId":"M1","connectedAt":"2026-01-02T03:04:05Z"}`, w.Body.String())
}

func TestMerchantInfo_PassesSession(t *testing.T) {
	svc := &mockCloverService{}
	w := serve(newCloverRouter(svc), http.MethodGet, "/merchant-info?session_id=h1", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, catalogsync.Request{UserID: "u1", SessionID: "h1"}, svc.lastReq)
	assert.Contains(t, w.Body.String(), "Corner Store")
}

func TestImport(t *testing.T) {
	svc := &mockCloverService{}
	w := serve(newCloverRouter(svc), http.MethodPost, "/import", `{"session_id":"h1","location_id":"loc-1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, catalogsync.Request{UserID: "u1", SessionID: "h1", LocationID: "loc-1"}, svc.lastReq)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 3, resp["imported"])
	assert.EqualValues(t, 1, resp["skipped"])
	assert.EqualValues(t, 4, resp["total"])
}

func TestImport_MalformedBody(t *testing.T) {
	w := serve(newCloverRouter(&mockCloverService{}), http.MethodPost, "/import", `{"location_id":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncProducts_PartialFailureIsOK(t *testing.T) {
	w := serve(newCloverRouter(&mockCloverService{}), http.MethodPost, "/sync-products", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Message   string          `json:"message"`
		Succeeded int             `json:"succeeded"`
		Failed    int             `json:"failed"`
		Total     int             `json:"total"`
		Results   []export.Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, "price must not be negative", resp.Results[1].Error)
}

func TestSyncInventory_Async(t *testing.T) {
	svc := &mockCloverService{}
	w := serve(newCloverRouter(svc), http.MethodPost, "/sync-inventory?async=true", `{"location_id":"loc-1"}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, events.RequestSyncInventory, svc.enqueued)
	assert.Equal(t, "loc-1", svc.lastReq.LocationID)
}

func TestSyncInventory_AsyncWithoutBroker(t *testing.T) {
	w := serve(newCloverRouter(&mockCloverService{err: events.ErrAsyncUnavailable}), http.MethodPost, "/sync-inventory?async=true", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestManualSync(t *testing.T) {
	svc := &mockCloverService{}
	w := serve(newCloverRouter(svc), http.MethodPost, "/manual-sync", `{"direction":"import","location_id":"loc-1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "import", svc.direction)
	assert.Contains(t, w.Body.String(), `"imported":2`)
}

func TestSyncStatus(t *testing.T) {
	w := serve(newCloverRouter(&mockCloverService{}), http.MethodGet, "/sync-status", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"run-1"`)
	assert.Contains(t, w.Body.String(), `"connected":true`)
}

func TestDisconnect(t *testing.T) {
	w := serve(newCloverRouter(&mockCloverService{}), http.MethodPost, "/disconnect", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Clover account disconnected"}`, w.Body.String())
}

func TestSyncErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{catalogsync.ErrInvalidSession, http.StatusBadRequest},
		{catalogsync.ErrNotConnected, http.StatusBadRequest},
		{catalogsync.ErrLocationRequired, http.StatusBadRequest},
		{catalogsync.ErrInvalidDirection, http.StatusBadRequest},
		{catalogsync.ErrLocationNotFound, http.StatusNotFound},
		{catalogsync.ErrSyncInProgress, http.StatusConflict},
		{catalogsync.ErrNotConfigured, http.StatusInternalServerError},
		{&clover.RemoteCatalogError{Op: "list items", Status: 401, Body: "unauthorized"}, http.StatusBadGateway},
		{clover.ErrPageLimitExceeded, http.StatusBadGateway},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := serve(newCloverRouter(&mockCloverService{err: tt.err}), http.MethodPost, "/manual-sync", `{"direction":"export"}`)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestInternalErrorsHideDetail(t *testing.T) {
	w := serve(newCloverRouter(&mockCloverService{err: errors.New("pq: password authentication failed")}), http.MethodPost, "/sync-products", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}
