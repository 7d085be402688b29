package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

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

// CloverService is the part of catalogsync.Service the handler calls.
type CloverService interface {
	AuthorizationURL(ctx context.Context, userID string) (string, error)
	CompleteOAuth(ctx context.Context, state, code, merchantID string) (*catalogsync.Connection, error)
	Status(ctx context.Context, userID string) (*catalogsync.ConnectionStatus, error)
	Disconnect(ctx context.Context, userID string) error
	MerchantInfo(ctx context.Context, userID, sessionID string) (*clover.Merchant, error)
	History(ctx context.Context, userID string, limit int) ([]models.SyncRun, error)
	Import(ctx context.Context, req catalogsync.Request) (*importer.Summary, error)
	SyncProducts(ctx context.Context, req catalogsync.Request) (*export.Report, error)
	SyncInventory(ctx context.Context, req catalogsync.Request) (*export.Report, error)
	ManualSync(ctx context.Context, req catalogsync.Request, direction string) (*catalogsync.ManualResult, error)
	EnqueueSync(ctx context.Context, requestType string, req catalogsync.Request) error
}

type CloverHandler struct {
	service CloverService
	logger  *logger.Logger
	config  *config.Config
}

func NewCloverHandler(service CloverService, logger *logger.Logger, config *config.Config) *CloverHandler {
	return &CloverHandler{
		service: service,
		logger:  logger,
		config:  config,
	}
}

type syncBody struct {
	SessionID  string `json:"session_id"`
	LocationID string `json:"location_id"`
	Direction  string `json:"direction"`
}

// bindSync reads an optional JSON body; query parameters fill anything it left out.
func bindSync(c *gin.Context) (*syncBody, error) {
	var body syncBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			return nil, err
		}
	}
	if body.SessionID == "" {
		body.SessionID = c.Query("session_id")
	}
	if body.LocationID == "" {
		body.LocationID = c.Query("location_id")
	}
	if body.Direction == "" {
		body.Direction = c.Query("direction")
	}
	return &body, nil
}

func (b *syncBody) request(c *gin.Context) catalogsync.Request {
	return catalogsync.Request{
		UserID:     middleware.UserID(c),
		SessionID:  b.SessionID,
		LocationID: b.LocationID,
	}
}

func (h *CloverHandler) fail(c *gin.Context, err error) {
	c.Error(toAppError(err))
}

// AuthorizeURL returns the Clover consent URL for the caller.
func (h *CloverHandler) AuthorizeURL(c *gin.Context) {
	authURL, err := h.service.AuthorizationURL(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": authURL})
}

// OAuthCallback completes the handshake and sends the browser back to the
// dashboard with a single-use sync session.
func (h *CloverHandler) OAuthCallback(c *gin.Context) {
	if remoteErr := c.Query("error"); remoteErr != "" {
		msg := remoteErr
		if desc := c.Query("error_description"); desc != "" {
			msg = desc
		}
		h.logger.Warn("Clover authorization denied", zap.String("error", remoteErr))
		c.Error(apperrors.BadRequest(msg, nil))
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.Error(apperrors.BadRequest("Missing required parameters", nil))
		return
	}

	conn, err := h.service.CompleteOAuth(c.Request.Context(), state, code, c.Query("merchant_id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	q := url.Values{}
	q.Set("clover", "connected")
	q.Set("session", conn.SessionID)
	c.Redirect(http.StatusFound, h.config.FrontendURL+"/dashboard?"+q.Encode())
}

func (h *CloverHandler) ConnectionStatus(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *CloverHandler) MerchantInfo(c *gin.Context) {
	merchant, err := h.service.MerchantInfo(c.Request.Context(), middleware.UserID(c), c.Query("session_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": merchant})
}

// Import pulls the Clover catalog into a location.
func (h *CloverHandler) Import(c *gin.Context) {
	body, err := bindSync(c)
	if err != nil {
		c.Error(apperrors.BadRequest(err.Error(), err))
		return
	}

	if c.Query("async") == "true" {
		h.enqueue(c, events.RequestImportCatalog, body.request(c))
		return
	}

	summary, err := h.service.Import(c.Request.Context(), body.request(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Import completed",
		"imported": summary.Imported,
		"skipped":  summary.Skipped,
		"total":    summary.Total,
	})
}

func (h *CloverHandler) SyncProducts(c *gin.Context) {
	body, err := bindSync(c)
	if err != nil {
		c.Error(apperrors.BadRequest(err.Error(), err))
		return
	}

	if c.Query("async") == "true" {
		h.enqueue(c, events.RequestSyncProducts, body.request(c))
		return
	}

	report, err := h.service.SyncProducts(c.Request.Context(), body.request(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reportResponse(report))
}

func (h *CloverHandler) SyncInventory(c *gin.Context) {
	body, err := bindSync(c)
	if err != nil {
		c.Error(apperrors.BadRequest(err.Error(), err))
		return
	}

	if c.Query("async") == "true" {
		h.enqueue(c, events.RequestSyncInventory, body.request(c))
		return
	}

	report, err := h.service.SyncInventory(c.Request.Context(), body.request(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reportResponse(report))
}

// ManualSync runs an import or a full export on demand.
func (h *CloverHandler) ManualSync(c *gin.Context) {
	body, err := bindSync(c)
	if err != nil {
		c.Error(apperrors.BadRequest(err.Error(), err))
		return
	}

	result, err := h.service.ManualSync(c.Request.Context(), body.request(c), body.Direction)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// SyncStatus lists the caller's recent runs, newest first.
func (h *CloverHandler) SyncStatus(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.service.History(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		h.fail(c, err)
		return
	}

	status, err := h.service.Status(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connection": status,
		"runs":       runs,
	})
}

func (h *CloverHandler) Disconnect(c *gin.Context) {
	if err := h.service.Disconnect(c.Request.Context(), middleware.UserID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Clover account disconnected"})
}

func (h *CloverHandler) enqueue(c *gin.Context, requestType string, req catalogsync.Request) {
	if err := h.service.EnqueueSync(c.Request.Context(), requestType, req); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Sync queued", "type": requestType})
}

func reportResponse(report *export.Report) gin.H {
	return gin.H{
		"message":   report.Message(),
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"total":     report.Total,
		"results":   report.Results,
	}
}
