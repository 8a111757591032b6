package http

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobpal/jobpal-server/internal/application/port"
	"github.com/jobpal/jobpal-server/internal/application/service"
	appworkflow "github.com/jobpal/jobpal-server/internal/application/workflow"
	"github.com/jobpal/jobpal-server/internal/auth"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
	domainwf "github.com/jobpal/jobpal-server/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	authService         service.AuthService
	jobService          service.JobSearchService
	certificateService  service.CertificateService
	notificationService service.NotificationService
	exportService       service.ExportService
	engine              appworkflow.Engine
	addressLookup       port.AddressLookup
	logger              Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	authService service.AuthService,
	jobService service.JobSearchService,
	certificateService service.CertificateService,
	notificationService service.NotificationService,
	exportService service.ExportService,
	engine appworkflow.Engine,
	addressLookup port.AddressLookup,
	logger Logger,
) *Handlers {
	return &Handlers{
		authService:         authService,
		jobService:          jobService,
		certificateService:  certificateService,
		notificationService: notificationService,
		exportService:       exportService,
		engine:              engine,
		addressLookup:       addressLookup,
		logger:              logger,
	}
}

// Response is the portal's JSON envelope. ResponseCode mirrors the HTTP
// status as a string; Message carries the failure reason verbatim.
type Response struct {
	ResponseCode string      `json:"responseCode"`
	Message      string      `json:"message,omitempty"`
	Body         interface{} `json:"body,omitempty"`
}

func ok(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, Response{ResponseCode: "200", Body: body})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		ResponseCode: strconv.Itoa(status),
		Message:      message,
	})
}

// failErr translates a service or engine error to an HTTP status.
func (h *Handlers) failErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrNoSession):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, sql.ErrNoRows):
		status = http.StatusNotFound
	case errors.Is(err, appworkflow.ErrNotConfirmed),
		errors.Is(err, appworkflow.ErrStaleState),
		errors.Is(err, domainwf.ErrInvalidTransition),
		errors.Is(err, domainwf.ErrGuardFailed),
		errors.Is(err, service.ErrNotEditable),
		errors.Is(err, service.ErrNotReportable):
		status = http.StatusConflict
	case errors.Is(err, service.ErrRatesUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, entity.ErrTimeOrder),
		errors.Is(err, entity.ErrTardyTimeNeeded),
		errors.Is(err, entity.ErrTardyTimeBounds),
		errors.Is(err, entity.ErrTardyTimeExtra),
		errors.Is(err, entity.ErrLineItemCount),
		errors.Is(err, entity.ErrCopiesOutOfRange),
		errors.Is(err, entity.ErrNoCopies),
		errors.Is(err, entity.ErrMailingRequired),
		errors.Is(err, entity.ErrInvalidMedia),
		errors.Is(err, service.ErrZeroFee):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err)
		fail(c, status, "internal error")
		return
	}
	fail(c, status, err.Error())
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	ok(c, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// LoginRequest carries the portal credentials
type LoginRequest struct {
	UserID   string `json:"userId" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token and account summary
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Role     string `json:"role"`
}

// Login handles POST /api/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "userId and password are required")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.UserID, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadCredentials):
			fail(c, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrAccountLocked):
			fail(c, http.StatusForbidden, "account temporarily locked")
		default:
			h.failErr(c, err)
		}
		return
	}

	ok(c, LoginResponse{
		Token:    result.Token,
		UserID:   result.User.UserID,
		UserName: result.User.Name,
		Role:     result.User.Role.String(),
	})
}

// AlertResponse is one pending-action row
type AlertResponse struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	EntityID  string `json:"entityId"`
	ReNotify  bool   `json:"reNotify"`
	CreatedAt string `json:"createdAt"`
}

// ListAlerts handles GET /api/alerts
func (h *Handlers) ListAlerts(c *gin.Context) {
	notifications, err := h.notificationService.ListAlerts(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.failErr(c, err)
		return
	}

	alerts := make([]AlertResponse, 0, len(notifications))
	for _, n := range notifications {
		alerts = append(alerts, AlertResponse{
			ID:        n.ID,
			Kind:      n.Kind,
			EntityID:  n.EntityID,
			ReNotify:  n.ReNotifyFlag,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		})
	}
	ok(c, alerts)
}

// CountAlerts handles GET /api/alerts/count
func (h *Handlers) CountAlerts(c *gin.Context) {
	count, err := h.notificationService.CountAlerts(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"count": count})
}

// LookupAddress handles GET /api/address?zipcode=NNNNNNN
func (h *Handlers) LookupAddress(c *gin.Context) {
	zipCode := c.Query("zipcode")
	if zipCode == "" {
		fail(c, http.StatusBadRequest, "zipcode is required")
		return
	}

	address, err := h.addressLookup.Lookup(c.Request.Context(), zipCode)
	if err != nil {
		h.logger.Error("Address lookup failed", "zipcode", zipCode, "error", err)
		fail(c, http.StatusNotFound, "address not found")
		return
	}
	ok(c, address)
}

// ExportActivityBook handles GET /api/export/activities
func (h *Handlers) ExportActivityBook(c *gin.Context) {
	book, err := h.exportService.ExportActivityBook(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.failErr(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="activity_statistics.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", book)
}
