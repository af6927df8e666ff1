package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"partner-portal/internal/duplicates"
	"partner-portal/internal/leads"
	"partner-portal/internal/metrics"
	"partner-portal/internal/middleware"
	"partner-portal/internal/models"
	"partner-portal/internal/sheets"
	"partner-portal/internal/stages"
	"partner-portal/internal/transformer"
	"partner-portal/internal/users"
)

const (
	serviceName = "partner-portal"

	credentialsHint = "Set GOOGLE_SHEETS_ID, GOOGLE_SERVICE_ACCOUNT_EMAIL and GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY_B64 (or GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY)."
)

type Handler struct {
	leads       *leads.Service
	users       *users.Directory
	transformer *transformer.Transformer
	calculator  *metrics.Calculator
	logger      *logrus.Logger
	now         func() time.Time
}

func New(leadService *leads.Service, directory *users.Directory, transformer *transformer.Transformer,
	calculator *metrics.Calculator, logger *logrus.Logger) *Handler {
	return &Handler{
		leads:       leadService,
		users:       directory,
		transformer: transformer,
		calculator:  calculator,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the reference time source.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) Register(router gin.IRouter) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/readyz", h.ReadinessCheck)

	api := router.Group("/api")
	api.GET("/metrics", h.GetMetrics)
	api.GET("/leads", h.GetLeads)
	api.GET("/leads/stages", h.GetStages)
	api.GET("/duplicates", h.GetDuplicates)
	api.GET("/quality", h.GetDataQualityReport)

	api.GET("/users/allowed", h.GetAllowed)
	api.GET("/users/partners", h.GetPartners)
	api.POST("/users/log", h.LogSignIn)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": h.now().Format(time.RFC3339),
		"service":   serviceName,
	})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	if err := h.leads.Probe(c.Request.Context()); err != nil {
		h.logger.WithError(err).Warn("Leads tab is not readable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *Handler) GetMetrics(c *gin.Context) {
	now := h.now()
	ds, ok := h.load(c, now)
	if !ok {
		return
	}

	dups := duplicates.Detect(ds.Leads)
	payload := h.calculator.Build(ds.Leads, dups, ds.B2BLeads, now)

	h.logger.WithFields(logrus.Fields{
		"request_id": middleware.RequestIDFrom(c),
		"leads":      payload.Summary.TotalLeads,
		"duplicates": len(dups),
	}).Debug("Metrics computed")

	c.JSON(http.StatusOK, payload)
}

func (h *Handler) GetLeads(c *gin.Context) {
	ds, ok := h.load(c, h.now())
	if !ok {
		return
	}

	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	types := duplicates.TypesByLead(duplicates.Detect(ds.Leads))
	views := make([]models.LeadView, 0, len(ds.Leads))
	for _, lead := range ds.Leads {
		views = append(views, models.LeadView{
			NormalizedLead: lead,
			DuplicateType:  duplicateType(lead, types),
		})
	}

	total := len(views)
	start, end := pageBounds(total, limit, offset)
	c.JSON(http.StatusOK, gin.H{
		"leads":   views[start:end],
		"total":   total,
		"hasMore": end < total,
	})
}

// duplicateType prefers the type of the last pair the lead takes part in, then its own flags.
func duplicateType(lead models.NormalizedLead, types map[string]models.DuplicateType) *models.DuplicateType {
	if t, ok := types[lead.ID]; ok {
		return &t
	}
	var t models.DuplicateType
	switch {
	case lead.DuplicateOther:
		t = models.OtherPartners
	case lead.DuplicateSame:
		t = models.SamePartner
	default:
		return nil
	}
	return &t
}

func (h *Handler) GetStages(c *gin.Context) {
	ds, ok := h.load(c, h.now())
	if !ok {
		return
	}

	selected := ds.Leads
	if isTruthy(c.Query("active_only")) {
		selected = make([]models.NormalizedLead, 0, len(ds.Leads))
		for _, lead := range ds.Leads {
			if !metrics.IsLost(lead) {
				selected = append(selected, lead)
			}
		}
	}

	c.JSON(http.StatusOK, stages.AggregateLeads(selected).Payload())
}

func (h *Handler) GetDuplicates(c *gin.Context) {
	ds, ok := h.load(c, h.now())
	if !ok {
		return
	}

	var dups []models.LeadDuplicate
	if len(ds.B2BLeads) > 0 {
		dups = duplicates.FromFlags(ds.B2BLeads)
	} else {
		dups = duplicates.Detect(ds.Leads)
	}
	if dups == nil {
		dups = []models.LeadDuplicate{}
	}

	c.JSON(http.StatusOK, gin.H{"duplicates": dups})
}

func (h *Handler) GetDataQualityReport(c *gin.Context) {
	now := h.now()
	ds, ok := h.load(c, now)
	if !ok {
		return
	}

	report := h.transformer.GenerateQualityReport(ds.Leads, now)
	if len(report.Summary.CommonIssues) > 0 {
		h.logger.WithField("common_issues", report.Summary.CommonIssues).Warn("Data quality issues detected")
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) GetAllowed(c *gin.Context) {
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"allowed": false})
		return
	}

	user, found, err := h.users.Lookup(c.Request.Context(), email)
	if err != nil {
		h.upstreamError(c, err, "Failed to read users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"allowed": found,
		"role":    nullable(user.Role),
		"partner": nullable(user.Partner),
	})
}

func (h *Handler) GetPartners(c *gin.Context) {
	partners, err := h.users.Partners(c.Request.Context())
	if err != nil {
		h.upstreamError(c, err, "Failed to read partners")
		return
	}
	c.JSON(http.StatusOK, gin.H{"partners": partners})
}

type signInRequest struct {
	Email string `json:"email" binding:"required"`
	User  string `json:"user"`
}

func (h *Handler) LogSignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing email."})
		return
	}

	err := h.users.LogSignIn(c.Request.Context(), req.Email, req.User, h.now())
	if errors.Is(err, users.ErrNotAuthorized) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized."})
		return
	}
	if err != nil {
		h.upstreamError(c, err, "Failed to log sign in")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// load fetches the dataset for the request, narrowed to partner_name when given. On failure
// the 503 response is already written.
func (h *Handler) load(c *gin.Context, now time.Time) (leads.Dataset, bool) {
	ds, err := h.leads.Load(c.Request.Context(), now)
	if err != nil {
		h.upstreamError(c, err, "Failed to load leads")
		return leads.Dataset{}, false
	}
	return ds.ForPartner(c.Query("partner_name")), true
}

func (h *Handler) upstreamError(c *gin.Context, err error, message string) {
	h.logger.WithFields(logrus.Fields{
		"request_id": middleware.RequestIDFrom(c),
		"path":       c.Request.URL.Path,
	}).WithError(err).Error(message)

	body := gin.H{"error": err.Error()}
	if errors.Is(err, sheets.ErrMissingCredentials) {
		body["hint"] = credentialsHint
	}
	_ = c.Error(err)
	c.JSON(http.StatusServiceUnavailable, body)
}

// pagination reads optional limit and offset. A zero limit means no limit.
func pagination(c *gin.Context) (int, int, bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return 0, 0, false
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return 0, 0, false
	}
	return limit, offset, true
}

func pageBounds(total, limit, offset int) (int, int) {
	start := offset
	if start > total {
		start = total
	}
	end := total
	if limit > 0 && limit < total-start {
		end = start + limit
	}
	return start, end
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
