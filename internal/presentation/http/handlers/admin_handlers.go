package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/politifan/school-peaky-minds/internal/application/services"
	"github.com/politifan/school-peaky-minds/internal/domain/query"
	"github.com/politifan/school-peaky-minds/internal/domain/records"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
)

// AdminHandlers serves the admin panel API.
type AdminHandlers struct {
	adminService  *services.AdminService
	recordService *services.RecordService
	accessService *services.AccessService
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
}

// NewAdminHandlers creates admin handlers with injected dependencies
func NewAdminHandlers(adminService *services.AdminService, recordService *services.RecordService, accessService *services.AccessService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AdminHandlers {
	return &AdminHandlers{
		adminService:  adminService,
		recordService: recordService,
		accessService: accessService,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

// GetOverview handles GET /admin/api/overview
func (h *AdminHandlers) GetOverview(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("get_admin_overview", "admin")
	defer marker.Complete()
	h.logger.Records().Debug("Received admin overview request", "method", c.Request.Method, "path", c.Request.URL.Path)

	overview, err := h.adminService.Overview(c.Request.Context(), query.ParseParams(c.Query))
	if err != nil {
		h.logger.Records().Error("Failed to build admin overview", "error", err.Error(), "duration", time.Since(start))
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.logger.Records().Info("Admin overview built", "view", overview.View, "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, overview)
}

// mutation runs one record update and maps the outcome to a response.
func (h *AdminHandlers) mutation(c *gin.Context, op string, kind records.Kind, apply func(id string) (bool, error)) {
	start := time.Now()
	marker := h.perfTracker.StartOperation(op, string(kind))
	defer marker.Complete()

	id := strings.TrimSpace(c.PostForm("file"))
	h.logger.Records().Debug("Received record update", "operation", op, "kind", kind, "id", id)

	ok, err := apply(id)
	switch {
	case errors.Is(err, records.ErrInvalidID):
		marker.SetSuccess(false)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file"})
		return
	case errors.Is(err, records.ErrUnknownStatus):
		marker.SetSuccess(false)
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	case err != nil:
		h.logger.Records().Error("Record update failed", "operation", op, "id", id, "error", err.Error(), "duration", time.Since(start))
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	case !ok:
		marker.SetSuccess(false)
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}

	h.logger.Records().Info("Record updated", "operation", op, "id", id, "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"success": true, "file": id})
}

// PostLeadStatus handles POST /admin/leads/status
func (h *AdminHandlers) PostLeadStatus(c *gin.Context) {
	h.mutation(c, "admin_lead_status", records.KindLead, func(id string) (bool, error) {
		return h.recordService.SetStatus(c.Request.Context(), records.KindLead, id, c.PostForm("status"))
	})
}

// PostLeadMeta handles POST /admin/leads/meta
func (h *AdminHandlers) PostLeadMeta(c *gin.Context) {
	h.mutation(c, "admin_lead_meta", records.KindLead, func(id string) (bool, error) {
		return h.recordService.SetLeadMeta(c.Request.Context(), id, c.PostForm("tags"), c.PostForm("note"), c.PostForm("next_contact"))
	})
}

// PostAgreementStatus handles POST /admin/agreements/status
func (h *AdminHandlers) PostAgreementStatus(c *gin.Context) {
	h.mutation(c, "admin_agreement_status", records.KindAgreement, func(id string) (bool, error) {
		return h.recordService.SetStatus(c.Request.Context(), records.KindAgreement, id, c.PostForm("status"))
	})
}

// PostAgreementAmount handles POST /admin/agreements/amount
func (h *AdminHandlers) PostAgreementAmount(c *gin.Context) {
	h.mutation(c, "admin_agreement_amount", records.KindAgreement, func(id string) (bool, error) {
		return h.recordService.SetAgreementAmount(c.Request.Context(), id, c.PostForm("amount"))
	})
}

// PostWhitelist handles POST /admin/whitelist - replaces the bot access list.
// Ids come in the "whitelist" field, or "ids" from older clients.
func (h *AdminHandlers) PostWhitelist(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("admin_whitelist_replace", "whitelist")
	defer marker.Complete()

	blob, ok := c.GetPostForm("whitelist")
	if !ok {
		blob = c.PostForm("ids")
	}
	list, err := h.accessService.Replace(c.Request.Context(), blob)
	if err != nil {
		h.logger.Auth().Error("Failed to replace whitelist", "error", err.Error(), "duration", time.Since(start))
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"success": true, "ids": list})
}

// PostWhitelistRemove handles POST /admin/whitelist/remove
func (h *AdminHandlers) PostWhitelistRemove(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("admin_whitelist_remove", "whitelist")
	defer marker.Complete()

	id, err := strconv.ParseInt(strings.TrimSpace(c.PostForm("id")), 10, 64)
	if err != nil {
		marker.SetSuccess(false)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	list, err := h.accessService.Remove(c.Request.Context(), id)
	if err != nil {
		h.logger.Auth().Error("Failed to update whitelist", "id", id, "error", err.Error(), "duration", time.Since(start))
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"success": true, "ids": list})
}
