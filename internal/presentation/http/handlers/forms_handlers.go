// Package handlers provides the HTTP request handlers of the lead desk.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/politifan/school-peaky-minds/internal/application/services"
	"github.com/politifan/school-peaky-minds/internal/domain/records"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
	"github.com/politifan/school-peaky-minds/internal/presentation/http/middleware"
)

// FormHandlers accepts the public lead and enrollment forms.
type FormHandlers struct {
	recordService   *services.RecordService
	authService     *services.AuthService
	contractService *services.ContractService
	logger          *logging.ChanneledLogger
	perfTracker     *performance.Tracker
}

// NewFormHandlers creates form handlers with injected dependencies
func NewFormHandlers(recordService *services.RecordService, authService *services.AuthService, contractService *services.ContractService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *FormHandlers {
	return &FormHandlers{
		recordService:   recordService,
		authService:     authService,
		contractService: contractService,
		logger:          logger,
		perfTracker:     perfTracker,
	}
}

func (h *FormHandlers) snapshot(c *gin.Context) *records.UserSnapshot {
	s, ok := middleware.GetSession(c)
	if !ok {
		return nil
	}
	return h.authService.Account(c.Request.Context(), s).Snapshot()
}

// PostApply handles POST /apply - the contact form on the landing pages
func (h *FormHandlers) PostApply(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("post_apply_request", "forms")
	defer marker.Complete()
	h.logger.Records().Debug("Received apply request", "method", c.Request.Method, "path", c.Request.URL.Path)

	form := services.LeadForm{
		Name:    c.PostForm("name"),
		Contact: c.PostForm("phone"),
		Course:  c.PostForm("course"),
		Page:    c.GetHeader("Referer"),
		User:    h.snapshot(c),
	}
	lead, err := h.recordService.SubmitLead(c.Request.Context(), form)
	if err != nil {
		h.logger.Records().Error("Failed to store lead", "error", err.Error(), "duration", time.Since(start))
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save application"})
		return
	}

	h.logger.Records().Info("Lead accepted", "id", lead.File(), "course", lead.String(records.FieldCourse), "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"id":      lead.File(),
		"course":  lead.String(records.FieldCourse),
	})
}

// PostEnroll handles POST /enroll - course purchase by a signed-in visitor
func (h *FormHandlers) PostEnroll(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("post_enroll_request", "forms")
	defer marker.Complete()
	h.logger.Records().Debug("Received enroll request", "method", c.Request.Method, "path", c.Request.URL.Path)

	snapshot := h.snapshot(c)
	if snapshot == nil {
		marker.SetSuccess(false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "login": "/login"})
		return
	}

	form := services.AgreementForm{
		Course:    c.PostForm("course"),
		FullName:  c.PostForm("full_name"),
		Phone:     c.PostForm("phone"),
		Email:     c.PostForm("email"),
		Telegram:  c.PostForm("telegram"),
		Agreement: c.PostForm("agreement"),
		Consent:   c.PostForm("consent"),
		User:      snapshot,
	}
	agreement, err := h.recordService.SubmitAgreement(c.Request.Context(), form)
	if err != nil {
		h.logger.Records().Error("Failed to store agreement", "userId", snapshot.ID, "error", err.Error(), "duration", time.Since(start))
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save enrollment"})
		return
	}

	h.logger.Records().Info("Agreement accepted", "id", agreement.File(), "userId", snapshot.ID, "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"id":          agreement.File(),
		"course":      agreement.String(records.FieldCourse),
		"contractUrl": h.contractService.URL(agreement.String(records.FieldContractToken)),
	})
}
