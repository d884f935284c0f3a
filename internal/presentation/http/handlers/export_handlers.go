package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/politifan/school-peaky-minds/internal/domain/query"
	"github.com/politifan/school-peaky-minds/internal/domain/records"
)

const csvContentType = "text/csv; charset=utf-8"

func (h *AdminHandlers) csvHeaders(c *gin.Context, filename string) {
	c.Header("Content-Type", csvContentType)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)
}

func (h *AdminHandlers) exportRecords(c *gin.Context, kind records.Kind, filename string) {
	marker := h.perfTracker.StartOperation("admin_export", string(kind))
	defer marker.Complete()

	h.csvHeaders(c, filename)
	if err := h.adminService.ExportRecords(c.Request.Context(), kind, query.ParseParams(c.Query), c.Writer); err != nil {
		// Headers are already out; the truncated body is all we can signal.
		h.logger.Records().Error("CSV export failed", "kind", kind, "error", err.Error())
		marker.SetError(err)
		return
	}
	marker.SetSuccess(true)
}

// GetLeadsCSV handles GET /admin/export/leads.csv
func (h *AdminHandlers) GetLeadsCSV(c *gin.Context) {
	h.exportRecords(c, records.KindLead, "leads.csv")
}

// GetAgreementsCSV handles GET /admin/export/agreements.csv
func (h *AdminHandlers) GetAgreementsCSV(c *gin.Context) {
	h.exportRecords(c, records.KindAgreement, "agreements.csv")
}

// GetUsersCSV handles GET /admin/export/users.csv
func (h *AdminHandlers) GetUsersCSV(c *gin.Context) {
	marker := h.perfTracker.StartOperation("admin_export", "users")
	defer marker.Complete()

	h.csvHeaders(c, "users.csv")
	if err := h.adminService.ExportUsers(c.Request.Context(), c.Writer); err != nil {
		h.logger.Records().Error("CSV export failed", "kind", "users", "error", err.Error())
		marker.SetError(err)
		return
	}
	marker.SetSuccess(true)
}
