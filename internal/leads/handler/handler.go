// Package handler exposes the leads HTTP endpoints.
package handler

import (
	"net/http"
	"strings"

	"lending_crm_backend/internal/leads/service"
	"lending_crm_backend/internal/leads/transport"
	"lending_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const msgInvalidRequest = "invalid request"

// templateHeader is the column set offered for download. Uploads may use any
// subset plus alias spellings of the phone column.
var templateHeader = []string{
	"phone_number", "first_name", "last_name", "email", "pan_number",
	"date_of_birth", "gender", "city", "state", "pin_code", "profession",
	"monthly_income", "bureau_score", "income_mode", "consent_taken", "status",
}

type Handler struct {
	svc     *service.Service
	staging *service.Staging
}

func New(svc *service.Service, staging *service.Staging) *Handler {
	return &Handler{svc: svc, staging: staging}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, uploadLimit gin.HandlerFunc) {
	rg.POST("", h.Upsert)
	rg.GET("/by-phone/:phone", h.GetByPhone)
	rg.GET("/import/template", h.DownloadTemplate)
	rg.POST("/import", uploadLimit, h.Import)
	rg.POST("/import/stage", uploadLimit, h.Stage)
	rg.POST("/import/stage/:stagingId/confirm", h.ConfirmStaged)
	rg.DELETE("/import/stage/:stagingId", h.CancelStaged)
}

// Upsert creates or updates the lead addressed by the phone number in the
// body. Responds 201 on create and 200 on update.
func (h *Handler) Upsert(c *gin.Context) {
	var req transport.UpsertLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, created, err := h.svc.Upsert(c.Request.Context(), req, service.SourceAPI)
	if httpkit.HandleError(c, err) {
		return
	}
	if created {
		httpkit.Created(c, lead)
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) GetByPhone(c *gin.Context) {
	lead, err := h.svc.GetByPhone(c.Request.Context(), c.Param("phone"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// Import ingests a lead CSV in one shot, without the staging review step.
func (h *Handler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "missing file upload", nil)
		return
	}
	defer file.Close()

	summary, err := h.svc.ImportCSV(c.Request.Context(), file, service.SourceLeadCSV)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, summary)
}

// Stage parks an uploaded CSV for review. The returned staging ID is used
// to confirm or cancel the import.
func (h *Handler) Stage(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "missing file upload", nil)
		return
	}
	defer file.Close()

	staged, err := h.staging.Stage(c.Request.Context(), header.Filename, file)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, staged)
}

func (h *Handler) ConfirmStaged(c *gin.Context) {
	summary, err := h.staging.Confirm(c.Request.Context(), c.Param("stagingId"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, summary)
}

func (h *Handler) CancelStaged(c *gin.Context) {
	if httpkit.HandleError(c, h.staging.Cancel(c.Request.Context(), c.Param("stagingId"))) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DownloadTemplate(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="lead_import_template.csv"`)
	c.Data(http.StatusOK, "text/csv", []byte(strings.Join(templateHeader, ",")+"\n"))
}
