// Package handler exposes the lender HTTP endpoints.
package handler

import (
	"net/http"

	"lending_crm_backend/internal/lenders/service"
	"lending_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts read endpoints on the protected group and the MIS
// upload plus stats recompute on the admin group.
func (h *Handler) RegisterRoutes(rg, admin *gin.RouterGroup, uploadLimit gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.GET("/:code", h.Get)
	rg.GET("/:code/eligibility", h.CheckEligibility)
	rg.GET("/:code/stats", h.Stats)
	admin.POST("/:code/mis", uploadLimit, h.UploadMIS)
	admin.POST("/:code/stats/recompute", h.RecomputeStats)
}

func (h *Handler) List(c *gin.Context) {
	lenders, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"lenders": lenders})
}

func (h *Handler) Get(c *gin.Context) {
	lender, err := h.svc.GetByCode(c.Request.Context(), c.Param("code"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lender)
}

func (h *Handler) CheckEligibility(c *gin.Context) {
	pinCode := c.Query("pincode")
	if pinCode == "" {
		httpkit.Error(c, http.StatusBadRequest, "pincode query parameter is required", nil)
		return
	}

	eligible, err := h.svc.CheckEligibility(c.Request.Context(), c.Param("code"), pinCode)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"pincode": pinCode, "eligible": eligible})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), c.Param("code"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

func (h *Handler) UploadMIS(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "missing file upload", nil)
		return
	}
	defer file.Close()

	summary, err := h.svc.ImportMIS(c.Request.Context(), c.Param("code"), file)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, summary)
}

func (h *Handler) RecomputeStats(c *gin.Context) {
	stats, err := h.svc.RecomputeStatsByCode(c.Request.Context(), c.Param("code"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}
