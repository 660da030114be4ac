package exports

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"lending_crm_backend/internal/leads/domain"
	"lending_crm_backend/platform/apperr"
	"lending_crm_backend/platform/httpkit"
	"lending_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo *Repository
	log  *logger.Logger
}

func NewHandler(repo *Repository, log *logger.Logger) *Handler {
	return &Handler{repo: repo, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/leads.csv", h.ExportLeads)
}

// ExportLeads streams the filtered lead set as a CSV download. Filters
// come from query parameters; all are optional.
func (h *Handler) ExportLeads(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("leads_export_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write(exportHeader); err != nil {
		h.log.Error("lead export: writing header failed", "error", err)
		return
	}

	count := 0
	err = h.repo.StreamLeads(c.Request.Context(), filter, func(lead domain.Lead) error {
		count++
		return writer.Write(leadToRecord(lead))
	})
	if err != nil {
		// Headers are already on the wire; truncate and log.
		h.log.Error("lead export: streaming failed", "error", err, "rows_written", count)
		return
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		h.log.Error("lead export: flush failed", "error", err)
		return
	}
	h.log.Info("lead export completed", "rows", count, "filename", filename)
}

func parseFilter(c *gin.Context) (Filter, error) {
	var f Filter

	if status := c.Query("status"); status != "" {
		if !domain.ValidStatus(status) {
			return f, apperr.Validationf("invalid status filter: %s", status)
		}
		f.Status = status
	}
	f.City = c.Query("city")

	var err error
	if f.MinBureauScore, err = intParam(c, "min_bureau_score"); err != nil {
		return f, err
	}
	if f.MaxBureauScore, err = intParam(c, "max_bureau_score"); err != nil {
		return f, err
	}
	if f.MinBureauScore != nil && f.MaxBureauScore != nil && *f.MinBureauScore > *f.MaxBureauScore {
		return f, apperr.Validation("min_bureau_score cannot exceed max_bureau_score")
	}

	if f.CreatedFrom, err = dateParam(c, "created_from"); err != nil {
		return f, err
	}
	if f.CreatedTo, err = dateParam(c, "created_to"); err != nil {
		return f, err
	}
	if f.CreatedTo != nil {
		// Inclusive end date: push the bound to the following midnight.
		end := f.CreatedTo.AddDate(0, 0, 1)
		f.CreatedTo = &end
	}
	return f, nil
}

func intParam(c *gin.Context, name string) (*int, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperr.Validationf("%s must be an integer, got: %s", name, raw)
	}
	return &v, nil
}

func dateParam(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperr.Validationf("%s must be a date in YYYY-MM-DD form, got: %s", name, raw)
	}
	return &t, nil
}
