// Package handler exposes the bulk dedupe upload endpoint and the UTM QR
// renderer.
package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"lending_crm_backend/internal/adapters/storage"
	"lending_crm_backend/internal/bulkdedupe/service"
	"lending_crm_backend/internal/email"
	"lending_crm_backend/internal/events"
	"lending_crm_backend/platform/httpkit"
	"lending_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const maxResultBytes = 50 << 20 // 50 MiB

type Handler struct {
	pipeline *service.Pipeline
	archiver *storage.Archiver // nil when archiving is disabled
	mailer   email.Sender      // nil when summary mail is disabled
	bus      events.Bus
	log      *logger.Logger
}

func New(pipeline *service.Pipeline, archiver *storage.Archiver, mailer email.Sender, bus events.Bus, log *logger.Logger) *Handler {
	return &Handler{pipeline: pipeline, archiver: archiver, mailer: mailer, bus: bus, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, uploadLimit gin.HandlerFunc) {
	rg.POST("/runs", uploadLimit, h.Run)
	rg.GET("/runs/:runId/archive", h.FetchArchive)
	rg.GET("/utm-qr", h.UTMQR)
}

// Run stages the uploaded CSV in a temp file, processes it against the
// requested lenders and streams the result CSV back. Temp files are removed
// on every exit path. Archiving and the summary mail happen after the
// response, fire-and-forget with logged failures.
func (h *Handler) Run(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "missing file upload", nil)
		return
	}
	defer file.Close()

	lenders := parseLenders(c.PostForm("lenders"))
	if len(lenders) == 0 {
		httpkit.Error(c, http.StatusBadRequest, "at least one lender is required", nil)
		return
	}
	checkDedupe := c.PostForm("check_dedupe") == "true"
	sendLeads := c.PostForm("send_leads") == "true"

	runID := uuid.NewString()
	log := h.log.WithRunID(runID)

	input, err := stageTempFile(file)
	if err != nil {
		log.Error("failed to stage upload", "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "failed to stage upload", nil)
		return
	}
	defer removeTempFile(input, log)

	output, err := os.CreateTemp("", "bulk_dedupe_result_*.csv")
	if err != nil {
		log.Error("failed to create result file", "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "failed to stage result", nil)
		return
	}
	defer removeTempFile(output, log)

	summary, err := h.pipeline.Process(c.Request.Context(), input, output, lenders, checkDedupe, sendLeads)
	if httpkit.HandleError(c, err) {
		return
	}
	log.BulkRun(runID, summary.Rows, len(lenders), summary.Results)

	result, err := readBack(output)
	if err != nil {
		log.Error("failed to read result file", "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "failed to read result", nil)
		return
	}

	go h.finishRun(context.WithoutCancel(c.Request.Context()), runID, lenders, summary, result)

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="dedupe_results_%s.csv"`, runID))
	c.Header("X-Run-ID", runID)
	c.Data(http.StatusOK, "text/csv", result)
}

// finishRun archives the result, mails the summary and publishes the
// completion event. Failures are logged, never surfaced to the client.
func (h *Handler) finishRun(ctx context.Context, runID string, lenders []string, summary service.RunSummary, result []byte) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	log := h.log.WithRunID(runID)

	archiveKey := ""
	if h.archiver != nil {
		key, err := h.archiver.ArchiveRun(ctx, runID, bytes.NewReader(result), int64(len(result)))
		if err != nil {
			log.Error("failed to archive bulk run result", "error", err)
		} else {
			archiveKey = key
		}
	}

	if h.mailer != nil {
		err := h.mailer.SendBulkRunSummary(ctx, email.RunSummary{
			RunID:      runID,
			Lenders:    lenders,
			Rows:       summary.Rows,
			Results:    summary.Results,
			ArchiveKey: archiveKey,
			FinishedAt: time.Now(),
		})
		if err != nil {
			log.Error("failed to send bulk run summary mail", "error", err)
		}
	}

	h.bus.Publish(ctx, events.BulkRunCompleted{
		BaseEvent:  events.NewBaseEvent(),
		RunID:      runID,
		Lenders:    lenders,
		RowCount:   summary.Rows,
		ResultPath: archiveKey,
	})
}

// FetchArchive streams an archived run result back out of object storage.
// The run ID comes from the X-Run-ID header of the original upload; the
// optional date query selects the archive day and defaults to today.
func (h *Handler) FetchArchive(c *gin.Context) {
	runID := c.Param("runId")
	if _, err := uuid.Parse(runID); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "runId must be a UUID", nil)
		return
	}

	archivedAt := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
			return
		}
		archivedAt = parsed
	}

	if h.archiver == nil {
		httpkit.Error(c, http.StatusNotFound, "result archiving is not enabled", nil)
		return
	}

	rc, err := h.archiver.Fetch(c.Request.Context(), storage.RunKey(runID, archivedAt))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpkit.Error(c, http.StatusNotFound, "archived result not found", nil)
			return
		}
		h.log.Error("failed to fetch archived result", "run_id", runID, "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "failed to fetch archived result", nil)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="dedupe_results_%s.csv"`, runID))
	c.DataFromReader(http.StatusOK, -1, "text/csv", rc, nil)
}

// UTMQR renders a CreditSea UTM link as a QR PNG.
func (h *Handler) UTMQR(c *gin.Context) {
	link := c.Query("link")
	parsed, err := url.Parse(link)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		httpkit.Error(c, http.StatusBadRequest, "link must be an absolute http(s) URL", nil)
		return
	}

	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		httpkit.Error(c, http.StatusUnprocessableEntity, "failed to encode QR code", nil)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func parseLenders(raw string) []string {
	var out []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// stageTempFile copies the upload to a temp file and rewinds it for
// reading.
func stageTempFile(r io.Reader) (*os.File, error) {
	f, err := os.CreateTemp("", "bulk_dedupe_input_*.csv")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, r); err != nil {
		removeTempFile(f, nil)
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		removeTempFile(f, nil)
		return nil, err
	}
	return f, nil
}

func readBack(f *os.File) ([]byte, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(io.LimitReader(f, maxResultBytes))
}

func removeTempFile(f *os.File, log *logger.Logger) {
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) && log != nil {
		log.Warn("failed to remove temp file", "file", name, "error", err)
	}
}
