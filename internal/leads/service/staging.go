package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"lending_crm_backend/internal/leads/transport"
	"lending_crm_backend/platform/apperr"
	"lending_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	stagingKeyPrefix = "leads:staging:"
	previewRows      = 5
	maxStagedBytes   = 10 << 20 // 10 MiB
)

// Staging parks an uploaded lead CSV in Redis so an operator can review the
// parsed preview before committing the import. Entries expire on their own;
// confirm and cancel both remove them eagerly.
type Staging struct {
	rdb *redis.Client
	svc *Service
	ttl time.Duration
	log *logger.Logger
}

func NewStaging(rdb *redis.Client, svc *Service, ttl time.Duration, log *logger.Logger) *Staging {
	return &Staging{rdb: rdb, svc: svc, ttl: ttl, log: log}
}

type stagedUpload struct {
	FileName  string    `json:"fileName"`
	Content   []byte    `json:"content"`
	Columns   []string  `json:"columns"`
	RowCount  int       `json:"rowCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stage validates the file header, stores the raw CSV under a fresh staging
// ID and returns a preview of the first rows.
func (st *Staging) Stage(ctx context.Context, fileName string, r io.Reader) (transport.StagedUploadResponse, error) {
	content, err := io.ReadAll(io.LimitReader(r, maxStagedBytes+1))
	if err != nil {
		return transport.StagedUploadResponse{}, apperr.BadRequest("failed to read uploaded file")
	}
	if len(content) > maxStagedBytes {
		return transport.StagedUploadResponse{}, apperr.Validation("CSV file exceeds the 10 MiB staging limit")
	}

	columns, rowCount, preview, err := inspectCSV(content)
	if err != nil {
		return transport.StagedUploadResponse{}, err
	}

	upload := stagedUpload{
		FileName:  fileName,
		Content:   content,
		Columns:   columns,
		RowCount:  rowCount,
		CreatedAt: time.Now(),
	}
	payload, err := json.Marshal(upload)
	if err != nil {
		return transport.StagedUploadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to encode staged upload", err)
	}

	stagingID := uuid.NewString()
	if err := st.rdb.Set(ctx, stagingKeyPrefix+stagingID, payload, st.ttl).Err(); err != nil {
		return transport.StagedUploadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to stage upload", err)
	}

	return transport.StagedUploadResponse{
		StagingID: stagingID,
		FileName:  fileName,
		RowCount:  rowCount,
		Columns:   columns,
		Preview:   preview,
		ExpiresAt: time.Now().Add(st.ttl),
	}, nil
}

// Confirm runs the staged CSV through the importer and removes the staging
// entry. A missing or expired entry is a not-found error.
func (st *Staging) Confirm(ctx context.Context, stagingID string) (transport.ImportSummary, error) {
	key := stagingKeyPrefix + stagingID
	payload, err := st.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return transport.ImportSummary{}, apperr.NotFound("staged upload not found or expired")
	}
	if err != nil {
		return transport.ImportSummary{}, apperr.Wrap(apperr.KindInternal, "failed to load staged upload", err)
	}

	var upload stagedUpload
	if err := json.Unmarshal(payload, &upload); err != nil {
		return transport.ImportSummary{}, apperr.Wrap(apperr.KindInternal, "corrupt staged upload", err)
	}

	summary, err := st.svc.ImportCSV(ctx, bytes.NewReader(upload.Content), SourceLeadCSV)
	if err != nil {
		return transport.ImportSummary{}, err
	}

	if err := st.rdb.Del(ctx, key).Err(); err != nil {
		st.log.Warn("failed to delete staged upload after import", "stagingId", stagingID, "error", err)
	}
	return summary, nil
}

// Cancel discards a staged upload without importing it.
func (st *Staging) Cancel(ctx context.Context, stagingID string) error {
	deleted, err := st.rdb.Del(ctx, stagingKeyPrefix+stagingID).Result()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to discard staged upload", err)
	}
	if deleted == 0 {
		return apperr.NotFound("staged upload not found or expired")
	}
	return nil
}

func inspectCSV(content []byte) (columns []string, rowCount int, preview []map[string]string, err error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, nil, apperr.BadRequest("empty or unreadable CSV file")
	}
	columns = normalizeHeader(header)
	if err := validateHeader(columns); err != nil {
		return nil, 0, nil, err
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, nil, apperr.Validation(fmt.Sprintf("malformed CSV at data row %d", rowCount+1))
		}
		rowCount++
		if len(preview) < previewRows {
			row := make(map[string]string, len(columns))
			for i, col := range columns {
				if i < len(record) {
					row[col] = record[i]
				}
			}
			preview = append(preview, row)
		}
	}
	return columns, rowCount, preview, nil
}
