package api

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bakesight/bakesight-server/internal/domain"
)

func (s *Server) registerImportRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "uploadImport",
		Method:      http.MethodPost,
		Path:        "/api/v1/imports",
		Summary:     "Upload sales export",
		Description: "Ingests a weekly sales export file (CSV) into the sales history",
		Tags:        []string{"Imports"},
		Middlewares: huma.Middlewares{s.importRateLimit},
	}, s.handleUploadImport)

	huma.Register(s.api, huma.Operation{
		OperationID: "listImports",
		Method:      http.MethodGet,
		Path:        "/api/v1/imports",
		Summary:     "List imports",
		Description: "Returns all recorded import batches, newest first",
		Tags:        []string{"Imports"},
	}, s.handleListImports)

	huma.Register(s.api, huma.Operation{
		OperationID: "getImport",
		Method:      http.MethodGet,
		Path:        "/api/v1/imports/{id}",
		Summary:     "Get import",
		Description: "Returns one import batch by ID",
		Tags:        []string{"Imports"},
	}, s.handleGetImport)
}

// importRateLimit caps upload requests per client IP.
func (s *Server) importRateLimit(ctx huma.Context, next func(huma.Context)) {
	key := clientIP(ctx)
	if !s.importLimiter.Allow(key) {
		s.logger.Warn("import rate limit exceeded", "ip", key)
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests,
			"Too many uploads. Please try again later.")
		return
	}
	next(ctx)
}

// clientIP extracts the client IP from a huma request context.
func clientIP(ctx huma.Context) string {
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}
	ip := ctx.RemoteAddr()
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}

// UploadImportInput carries the raw export file. The body is the file
// content as exported by the till software; the filename rides along as
// a query parameter for the audit record.
type UploadImportInput struct {
	Filename string `query:"filename" doc:"Original export filename" example:"sales_w34.csv"`
	RawBody  []byte `contentType:"text/csv"`
}

// ImportBatchResponse represents one recorded import.
type ImportBatchResponse struct {
	ID           string   `json:"id" doc:"Import batch ID"`
	Filename     string   `json:"filename" doc:"Original export filename"`
	RowsRead     int      `json:"rows_read" doc:"Rows present in the export"`
	RowsKept     int      `json:"rows_kept" doc:"Rows written to the sales history"`
	RowsDropped  int      `json:"rows_dropped" doc:"Rows dropped or held out"`
	Refunds      int      `json:"refunds" doc:"Refund rows clamped to zero"`
	ItemsCreated int      `json:"items_created" doc:"New catalog items created"`
	FirstDate    string   `json:"first_date,omitempty" doc:"Earliest sale date in the batch"`
	LastDate     string   `json:"last_date,omitempty" doc:"Latest sale date in the batch"`
	CreatedAt    string   `json:"created_at" doc:"When the import was recorded"`
	HeldOut      []string `json:"held_out,omitempty" doc:"Raw names held out as ambiguous"`
}

type UploadImportOutput struct {
	Body ImportBatchResponse
}

func (s *Server) handleUploadImport(ctx context.Context, input *UploadImportInput) (*UploadImportOutput, error) {
	filename := input.Filename
	if filename == "" {
		filename = "upload.csv"
	}

	result, err := s.services.Ingest.Ingest(ctx, filename, bytes.NewReader(input.RawBody))
	if err != nil {
		return nil, err
	}

	resp := batchResponse(result.Batch)
	resp.HeldOut = result.HeldOut
	return &UploadImportOutput{Body: resp}, nil
}

type ListImportsOutput struct {
	Body struct {
		Imports []ImportBatchResponse `json:"imports" doc:"Recorded import batches"`
	}
}

func (s *Server) handleListImports(ctx context.Context, _ *struct{}) (*ListImportsOutput, error) {
	batches, err := s.services.Ingest.ListImportBatches(ctx)
	if err != nil {
		return nil, err
	}

	out := &ListImportsOutput{}
	out.Body.Imports = make([]ImportBatchResponse, 0, len(batches))
	for _, b := range batches {
		out.Body.Imports = append(out.Body.Imports, batchResponse(b))
	}
	return out, nil
}

type GetImportInput struct {
	ID string `path:"id" doc:"Import batch ID"`
}

type GetImportOutput struct {
	Body ImportBatchResponse
}

func (s *Server) handleGetImport(ctx context.Context, input *GetImportInput) (*GetImportOutput, error) {
	batch, err := s.services.Ingest.GetImportBatch(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &GetImportOutput{Body: batchResponse(batch)}, nil
}

func batchResponse(b *domain.ImportBatch) ImportBatchResponse {
	resp := ImportBatchResponse{
		ID:           b.ID,
		Filename:     b.Filename,
		RowsRead:     b.RowsRead,
		RowsKept:     b.RowsKept,
		RowsDropped:  b.RowsDropped,
		Refunds:      b.Refunds,
		ItemsCreated: b.ItemsCreated,
		CreatedAt:    b.CreatedAt.Format(time.RFC3339),
	}
	if !b.FirstDate.IsZero() {
		resp.FirstDate = domain.FormatDate(b.FirstDate)
	}
	if !b.LastDate.IsZero() {
		resp.LastDate = domain.FormatDate(b.LastDate)
	}
	return resp
}
