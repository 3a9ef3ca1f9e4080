// Package handler exposes the sales and product HTTP API.
package handler

import (
	"context"
	"io"
	"mime"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/sales-api/internal/domain/product"
	"github.com/xenking/sales-api/internal/domain/sale"
	"github.com/xenking/sales-api/internal/validation"
	"github.com/xenking/sales-api/pkg/httpmiddleware"
	"github.com/xenking/sales-api/pkg/problem"
)

// DefaultMaxBodyBytes caps request bodies at 1 MiB.
const DefaultMaxBodyBytes = 1 << 20

// SaleService is the sale workflow used by the API.
type SaleService interface {
	Create(ctx context.Context, d sale.Draft) (*sale.Sale, error)
	Get(ctx context.Context, id int64) (*sale.Sale, error)
	List(ctx context.Context, f sale.Filter) (*sale.ListResult, error)
	Update(ctx context.Context, id int64, p sale.Patch) (*sale.Sale, error)
	Delete(ctx context.Context, id int64) error
}

// ProductCatalog serves product lookups, usually through the product cache.
type ProductCatalog interface {
	List(ctx context.Context) ([]product.Product, error)
	FindProduct(ctx context.Context, id int64) (product.Product, error)
}

// Config holds non-dependency handler settings.
type Config struct {
	// MaxBodyBytes defaults to DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Handler serves the REST API.
type Handler struct {
	sales    SaleService
	products ProductCatalog
	checker  *validation.Checker
	maxBody  int64
}

// New constructs a Handler.
func New(cfg Config, sales SaleService, products ProductCatalog, checker *validation.Checker) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		sales:    sales,
		products: products,
		checker:  checker,
		maxBody:  cfg.MaxBodyBytes,
	}
}

// readBody returns the request body, writing a problem and reporting false
// when it is too large, unreadable or not declared as JSON.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			h.writeProblem(w, r, problem.New(http.StatusBadRequest, "Content-Type must be application/json").
				WithCode(problem.CodeBadRequest))
			return nil, false
		}
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeProblem(w, r, problem.New(http.StatusRequestEntityTooLarge, "Request body is too large").
				WithCode(problem.CodePayloadTooLarge))
			return nil, false
		}
		h.writeProblem(w, r, problem.New(http.StatusBadRequest, "Request body could not be read").
			WithCode(problem.CodeBadRequest))
		return nil, false
	}
	return data, true
}

// pathID decodes the {id} URL parameter.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, raw string) (int64, bool) {
	id, res := h.checker.DecodeID(raw)
	if !res.OK() {
		h.writeValidation(w, r, res)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeProblem(w http.ResponseWriter, r *http.Request, p *problem.Problem) {
	p.RequestID = httpmiddleware.RequestIDFromContext(r.Context())
	problem.Write(w, r, p)
}

func (h *Handler) writeValidation(w http.ResponseWriter, r *http.Request, res validation.Result) {
	p := problem.New(res.Status, "Validation failed").WithCode(problem.CodeValidation)
	p.Errors = make([]problem.FieldError, len(res.Errors))
	for i, fe := range res.Errors {
		p.Errors[i] = problem.FieldError{Field: fe.Field, Message: fe.Message}
	}
	h.writeProblem(w, r, p)
}

// writeError maps a service error to a problem response.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr      *validation.Error
		missing   *sale.ProductNotFoundError
		finalized *sale.FinalizedError
	)
	switch {
	case errors.As(err, &verr):
		h.writeValidation(w, r, verr.Result)
	case errors.Is(err, sale.ErrNotFound):
		h.writeProblem(w, r, problem.New(http.StatusNotFound, "Sale not found").WithCode(problem.CodeSaleNotFound))
	case errors.As(err, &missing):
		h.writeProblem(w, r, problem.New(http.StatusNotFound, missing.Error()).WithCode(problem.CodeProductNotFound))
	case errors.Is(err, product.ErrNotFound):
		h.writeProblem(w, r, problem.New(http.StatusNotFound, "Product not found").WithCode(problem.CodeProductNotFound))
	case errors.Is(err, sale.ErrDuplicateCode):
		h.writeProblem(w, r, problem.New(http.StatusConflict, "A sale with this code already exists").
			WithCode(problem.CodeDuplicateCode))
	case errors.As(err, &finalized):
		h.writeProblem(w, r, problem.New(http.StatusUnprocessableEntity, finalized.Error()).
			WithCode(problem.CodeSaleFinalized))
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		h.writeProblem(w, r, problem.New(http.StatusInternalServerError, "An unexpected error occurred").
			WithCode(problem.CodeInternal))
	}
}

// writeJSON sends the document built by encode with the given status.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
