// Package problem writes RFC 7807 problem details responses.
package problem

import (
	"net/http"

	"github.com/go-faster/jx"
)

// ContentType is the media type of a problem document.
const ContentType = "application/problem+json"

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string
	Message string
}

// Problem is an RFC 7807 problem details document with an optional list of
// field errors.
type Problem struct {
	Type      string
	Title     string
	Status    int
	Detail    string
	Code      string
	Instance  string
	RequestID string
	Errors    []FieldError
}

// Machine-readable problem codes.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeValidation       = "VALIDATION_ERROR"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeRouteNotFound    = "ROUTE_NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeSaleNotFound     = "SALE_NOT_FOUND"
	CodeProductNotFound  = "PRODUCT_NOT_FOUND"
	CodeDuplicateCode    = "DUPLICATE_SALE_CODE"
	CodeSaleFinalized    = "SALE_FINALIZED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
)

// New returns a problem for status with the standard status text as title.
func New(status int, detail string) *Problem {
	return &Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

// WithCode sets the machine-readable code and returns p.
func (p *Problem) WithCode(code string) *Problem {
	p.Code = code
	return p
}

// Encode writes p as JSON.
func (p *Problem) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("type")
	e.Str(p.Type)
	e.FieldStart("title")
	e.Str(p.Title)
	e.FieldStart("status")
	e.Int(p.Status)
	if p.Detail != "" {
		e.FieldStart("detail")
		e.Str(p.Detail)
	}
	if p.Code != "" {
		e.FieldStart("code")
		e.Str(p.Code)
	}
	if p.Instance != "" {
		e.FieldStart("instance")
		e.Str(p.Instance)
	}
	if p.RequestID != "" {
		e.FieldStart("requestId")
		e.Str(p.RequestID)
	}
	if len(p.Errors) > 0 {
		e.FieldStart("errors")
		e.ArrStart()
		for _, fe := range p.Errors {
			e.ObjStart()
			e.FieldStart("field")
			e.Str(fe.Field)
			e.FieldStart("message")
			e.Str(fe.Message)
			e.ObjEnd()
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

// Write sends p with its status code. Instance defaults to the request path.
func Write(w http.ResponseWriter, r *http.Request, p *Problem) {
	if p.Instance == "" && r != nil {
		p.Instance = r.URL.Path
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	p.Encode(e)

	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(p.Status)
	_, _ = w.Write(e.Bytes())
}
