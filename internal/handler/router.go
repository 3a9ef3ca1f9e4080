package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/sales-api/pkg/httpmiddleware"
	"github.com/xenking/sales-api/pkg/problem"
)

// Probes serves the health endpoints.
type Probes interface {
	LiveEndpoint(w http.ResponseWriter, r *http.Request)
	ReadyEndpoint(w http.ResponseWriter, r *http.Request)
}

// NewRouter mounts the API and probe routes. The middlewares run inside the
// router, after the route is matched.
func NewRouter(h *Handler, probes Probes, middlewares ...httpmiddleware.Middleware) http.Handler {
	r := chi.NewRouter()
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeProblem(w, r, problem.New(http.StatusNotFound, "Route not found").WithCode(problem.CodeRouteNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeProblem(w, r, problem.New(http.StatusMethodNotAllowed, "Method not allowed").
			WithCode(problem.CodeMethodNotAllowed))
	})

	if probes != nil {
		r.Get("/livez", probes.LiveEndpoint)
		r.Get("/readyz", probes.ReadyEndpoint)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/sales", func(r chi.Router) {
			r.Post("/", h.createSale)
			r.Get("/", h.listSales)
			r.Get("/{id}", h.getSale)
			r.Put("/{id}", h.updateSale)
			r.Patch("/{id}", h.updateSale)
			r.Delete("/{id}", h.deleteSale)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Get("/{id}", h.getProduct)
		})
	})

	return r
}
