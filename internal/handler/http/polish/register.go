package polish

import (
	"net/http"
)

// Register registers the polish and template routes with the given mux.
func Register(mux *http.ServeMux, svc Service, catalog TemplateCatalog) {
	mux.Handle("POST /v1/polish", PolishHandler{svc})
	mux.Handle("POST /v1/summarize", SummarizeHandler{svc})
	mux.Handle("POST /v1/process", ProcessHandler{svc})

	mux.Handle("GET /v1/templates", TemplatesHandler{catalog})
	mux.Handle("GET /v1/templates/{name}", TemplateHandler{catalog})
}
