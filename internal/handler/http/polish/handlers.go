package polish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"transcript-polisher/internal/domain/entity"
	"transcript-polisher/internal/handler/http/respond"
	polishUC "transcript-polisher/internal/usecase/polish"
)

// Service is the slice of the polish use case the handlers need.
type Service interface {
	Polish(ctx context.Context, transcript, templateName string) (*polishUC.PolishResult, error)
	Summarize(ctx context.Context, transcript, title, templateName string) (*polishUC.SummaryResult, error)
	Process(ctx context.Context, req polishUC.ProcessRequest) (*polishUC.ProcessResult, error)
}

// TemplateCatalog lists prompt templates. *polishUC.Templates satisfies it.
type TemplateCatalog interface {
	Names() []string
	Info(name string) (polishUC.TemplateInfo, bool)
}

// PolishHandler serves POST /v1/polish.
type PolishHandler struct{ Svc Service }

func (h PolishHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req PolishRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		respond.SafeError(w, r, http.StatusBadRequest, errors.New("transcript is required"))
		return
	}

	res, err := h.Svc.Polish(r.Context(), req.Transcript, req.Template)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := PolishResponse{PolishResult: *res}
	if req.Display != nil {
		out.Formatted = polishUC.FormatForDisplay(res.Content, req.Display.meta())
	}
	respond.JSON(w, http.StatusOK, out)
}

// SummarizeHandler serves POST /v1/summarize.
type SummarizeHandler struct{ Svc Service }

func (h SummarizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		respond.SafeError(w, r, http.StatusBadRequest, errors.New("transcript is required"))
		return
	}

	res, err := h.Svc.Summarize(r.Context(), req.Transcript, req.Title, req.Template)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// ProcessHandler serves POST /v1/process: polish, then summarize.
type ProcessHandler struct{ Svc Service }

func (h ProcessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		respond.SafeError(w, r, http.StatusBadRequest, errors.New("transcript is required"))
		return
	}

	res, err := h.Svc.Process(r.Context(), polishUC.ProcessRequest{
		Transcript: req.Transcript,
		Title:      req.Title,
		Template:   req.Template,
		SkipPolish: req.SkipPolish,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := ProcessResponse{ProcessResult: *res}
	if req.Display != nil {
		out.Formatted = polishUC.FormatForDisplay(res.Polished, req.Display.meta())
	}
	respond.JSON(w, http.StatusOK, out)
}

// TemplatesHandler serves GET /v1/templates.
type TemplatesHandler struct{ Catalog TemplateCatalog }

func (h TemplatesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	names := h.Catalog.Names()
	out := TemplatesResponse{
		Default:   polishUC.DefaultTemplate,
		Templates: make([]polishUC.TemplateInfo, 0, len(names)),
	}
	for _, name := range names {
		if info, ok := h.Catalog.Info(name); ok {
			out.Templates = append(out.Templates, info)
		}
	}
	respond.JSON(w, http.StatusOK, out)
}

// TemplateHandler serves GET /v1/templates/{name}. Unknown names are a 404
// here even though generation falls back to the default template.
type TemplateHandler struct{ Catalog TemplateCatalog }

func (h TemplateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	info, ok := h.Catalog.Info(name)
	if !ok {
		respond.SafeError(w, r, http.StatusNotFound, fmt.Errorf("template %q not found", name))
		return
	}
	respond.JSON(w, http.StatusOK, info)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.SafeError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Errorf("request body too long: limit is %d bytes", maxErr.Limit))
			return false
		}
		respond.SafeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// writeServiceError maps use case failures onto status codes. Generation
// details stay in the logs; clients get a stable message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, polishUC.ErrEmptyTranscript):
		respond.SafeError(w, r, http.StatusBadRequest, err)
	case errors.Is(err, entity.ErrNoBackendsConfigured):
		respond.SafeError(w, r, http.StatusServiceUnavailable,
			respond.NewAppError(http.StatusServiceUnavailable, "no generation backends configured", err))
	case errors.Is(err, entity.ErrAllCandidatesExhausted):
		respond.SafeError(w, r, http.StatusBadGateway,
			respond.NewAppError(http.StatusBadGateway, "all generation backends failed", err))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respond.SafeError(w, r, http.StatusGatewayTimeout,
			respond.NewAppError(http.StatusGatewayTimeout, "request canceled before generation finished", err))
	default:
		respond.SafeError(w, r, http.StatusInternalServerError, err)
	}
}
