package httpadapter

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

//go:embed openapi.yaml
var openAPISpec []byte

// requestValidator checks requests against the embedded OpenAPI document.
// Routes absent from the document pass through.
type requestValidator struct {
	router routers.Router
}

func newRequestValidator() (*requestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	router, err := legacyrouter.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &requestValidator{router: router}, nil
}

func (v *requestValidator) Validate(r *http.Request) error {
	if v == nil {
		return nil
	}
	route, pathParams, err := v.router.FindRoute(r)
	if err != nil {
		return nil
	}

	var body []byte
	if r.Body != nil {
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return domain.WrapError(domain.ErrInvalidInput, "read request body", err)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	defer func() {
		if body != nil {
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
	}()

	input := &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			ExcludeResponseBody: true,
		},
	}
	if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate request", err)
	}
	return nil
}
