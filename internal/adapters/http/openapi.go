package httpadapter

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openAPISpec []byte

type openAPIDocument struct {
	doc  *openapi3.T
	json []byte
}

func loadOpenAPI() (*openAPIDocument, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal openapi: %w", err)
	}
	return &openAPIDocument{doc: doc, json: raw}, nil
}

func (rt *Router) serveOpenAPI(w http.ResponseWriter, r *http.Request) {
	if rt.openAPI == nil {
		writeError(w, r, http.StatusInternalServerError, errors.New("openapi document unavailable"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(rt.openAPI.json)
}
