package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/crownside/storefront/internal/platform/httpx"
)

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body too large")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = 16 * 1024
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, errBodyTooLarge):
		writeRequestError(ctx, w, "payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge)
	case errors.Is(err, errEmptyBody):
		writeRequestError(ctx, w, "invalid_request", "request body is required", http.StatusBadRequest)
	default:
		writeRequestError(ctx, w, "invalid_request", err.Error(), http.StatusBadRequest)
	}
}

func writeRequestError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	httpx.WriteError(ctx, w, httpx.NewError(code, message, status))
}
