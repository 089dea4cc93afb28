package openai

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// parseAPIError extracts a human-readable error from the API response and wraps it with kind.
// A 429 status additionally wraps domain.ErrRateLimited.
func parseAPIError(op string, err error, kind error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("%s API error %d: %s: %w",
			op, reqErr.HTTPStatusCode, detail, statusKind(reqErr.HTTPStatusCode, kind))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w",
			op, apiErr.HTTPStatusCode, apiErr.Message, statusKind(apiErr.HTTPStatusCode, kind))
	}

	return fmt.Errorf("%s request failed: %v: %w", op, err, kind)
}

func statusKind(status int, kind error) error {
	if status == http.StatusTooManyRequests {
		return errors.Join(kind, domain.ErrRateLimited)
	}
	return kind
}

// extractDetail extracts the "detail" field from a JSON error body (Ollama / vLLM error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
