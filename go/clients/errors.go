package clients

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	// Detail is the service's human readable message ("detail" in the body).
	Detail string
	// Code is the optional machine readable error code ("code" in the body).
	Code string
	Body string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("API returned status code: %d, detail: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("API returned status code: %d, response: %s", e.StatusCode, e.Body)
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Code   string          `json:"code"`
}

// validation errors arrive as a list of these
type detailItem struct {
	Msg string `json:"msg"`
}

func newAPIError(method, endpoint string, status int, body []byte) *APIError {
	apiErr := &APIError{
		Method:     method,
		Endpoint:   endpoint,
		StatusCode: status,
		Body:       string(body),
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return apiErr
	}
	apiErr.Code = eb.Code
	apiErr.Detail = parseDetail(eb.Detail)
	return apiErr
}

func parseDetail(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []detailItem
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return string(raw)
}
