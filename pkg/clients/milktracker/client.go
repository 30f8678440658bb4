package milktracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DailyEntryPath is the protected route running the auto-entry job.
const DailyEntryPath = "/api/internal/cron/daily-milk-entry"

// Client triggers server-side jobs.
type Client interface {
	TriggerDailyEntry(ctx context.Context) (*TriggerResponse, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a client for the server at baseURL authenticating with the cron secret.
func NewClient(baseURL, cronSecret string) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("x-cron-secret", cronSecret).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &APIClient{httpClient: restyClient}
}

// TriggerResponse mirrors the server's JSON envelope for the daily job.
type TriggerResponse struct {
	Error int `json:"error"`
	Data  struct {
		Status string          `json:"status"`
		Date   string          `json:"date"`
		Entry  json.RawMessage `json:"entry"`
	} `json:"data"`
	Message string `json:"message"`
}

// TriggerError is returned for non-2xx responses.
type TriggerError struct {
	StatusCode int
	Message    string
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("daily entry trigger failed (%d): %s", e.StatusCode, e.Message)
}

// TriggerDailyEntry asks the server to run today's auto-entry job.
func (c *APIClient) TriggerDailyEntry(ctx context.Context) (*TriggerResponse, error) {
	result := new(TriggerResponse)
	apiErr := new(TriggerResponse)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr).
		Post(DailyEntryPath)
	if err != nil {
		return nil, fmt.Errorf("trigger daily entry: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Message
		if message == "" {
			message = strings.TrimSpace(resp.String())
		}
		return nil, &TriggerError{StatusCode: resp.StatusCode(), Message: message}
	}

	return result, nil
}
