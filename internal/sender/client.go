package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"matchpoint/internal/constants"
	"matchpoint/internal/domain"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
)

// providerClient wraps one delivery provider's HTTP API. Transient failures
// (5xx, transport errors) are retried with bounded backoff inside a single
// send; the dispatcher only ever sees the terminal result.
type providerClient struct {
	apiURL string
	apiKey string
	client *fasthttp.Client
	logger zerolog.Logger
}

func newProviderClient(apiURL, apiKey string, logger zerolog.Logger) *providerClient {
	return &providerClient{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ProviderTimeout,
			WriteTimeout:        constants.ProviderTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

func (c *providerClient) configured() bool {
	return c.apiURL != "" && c.apiKey != ""
}

type transientError struct{ status int }

func (e *transientError) Error() string {
	return fmt.Sprintf("provider error: %d", e.status)
}

// post sends one JSON payload to the provider and reports the terminal
// SendResult. It never returns an error; delivery failure is data, not a
// control-flow exception.
func (c *providerClient) post(ctx context.Context, channel domain.DeliveryChannel, payload any) domain.SendResult {
	if !c.configured() {
		return domain.SendResult{ErrorMessage: fmt.Sprintf("%s provider not configured", channel)}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.SendResult{ErrorMessage: fmt.Sprintf("failed to marshal payload: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, constants.ProviderTimeout)
	defer cancel()

	var response string
	backoff := retry.WithMaxRetries(constants.SenderMaxRetries,
		retry.NewExponential(constants.SenderRetryBackoff))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		status, resp, err := c.doPost(ctx, body)
		if err != nil {
			c.logger.Warn().Err(err).Str("channel", string(channel)).Msg("provider call failed, may retry")
			return retry.RetryableError(err)
		}
		response = resp
		if status >= 500 {
			c.logger.Warn().Int("status", status).Str("channel", string(channel)).Msg("provider returned server error, may retry")
			return retry.RetryableError(&transientError{status: status})
		}
		if status >= 400 {
			return &transientError{status: status}
		}
		return nil
	})
	if err != nil {
		return domain.SendResult{
			ProviderResponse: response,
			ErrorMessage:     err.Error(),
		}
	}

	return domain.SendResult{Success: true, ProviderResponse: response}
}

func (c *providerClient) doPost(ctx context.Context, body []byte) (int, string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.apiURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return 0, "", err
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return 0, "", err
		}
	}

	return resp.StatusCode(), string(resp.Body()), nil
}
