package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"go.uber.org/zap"
)

const maxErrorBody = 512

// sendRequest is the EmailJS REST payload
type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

// EmailJSClient relays form submissions through the EmailJS send endpoint
type EmailJSClient struct {
	http     *http.Client
	endpoint string
	service  string
	key      string
	timeout  time.Duration
	logger   *logger.Logger
}

// NewEmailJSClient creates a relay client
func NewEmailJSClient(cfg *config.Config, client *http.Client, logger *logger.Logger) *EmailJSClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &EmailJSClient{
		http:     client,
		endpoint: cfg.Email.Endpoint,
		service:  cfg.Email.ServiceID,
		key:      cfg.Email.PublicKey,
		timeout:  cfg.Aggregator.RequestTimeout,
		logger:   logger.WithComponent("emailjs-client"),
	}
}

// Send posts the template parameters; any non-2xx answer is an error
func (c *EmailJSClient) Send(ctx context.Context, templateID string, params map[string]string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(sendRequest{
		ServiceID:      c.service,
		TemplateID:     templateID,
		UserID:         c.key,
		TemplateParams: params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("email relay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("email relay error: %s - %s", resp.Status, string(msg))
	}

	c.logger.Debug("Email relayed", zap.String("template_id", templateID))
	return nil
}
