package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Dispatcher delivers one-time codes out-of-band. Delivery is fire-and-forget
// from the gate's perspective: a failed send never rolls back issuance.
type Dispatcher interface {
	Send(ctx context.Context, phoneNumber, message string) error
}

// LogDispatcher writes the code to the log instead of sending it. Used in
// development and tests.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(ctx context.Context, phoneNumber, message string) error {
	d.logger.Info("OTP dispatch (log only)",
		zap.String("phone_number", phoneNumber),
		zap.String("message", message))
	return nil
}

// GatewayDispatcher posts the message to an external SMS gateway.
type GatewayDispatcher struct {
	client *http.Client
	url    string
	apiKey string
	logger *zap.Logger
}

func NewGatewayDispatcher(url, apiKey string, timeout time.Duration, logger *zap.Logger) *GatewayDispatcher {
	return &GatewayDispatcher{
		client: &http.Client{Timeout: timeout},
		url:    url,
		apiKey: apiKey,
		logger: logger,
	}
}

func (d *GatewayDispatcher) Send(ctx context.Context, phoneNumber, message string) error {
	payload, err := json.Marshal(map[string]string{
		"to":      phoneNumber,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal gateway payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}
