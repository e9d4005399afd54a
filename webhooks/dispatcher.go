// Package webhooks fans message events out to registered HTTP
// destinations.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/wildcatlabs/wildcat/core"
)

const (
	defaultDeliveryTimeout    = 10 * time.Second
	maxResponseBodyDrainBytes = 1 << 16
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type DispatcherConfig struct {
	Timeout    time.Duration
	HTTPClient HTTPDoer
	Logger     core.Logger
}

// Dispatcher delivers one payload to every registered subscriber
// concurrently and waits for all attempts before returning. A destination
// counts as delivered only on a 2xx response inside the per-call timeout.
type Dispatcher struct {
	subscribers core.SubscriberStore
	httpClient  HTTPDoer
	timeout     time.Duration
	logger      core.Logger
}

func NewDispatcher(subscribers core.SubscriberStore, cfg DispatcherConfig) (*Dispatcher, error) {
	if subscribers == nil {
		return nil, fmt.Errorf("webhooks: subscriber store is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Dispatcher{
		subscribers: subscribers,
		httpClient:  httpClient,
		timeout:     timeout,
		logger:      glog.Ensure(cfg.Logger),
	}, nil
}

func (d *Dispatcher) Deliver(ctx context.Context, payload map[string]any) (core.DeliveryStats, error) {
	if d == nil || d.subscribers == nil {
		return core.DeliveryStats{}, fmt.Errorf("webhooks: dispatcher is not configured")
	}
	subscribers, err := d.subscribers.List(ctx)
	if err != nil {
		return core.DeliveryStats{}, fmt.Errorf("webhooks: subscriber list failed: %w", err)
	}
	stats := core.DeliveryStats{Subscribers: len(subscribers)}
	if len(subscribers) == 0 {
		return stats, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return stats, fmt.Errorf("webhooks: payload encode failed: %w", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, subscriber := range subscribers {
		wg.Add(1)
		go func(subscriber core.Subscriber) {
			defer wg.Done()
			deliverErr := d.deliverOne(ctx, subscriber, body)
			mu.Lock()
			if deliverErr == nil {
				stats.Delivered++
			} else {
				stats.Failed++
			}
			mu.Unlock()
			if deliverErr != nil {
				d.logger.Error("webhook delivery failed",
					"subscriber_id", subscriber.ID,
					"destination", redactDestination(subscriber.URL),
					"error", deliverErr.Error(),
				)
			}
		}(subscriber)
	}
	wg.Wait()

	if stats.Failed > 0 {
		return stats, fmt.Errorf("webhooks: %d of %d deliveries failed", stats.Failed, stats.Subscribers)
	}
	return stats, nil
}

func (d *Dispatcher) deliverOne(ctx context.Context, subscriber core.Subscriber, body []byte) error {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, subscriber.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodyDrainBytes))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("destination responded %d", resp.StatusCode)
	}
	return nil
}

// redactDestination strips path, query, and userinfo so failure logs never
// leak per-subscriber secrets embedded in the URL.
func redactDestination(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return "invalid-destination"
	}
	return parsed.Scheme + "://" + parsed.Host
}

var _ core.EventDispatcher = (*Dispatcher)(nil)
