package goposthog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/posthog/posthog-go"

	"github.com/sadewadee/wg-aggregator/tlmt"
)

type service struct {
	client     posthog.Client
	distinctID string
}

// New creates a Telemetry backed by PostHog
func New(apiKey, endpoint string) (tlmt.Telemetry, error) {
	client, err := posthog.NewWithConfig(apiKey, posthog.Config{
		Endpoint: endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create posthog client: %w", err)
	}

	return &service{
		client:     client,
		distinctID: anonymousID(),
	}, nil
}

func (s *service) Send(_ context.Context, event tlmt.Event) error {
	props := posthog.NewProperties()
	for k, v := range event.Properties {
		props.Set(k, v)
	}

	return s.client.Enqueue(posthog.Capture{
		DistinctId: s.distinctID,
		Event:      event.Name,
		Properties: props,
	})
}

func (s *service) Close() error {
	return s.client.Close()
}

// anonymousID derives a stable identifier without exposing the hostname
func anonymousID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	sum := sha256.Sum256([]byte(hostname))

	return hex.EncodeToString(sum[:16])
}
