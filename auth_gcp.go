package main

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const (
	defaultRegion = "europe-west1"
	defaultModel  = "gemini-2.5-flash"
)

// GeminiDictionary answers dictionary lookups with the Google GenAI client
// on VertexAI. It satisfies the same Dictionary contract as the REST
// client, including the per-lookup deadline.
type GeminiDictionary struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
}

// NewGeminiDictionary creates a client using Application Default
// Credentials. Set GOOGLE_APPLICATION_CREDENTIALS to the service account
// key file path.
func NewGeminiDictionary(ctx context.Context, projectID, region string, timeout time.Duration) (*GeminiDictionary, error) {
	if region == "" {
		region = defaultRegion
	}
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: region,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiDictionary{
		client:    client,
		modelName: defaultModel,
		timeout:   timeout,
	}, nil
}

// Close releases resources held by the client.
func (g *GeminiDictionary) Close() error {
	return nil
}
