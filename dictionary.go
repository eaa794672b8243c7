package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultLookupTimeout bounds a single dictionary request, independently of
// whatever the underlying service does.
const defaultLookupTimeout = 8 * time.Second

// defaultDictionaryURL is the free dictionaryapi.dev endpoint for English.
const defaultDictionaryURL = "https://api.dictionaryapi.dev/api/v2/entries/en"

// Lookup verdicts. Callers match with errors.Is.
var (
	ErrWordNotFound    = errors.New("word not found in the dictionary")
	ErrNoDefinition    = errors.New("no usable definition for word")
	ErrLookupFailed    = errors.New("dictionary lookup failed")
	ErrLookupTimeout   = errors.New("dictionary lookup timed out")
	ErrLookupCancelled = errors.New("dictionary lookup cancelled")
)

// Dictionary decides whether a word exists and supplies a short definition.
// Lookup returns ErrLookupCancelled when the caller's context is cancelled;
// a late result after cancellation must never reach game state.
type Dictionary interface {
	Lookup(ctx context.Context, word string) (string, error)
}

// DictionaryClient looks words up against a dictionaryapi.dev-style REST
// endpoint: GET {baseURL}/{word} returns a JSON array of entries on 200 and
// a 404 when the word does not exist.
type DictionaryClient struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewDictionaryClient creates a client for the given endpoint.
// Empty arguments fall back to the public endpoint and the 8 s default.
func NewDictionaryClient(baseURL string, timeout time.Duration) *DictionaryClient {
	if baseURL == "" {
		baseURL = defaultDictionaryURL
	}
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &DictionaryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{},
	}
}

// dictEntry mirrors the slice of the dictionaryapi.dev response we care about.
type dictEntry struct {
	Word     string `json:"word"`
	Meanings []struct {
		PartOfSpeech string `json:"partOfSpeech"`
		Definitions  []struct {
			Definition string `json:"definition"`
		} `json:"definitions"`
	} `json:"meanings"`
}

// Lookup issues exactly one request for the lowercased word and returns its
// first definition. The client's own timeout applies on top of ctx, so an
// unresponsive service reports ErrLookupTimeout rather than hanging; a
// cancellation coming from ctx reports ErrLookupCancelled.
func (c *DictionaryClient) Lookup(ctx context.Context, word string) (string, error) {
	word = strings.ToLower(strings.TrimSpace(word))

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+"/"+url.PathEscape(word), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		switch {
		case ctx.Err() == context.Canceled:
			return "", ErrLookupCancelled
		case reqCtx.Err() == context.DeadlineExceeded:
			return "", ErrLookupTimeout
		default:
			return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrWordNotFound
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var entries []dictEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrLookupFailed, err)
	}
	if len(entries) == 0 {
		return "", ErrWordNotFound
	}

	for _, entry := range entries {
		for _, meaning := range entry.Meanings {
			for _, def := range meaning.Definitions {
				if d := strings.TrimSpace(def.Definition); d != "" {
					return d, nil
				}
			}
		}
	}
	return "", ErrNoDefinition
}
