package preview

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/thegoat123/thegoat"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FetchTimeout bounds the time spent fetching a poll, previews fall back to the original page past it.
const FetchTimeout = 5 * time.Second

type PollFetcher interface {
	FetchPoll(ctx context.Context, id string) (*thegoat.Poll, error)
}

// APIFetcher fetches polls from the JSON API of the main server.
type APIFetcher struct {
	baseURL string
	client  *http.Client
}

func NewAPIFetcher(baseURL string) *APIFetcher {
	return &APIFetcher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: FetchTimeout},
	}
}

func (f *APIFetcher) FetchPoll(ctx context.Context, id string) (*thegoat.Poll, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/polls/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, thegoat.ErrPollNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("failed to fetch poll %s: %s", id, resp.Status)
	}

	poll := thegoat.Poll{}
	if err := json.NewDecoder(resp.Body).Decode(&poll); err != nil {
		return nil, fmt.Errorf("failed to decode poll %s: %w", id, err)
	}

	return &poll, nil
}
