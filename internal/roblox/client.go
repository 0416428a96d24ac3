package roblox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// DefaultEndpoint is the platform's public username validation API.
const DefaultEndpoint = "https://auth.roblox.com/v1/usernames/validate"

// ErrRateLimited reports an explicit HTTP 429 from the platform. Everything
// else that is not a verdict is transient.
var ErrRateLimited = errors.New("roblox: rate limited")

// Result is the platform's verdict on one username. Code 0 means the name is
// valid and unclaimed; any other code carries the platform's reason.
type Result struct {
	Available  bool
	StatusCode int
	Code       int
	Message    string
}

type Client struct {
	http     *http.Client
	endpoint string
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		endpoint: endpoint,
	}
}

type validateResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Validate asks the platform whether username is available. A nil error means
// a definitive verdict; ErrRateLimited and transient failures carry none.
func (c *Client) Validate(ctx context.Context, username string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return Result{}, errors.Wrap(err, "build validate request")
	}
	q := url.Values{}
	q.Set("request.username", username)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, errors.Wrapf(err, "validate %q", username)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body validateResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return Result{}, errors.Wrapf(err, "decode validate response for %q", username)
		}
		res := Result{
			Available:  body.Code == 0,
			StatusCode: resp.StatusCode,
			Code:       body.Code,
			Message:    body.Message,
		}
		if res.Available && res.Message == "" {
			res.Message = "Username is available"
		}
		return res, nil
	case http.StatusTooManyRequests:
		return Result{}, errors.Wrapf(ErrRateLimited, "validate %q", username)
	default:
		return Result{}, errors.Errorf("validate %q: unexpected status %d", username, resp.StatusCode)
	}
}
