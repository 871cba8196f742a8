package httputils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// maxErrorBody caps how much of a failed response body ends up in an error.
const maxErrorBody = 512

// GetJSON issues a GET with optional query params and decodes a 200 response into resp.
func GetJSON(ctx context.Context, client *http.Client, rawURL string, params url.Values, resp interface{}) error {
	if client == nil {
		client = http.DefaultClient
	}
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return do(client, req, resp)
}

func PostJSON(ctx context.Context, client *http.Client, url string, body interface{}, resp interface{}) error {
	return PostJSONWithAuth(ctx, client, url, "", body, resp)
}

// PostJSONWithAuth sends body as JSON. A non-empty auth value is sent verbatim
// in the Authorization header.
func PostJSONWithAuth(ctx context.Context, client *http.Client, url, auth string, body interface{}, resp interface{}) error {
	if client == nil {
		client = http.DefaultClient
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return do(client, req, resp)
}

func do(client *http.Client, req *http.Request, resp interface{}) error {
	r, err := client.Do(req)
	if err != nil {
		return err
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(r.Body, maxErrorBody))
		return fmt.Errorf("bad status: %d %s", r.StatusCode, string(b))
	}
	if resp != nil {
		if err := json.NewDecoder(r.Body).Decode(resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
