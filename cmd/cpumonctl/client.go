package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cpumon/internal/core/auth"
)

type controlClient struct {
	baseURL string
	tokens  *auth.Tokens
	http    *http.Client
}

func newControlClient(baseURL, secret string) *controlClient {
	c := &controlClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	if secret != "" {
		c.tokens = auth.NewTokens(secret)
	}
	return c
}

// Thresholds pages through the table until the server returns an empty
// page and writes everything to w.
func (c *controlClient) Thresholds(ctx context.Context, w io.Writer) error {
	var offset int64
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/cpu_threshold?offset=%d", c.baseURL, offset), nil)
		if err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("read thresholds: %w", err)
		}

		page, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read thresholds: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("read thresholds: unexpected status %s", resp.Status)
		}
		if len(page) == 0 {
			return nil
		}

		if _, err := w.Write(page); err != nil {
			return err
		}

		next, err := strconv.ParseInt(resp.Header.Get("X-Next-Offset"), 10, 64)
		if err != nil || next <= offset {
			return fmt.Errorf("read thresholds: bad cursor %q", resp.Header.Get("X-Next-Offset"))
		}
		offset = next
	}
}

// SetThreshold writes one "<id> <value>" line and returns the number of
// bytes the server consumed.
func (c *controlClient) SetThreshold(ctx context.Context, id, value int) (int, error) {
	body := fmt.Sprintf("%d %d\n", id, value)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/cpu_threshold", strings.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "text/plain")

	if c.tokens != nil {
		token, err := c.tokens.Issue("cpumonctl", time.Minute)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("write threshold: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("write threshold: unexpected status %s", resp.Status)
	}

	var res struct {
		Data struct {
			Bytes int `json:"bytes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return 0, fmt.Errorf("write threshold: decode response: %w", err)
	}

	return res.Data.Bytes, nil
}
