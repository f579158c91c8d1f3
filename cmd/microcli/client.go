package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// apiClient is a thin HTTP client for the microclid admin API.
type apiClient struct {
	base  string
	token string
	hc    http.Client
}

// envelope mirrors the API's JSON response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type statusData struct {
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

type completeData struct {
	Candidates []string `json:"candidates"`
	LCP        string   `json:"lcp"`
}

type executeData struct {
	Output string `json:"output"`
}

func (c *apiClient) do(method, path string, body any, out any) error {
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.base+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if c.hc.Timeout == 0 {
		c.hc.Timeout = 10 * time.Second
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s: bad response: %w", path, err)
	}
	if !env.Success {
		if env.Error != "" {
			return fmt.Errorf("%s", env.Error)
		}
		return fmt.Errorf("%s: HTTP %d", path, resp.StatusCode)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func (c *apiClient) status() (statusData, error) {
	var st statusData
	err := c.do(http.MethodGet, "/api/v1/status", nil, &st)
	return st, err
}

func (c *apiClient) complete(word string) (completeData, error) {
	var comp completeData
	err := c.do(http.MethodGet, "/api/v1/complete?word="+url.QueryEscape(word), nil, &comp)
	return comp, err
}

func (c *apiClient) execute(line string) (string, error) {
	var exec executeData
	err := c.do(http.MethodPost, "/api/v1/execute", map[string]string{"line": line}, &exec)
	return exec.Output, err
}
