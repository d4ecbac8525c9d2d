// Package spark reads officer records from the SPARK HR system.
package spark

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"karmasri/internal/merge"
	"karmasri/internal/metrics"
	"karmasri/pkg/models"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// FetchOfficer returns the SPARK projection for pen.
//
//	GET {BaseURL}/officers/{pen}
//	{
//	  "pen": "PEN100",
//	  "dependents": {"father_name": "...", "mother_name": "...", "spouse_name": "..."},
//	  "training":   [{"subject": "...", "conducted_by": "...", "from_date": "...", "to_date": "..."}],
//	  "education":  [{"qualification": "...", "subject": "...", "university": "...", "year": 2001}]
//	}
//
// An officer SPARK does not know yields an empty profile.
func (c *Client) FetchOfficer(ctx context.Context, pen string) (models.SparkProfile, error) {
	empty := models.SparkProfile{PEN: pen}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/officers/"+url.PathEscape(pen), nil)
	if err != nil {
		return empty, fmt.Errorf("spark: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		metrics.SparkFetches.WithLabelValues("error").Inc()
		return empty, fmt.Errorf("spark: do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.SparkFetches.WithLabelValues("not_found").Inc()
		return empty, nil
	case resp.StatusCode != http.StatusOK:
		metrics.SparkFetches.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return empty, fmt.Errorf("spark: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var p models.SparkProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		metrics.SparkFetches.WithLabelValues("error").Inc()
		return empty, fmt.Errorf("spark: decode json: %w", err)
	}
	if p.PEN == "" {
		p.PEN = pen
	}
	metrics.SparkFetches.WithLabelValues("ok").Inc()
	return p, nil
}

// Section returns the raw SPARK objects feeding the named entity.
func Section(p models.SparkProfile, entity string) []merge.Values {
	switch entity {
	case merge.Training.Name:
		return toValues(p.Training)
	case merge.Education.Name:
		return toValues(p.Education)
	case merge.Dependents.Name:
		if len(p.Dependents) == 0 {
			return nil
		}
		return []merge.Values{merge.Values(p.Dependents)}
	default:
		return nil
	}
}

func toValues(in []map[string]any) []merge.Values {
	out := make([]merge.Values, 0, len(in))
	for _, m := range in {
		out = append(out, merge.Values(m))
	}
	return out
}
