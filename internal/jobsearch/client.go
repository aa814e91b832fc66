package jobsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://www.104.com.tw"
	maxResults     = 10
)

// Client searches job listings on the 104 jobs JSON API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

func New(logger *zap.Logger, baseURL string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		userAgent: "Mozilla/5.0",
		logger:    logger,
	}
}

// Job is one listing in a search result.
type Job struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type searchResponse struct {
	Data struct {
		List []struct {
			JobName     string      `json:"jobName"`
			CustName    string      `json:"custName"`
			JobNo       json.Number `json:"jobNo"`
			Description string      `json:"description"`
			Link        struct {
				Job string `json:"job"`
			} `json:"link"`
		} `json:"list"`
	} `json:"data"`
}

// Search returns up to ten listings matching the keyword.
func (c *Client) Search(ctx context.Context, keyword string) ([]Job, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("keyword is required")
	}

	q := url.Values{}
	q.Set("ro", "0")
	q.Set("keyword", keyword)
	q.Set("jobcatExpMore", "1")
	q.Set("order", "11")
	q.Set("page", "1")

	endpoint := c.baseURL + "/jobs/search/list?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", c.baseURL+"/jobs/search/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("job search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("job search HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read job search response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode job search response: %w", err)
	}

	c.logger.Debug("job search results",
		zap.String("keyword", keyword),
		zap.Int("count", len(parsed.Data.List)),
	)

	jobs := make([]Job, 0, maxResults)
	for _, item := range parsed.Data.List {
		if len(jobs) >= maxResults {
			break
		}
		jobURL := item.Link.Job
		switch {
		case strings.HasPrefix(jobURL, "//"):
			jobURL = "https:" + jobURL
		case jobURL == "":
			jobURL = fmt.Sprintf("%s/job/%s", c.baseURL, item.JobNo.String())
		}
		jobs = append(jobs, Job{
			Title:       item.JobName,
			Company:     item.CustName,
			URL:         jobURL,
			Description: item.Description,
		})
	}
	return jobs, nil
}
