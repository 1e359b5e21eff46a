package provider

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// StatusPolicy 决定非 2xx 响应如何交给调用方。
// 两种策略都是有意保留的：卡表抓取把非 2xx 当作“本页无数据”，卡组抓取把它当作页面级失败。
type StatusPolicy int

const (
	// StatusEmpty：告警并返回空串（调用方按“无数据”跳过该页）。
	StatusEmpty StatusPolicy = iota
	// StatusError：返回 *HTTPStatusError。
	StatusError
)

// Client 是基于 resty 的 Fetcher 实现。
type Client struct {
	r      *resty.Client
	policy StatusPolicy
}

// NewClient 用给定的 *http.Client（通常来自 httpx.NewPageClient）构造 Fetcher。
func NewClient(hc *http.Client, policy StatusPolicy) (*Client, error) {
	if hc == nil {
		return nil, errors.New("http client 不能为空")
	}
	return &Client{r: resty.NewWithClient(hc), policy: policy}, nil
}

func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := c.r.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", err
	}
	if resp.IsSuccess() {
		return resp.String(), nil
	}

	if c.policy == StatusEmpty {
		slog.Warn("HTTP error fetching page", "url", url, "status", resp.StatusCode())
		return "", nil
	}
	return "", &HTTPStatusError{
		URL:        url,
		StatusCode: resp.StatusCode(),
		Location:   resp.Header().Get("Location"),
	}
}
