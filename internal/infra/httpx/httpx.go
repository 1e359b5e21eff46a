// Package httpx 固化抓取用的 HTTP 传输策略：UA 池、代理、有界重试、总超时。
// provider 只负责“定位页面 + 解析 HTML”，不关心这些细节。
package httpx

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTimeout    = 20 * time.Second
	DefaultRetryMax   = 2
	DefaultRetryDelay = 500 * time.Millisecond
)

// Options 是页面 client 的可调参数；零值字段使用默认值。
type Options struct {
	ProxyURL string
	Timeout  time.Duration
	// RetryMax 为最大重试次数（不含首次尝试）；负数表示不重试。
	RetryMax   int
	RetryDelay time.Duration
	// UserAgent 非空时固定使用该 UA，否则每个请求从内置池随机挑选。
	UserAgent string
}

// Transport 对可重放请求（GET/HEAD 且无 body）做有界重试：
// 传输层错误与 502/503/504 会重试，其它状态码原样交给上层。
type Transport struct {
	Base       http.RoundTripper
	RetryMax   int
	RetryDelay time.Duration
	// CloseConn 为 true 时每个请求设置 Close=true（代理模式下保证每请求新连接）。
	CloseConn bool

	ua func() string
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	max := t.RetryMax
	if max < 0 || !replayable(req) {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		if attempt > 0 && !t.wait(req, attempt) {
			break
		}

		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" && t.ua != nil {
			r.Header.Set("User-Agent", t.ua())
		}
		if t.CloseConn {
			r.Close = true
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil && (attempt == max || !retryableStatus(resp.StatusCode)) {
			// 重试用尽时把最后一次 5xx 原样交给上层，由状态码策略处理。
			return resp, nil
		}
		if err == nil {
			// 丢弃即将重试的响应，连接才能复用。
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			err = fmt.Errorf("HTTP %d: %s", resp.StatusCode, req.URL)
		}
		lastErr = err
		if req.Context().Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (t *Transport) wait(req *http.Request, attempt int) bool {
	d := t.RetryDelay * time.Duration(attempt)
	if d <= 0 {
		return req.Context().Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return false
	case <-timer.C:
		return true
	}
}

func replayable(req *http.Request) bool {
	return (req.Method == http.MethodGet || req.Method == http.MethodHead) && (req.Body == nil || req.Body == http.NoBody)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// NewPageClient 构造抓取页面用的 *http.Client。
//
// 规则：
// - ProxyURL 非空：必须走代理，且禁用 keep-alive（每请求新连接）
// - UA：固定值或内置池随机
// - 有界重试 + 总超时
func NewPageClient(opts Options) (*http.Client, error) {
	base := &http.Transport{
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
	closeConn := false
	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy.url 需要包含 scheme 与 host")
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
		closeConn = true
	}

	retryMax := opts.RetryMax
	if retryMax == 0 {
		retryMax = DefaultRetryMax
	}
	delay := opts.RetryDelay
	if delay == 0 {
		delay = DefaultRetryDelay
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ua := globalUA.random
	if fixed := strings.TrimSpace(opts.UserAgent); fixed != "" {
		ua = func() string { return fixed }
	}

	return &http.Client{
		Transport: &Transport{
			Base:       base,
			RetryMax:   retryMax,
			RetryDelay: delay,
			CloseConn:  closeConn,
			ua:         ua,
		},
		Timeout: timeout,
	}, nil
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = &uaPool{
	rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	uas: []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	},
}
