package provider

import "context"

// Fetcher 是页面抓取边界：把 URL 变成页面文本，或一个可区分的失败。
//
// 约束：
// - 不做缓存、不做限速（重试只在 httpx 传输层对幂等 GET 生效）
// - 非 2xx 的处理由具体实现的 StatusPolicy 决定（空串 or *HTTPStatusError）
// - 传输层失败一律返回 error
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetcherFunc 让普通函数满足 Fetcher（测试里用来记录调用）。
type FetcherFunc func(ctx context.Context, url string) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) (string, error) { return f(ctx, url) }
