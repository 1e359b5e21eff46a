package cardlist

import (
	"context"
	"log/slog"
	"strings"

	"github.com/John-Robertt/cardharvest/internal/domain"
	"github.com/John-Robertt/cardharvest/internal/provider"
)

// DefaultBaseURL 是官方英文卡表页。
const DefaultBaseURL = "https://en.onepiece-cardgame.com/cardlist/"

// Source 负责官方卡表的分页抓取与解析。
//
// 约束：
// - 严格串行：系列内逐页、系列间逐个
// - 单页失败（空串或 error）只跳过该页，不中断整次抓取
// - 不去重：去重推迟到上传阶段（按 ID）
type Source struct {
	// BaseURL 为空时使用 DefaultBaseURL。
	BaseURL string
	Fetcher provider.Fetcher
}

// Request 描述对一个系列族抓取多少页。
type Request struct {
	Series domain.Series
	Pages  int
}

// DefaultRequests 对每个系列族按其上限抓满。
func DefaultRequests() []Request {
	out := make([]Request, 0, len(domain.AllSeries))
	for _, s := range domain.AllSeries {
		out = append(out, Request{Series: s, Pages: s.MaxPages()})
	}
	return out
}

func (s Source) baseURL() string {
	u := strings.TrimSpace(s.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return u
}

// SeriesURL 构造第 page 页的地址：<base>?series=<prefix><NN>。
func (s Source) SeriesURL(series domain.Series, page int) string {
	prefix, _ := series.Prefix()
	return s.baseURL() + "?series=" + prefix + domain.PageIndex(page)
}

// FetchSeries 抓取某系列族的第 1..count 页，返回成功拿到的页面文本（按页码顺序）。
// 参数不合法时告警并返回空结果，且不发出任何请求。
func (s Source) FetchSeries(ctx context.Context, series domain.Series, count int) []string {
	pages, _ := s.fetchSeries(ctx, series, count)
	return pages
}

func (s Source) fetchSeries(ctx context.Context, series domain.Series, count int) (pages []string, requested int) {
	if !validRange(series, count) {
		return nil, 0
	}

	pages = make([]string, 0, count)
	for i := 1; i <= count; i++ {
		url := s.SeriesURL(series, i)
		slog.Info("fetching card list", "series", series, "page", i, "url", url)

		page, err := s.Fetcher.Fetch(ctx, url)
		if err != nil {
			slog.Error("error fetching card list", "url", url, "err", err)
			continue
		}
		if page == "" {
			slog.Warn("no data found", "url", url)
			continue
		}
		pages = append(pages, page)
	}
	return pages, count
}

func validRange(series domain.Series, count int) bool {
	if series == "" {
		slog.Warn("prefix is required")
		return false
	}
	max := series.MaxPages()
	if max == 0 {
		slog.Warn("unknown series prefix", "series", series)
		return false
	}
	if count < 1 {
		slog.Warn("range must be greater than 0", "series", series, "range", count)
		return false
	}
	if count > max {
		slog.Warn("range exceeds series bound", "series", series, "range", count, "max", max)
		return false
	}
	return true
}

// Scrape 按 reqs 顺序驱动 FetchSeries 并解析所有页面，返回拼接后的全部卡片与页面统计。
func (s Source) Scrape(ctx context.Context, reqs []Request) ([]domain.Card, domain.PageSummary) {
	var (
		cards []domain.Card
		sum   domain.PageSummary
	)
	for _, r := range reqs {
		pages, requested := s.fetchSeries(ctx, r.Series, r.Pages)
		sum.Requested += requested
		sum.Fetched += len(pages)
		for _, p := range pages {
			cards = append(cards, ParseCards(p)...)
		}
	}
	return cards, sum
}
