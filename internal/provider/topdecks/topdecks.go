package topdecks

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/cardharvest/internal/domain"
	"github.com/John-Robertt/cardharvest/internal/provider"
)

// Source 负责 meta 卡组站点的抓取与解析。
//
// 约束：
// - 每个 MetaSet 一页，严格串行
// - 抓取失败或页面里找不到结果表：告警并跳过该页，继续下一页
type Source struct {
	Fetcher provider.Fetcher
	// URLFor 允许替换 MetaSet => URL 的映射（测试指向本地服务器）；为空时使用 MetaSet.URL。
	URLFor func(domain.MetaSet) (string, bool)
}

func (s Source) urlFor(m domain.MetaSet) (string, bool) {
	if s.URLFor != nil {
		return s.URLFor(m)
	}
	return m.URL()
}

// Scrape 依次抓取 sets 对应的卡组列表页，返回全部卡组与页面统计。
func (s Source) Scrape(ctx context.Context, sets []domain.MetaSet) ([]domain.Deck, domain.PageSummary) {
	var (
		decks []domain.Deck
		sum   domain.PageSummary
	)
	for _, m := range sets {
		url, ok := s.urlFor(m)
		if !ok {
			slog.Warn("unknown meta set", "set", m)
			continue
		}
		sum.Requested++

		slog.Info("fetching deck list", "set", m, "url", url)
		page, err := s.Fetcher.Fetch(ctx, url)
		if err != nil {
			slog.Error("error fetching deck list", "url", url, "err", err)
			continue
		}

		rows, ok := ParseDecks(page)
		if !ok {
			slog.Warn("deck list table not found", "url", url)
			continue
		}
		sum.Fetched++
		decks = append(decks, rows...)
	}
	return decks, sum
}

// ParseDecks 解析一页卡组列表。页面里没有结果表（tbody.row-hover）时 ok=false。
func ParseDecks(page string) ([]domain.Deck, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, false
	}
	table := doc.Find("tbody.row-hover").First()
	if table.Length() == 0 {
		return nil, false
	}

	rows := table.Find("tr")
	out := make([]domain.Deck, 0, rows.Length())
	rows.Each(func(_ int, tr *goquery.Selection) {
		d := ExtractDeck(tr)
		slog.Debug("parsed deck", "deck", d.String(), "cards", len(d.Cards))
		out = append(out, d)
	})
	return out, true
}
