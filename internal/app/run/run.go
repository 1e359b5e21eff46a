// Package run 串起一次完整的批处理：抓取 -> 上传（或 dry-run）-> RunReport。
package run

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/John-Robertt/cardharvest/internal/config"
	"github.com/John-Robertt/cardharvest/internal/domain"
	"github.com/John-Robertt/cardharvest/internal/infra/httpx"
	"github.com/John-Robertt/cardharvest/internal/provider"
	"github.com/John-Robertt/cardharvest/internal/provider/cardlist"
	"github.com/John-Robertt/cardharvest/internal/provider/topdecks"
	"github.com/John-Robertt/cardharvest/internal/upload"
)

// NewFetcher 按配置构造页面抓取器：httpx 传输策略 + resty client。
// 卡表用 StatusEmpty（非 2xx 视为空页），卡组用 StatusError（非 2xx 视为页面级失败）。
func NewFetcher(eff config.EffectiveConfig, policy provider.StatusPolicy) (provider.Fetcher, error) {
	hc, err := httpx.NewPageClient(httpx.Options{ProxyURL: eff.ProxyURL})
	if err != nil {
		return nil, fmt.Errorf("构造 HTTP client 失败：%w", err)
	}
	return provider.NewClient(hc, policy)
}

// Cards 执行卡片流水线。st 在 dry-run 时可以为 nil。
func Cards(ctx context.Context, eff config.EffectiveConfig, f provider.Fetcher, st upload.CardStore, obs Observer) domain.RunReport {
	if obs == nil {
		obs = nopObserver{}
	}
	rr := domain.RunReport{Kind: domain.KindCards, DryRun: eff.DryRun, StartedAt: time.Now()}
	obs.OnStart(domain.KindCards, eff)

	began := time.Now()
	src := cardlist.Source{BaseURL: eff.CardBaseURL, Fetcher: f}
	cards, pages := src.Scrape(ctx, eff.Requests)
	rr.Pages = pages
	rr.Summary.Scraped = len(cards)
	obs.OnPhaseDone("scrape", map[string]any{
		"pages":   pages.Fetched,
		"skipped": pages.Requested - pages.Fetched,
		"cards":   len(cards),
	}, time.Since(began))

	if eff.DryRun || st == nil {
		rr.Items = scrapedItems(len(cards), func(i int) string { return cards[i].ID })
		rr.OK = true
		return finish(rr)
	}

	began = time.Now()
	items, ok := upload.Cards(ctx, st, cards)
	rr.Items, rr.OK = items, ok
	if !ok {
		slog.Error("card upload aborted")
	}
	obs.OnPhaseDone("upload", map[string]any{"items": len(items), "ok": ok}, time.Since(began))
	return finish(rr)
}

// Decks 执行卡组流水线。st 在 dry-run 时可以为 nil；newID 为 nil 时使用随机 UUID。
func Decks(ctx context.Context, eff config.EffectiveConfig, f provider.Fetcher, st upload.DeckStore, newID func() string, obs Observer) domain.RunReport {
	if obs == nil {
		obs = nopObserver{}
	}
	rr := domain.RunReport{Kind: domain.KindDecks, DryRun: eff.DryRun, StartedAt: time.Now()}
	obs.OnStart(domain.KindDecks, eff)

	began := time.Now()
	decks, pages := topdecks.Source{Fetcher: f}.Scrape(ctx, eff.MetaSets)
	rr.Pages = pages
	rr.Summary.Scraped = len(decks)
	obs.OnPhaseDone("scrape", map[string]any{
		"pages":   pages.Fetched,
		"skipped": pages.Requested - pages.Fetched,
		"decks":   len(decks),
	}, time.Since(began))

	if eff.DryRun || st == nil {
		rr.Items = scrapedItems(len(decks), func(i int) string { return decks[i].Name })
		rr.OK = true
		return finish(rr)
	}

	began = time.Now()
	items, ok := upload.Decks(ctx, st, decks, newID)
	rr.Items, rr.OK = items, ok
	obs.OnPhaseDone("upload", map[string]any{"items": len(items), "ok": ok}, time.Since(began))
	return finish(rr)
}

func scrapedItems(n int, key func(int) string) []domain.ItemResult {
	out := make([]domain.ItemResult, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.ItemResult{Key: key(i), Status: domain.StatusScraped})
	}
	return out
}

func finish(rr domain.RunReport) domain.RunReport {
	rr.FinishedAt = time.Now()
	rr.Finalize()
	return rr
}
