package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/cardharvest/internal/app/run"
	"github.com/John-Robertt/cardharvest/internal/config"
	"github.com/John-Robertt/cardharvest/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的阶段输出（只写 stderr，不污染 stdout 的 JSON 契约）。
type progressUI struct {
	w io.Writer

	mu        sync.Mutex
	startedAt time.Time
}

func newProgressUI(w io.Writer) *progressUI { return &progressUI{w: w} }

func (p *progressUI) OnStart(kind string, eff config.EffectiveConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.startedAt = now

	mode := "upload"
	if eff.DryRun {
		mode = "dry-run (不写数据库)"
	}
	fmt.Fprintf(p.w, "[%s] cardharvest %s (%s)\n", now.Format("15:04:05"), kind, mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	if !eff.DryRun {
		fmt.Fprintf(p.w, "  database: %s %s\n", eff.Driver, formatDSN(eff.DSN))
	}
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	switch kind {
	case domain.KindCards:
		fmt.Fprintf(p.w, "  card_base_url: %s\n", truncate(eff.CardBaseURL, 120))
		fmt.Fprintf(p.w, "  series: %s\n", formatRequests(eff))
	case domain.KindDecks:
		fmt.Fprintf(p.w, "  meta_sets: %s\n", formatMetaSets(eff.MetaSets))
	}
	if eff.Report != "" {
		fmt.Fprintf(p.w, "  report: %s\n", eff.Report)
	}
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "scrape":
		records := intField(fields, "cards")
		label := "cards"
		if _, ok := fields["decks"]; ok {
			records, label = intField(fields, "decks"), "decks"
		}
		fmt.Fprintf(p.w, "抓取: pages=%d skipped=%d %s=%d (%s)\n",
			intField(fields, "pages"), intField(fields, "skipped"), label, records, formatShortDuration(dur),
		)
	case "upload":
		fmt.Fprintf(p.w, "上传: items=%d ok=%v (%s)\n", intField(fields, "items"), fields["ok"], formatShortDuration(dur))
		fmt.Fprintf(p.w, "总耗时: %s\n", formatShortDuration(time.Since(p.startedAt)))
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func formatRequests(eff config.EffectiveConfig) string {
	parts := make([]string, 0, len(eff.Requests))
	for _, r := range eff.Requests {
		parts = append(parts, fmt.Sprintf("%s:%d", r.Series, r.Pages))
	}
	return strings.Join(parts, " ")
}

func formatMetaSets(ms []domain.MetaSet) string {
	parts := make([]string, 0, len(ms))
	for _, m := range ms {
		parts = append(parts, string(m))
	}
	return strings.Join(parts, ",")
}

// formatDSN 隐藏 URL 形式 DSN 中的密码。
func formatDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return truncate(dsn, 120)
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxx")
	}
	return u.String()
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func intField(fields map[string]any, key string) int {
	if v, ok := fields[key].(int); ok {
		return v
	}
	return 0
}
