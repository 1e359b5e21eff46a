package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	KindCards = "cards"
	KindDecks = "decks"
)

const (
	StatusInserted = "inserted"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
	// StatusScraped 只出现在 dry-run：记录已解析但没有上传。
	StatusScraped = "scraped"
)

// RunReport 是一次 cards/decks 流水线的对外稳定输出（stdout JSON / report 文件）。
type RunReport struct {
	Kind   string `json:"kind"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Pages   PageSummary   `json:"pages"`
	Summary ReportSummary `json:"summary"`
	// OK 是上传入口返回的成功标志；dry-run 时恒为 true。
	OK    bool         `json:"ok"`
	Items []ItemResult `json:"items"`
}

// PageSummary 统计页面级抓取结果（requested - fetched 即被跳过的页数）。
type PageSummary struct {
	Requested int `json:"requested"`
	Fetched   int `json:"fetched"`
}

type ReportSummary struct {
	Scraped  int `json:"scraped"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// ItemResult 是单条记录（卡或卡组）的上传结果。
// 卡片的 Key 是卡号；卡组没有自然键，Key 是上传时生成的 ID 加卡组名。
type ItemResult struct {
	Key      string `json:"key"`
	Status   string `json:"status"`
	ErrorMsg string `json:"error_msg,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) items 稳定排序：failed 在前（便于人工排查），其余保持上传顺序
// 3) summary 由 items 计算得出（Scraped 由调用方预先填好，这里不动）
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		return r.Items[i].Status == StatusFailed && r.Items[j].Status != StatusFailed
	})

	s := ReportSummary{Scraped: r.Summary.Scraped}
	for _, it := range r.Items {
		switch it.Status {
		case StatusInserted:
			s.Inserted++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
	if r.Items == nil {
		r.Items = []ItemResult{}
	}
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
