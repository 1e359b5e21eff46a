package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/John-Robertt/cardharvest/internal/config"
	"github.com/John-Robertt/cardharvest/internal/domain"
	"github.com/John-Robertt/cardharvest/internal/infra/fsx"
)

// emitReport 遵守 stdout 契约：
// - stdout 是 TTY：只打印一行摘要（失败条目逐条写 stderr）
// - stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（摘要走 stderr）
func emitReport(e env, rr domain.RunReport) {
	if e.stdoutTTY {
		fmt.Fprintln(e.stdout, summaryLine(rr))
		for _, it := range rr.Items {
			if it.Status == domain.StatusFailed {
				fmt.Fprintf(e.stderr, "%s: %s\n", keyOrUnknown(it.Key), it.ErrorMsg)
			}
		}
		return
	}

	enc := json.NewEncoder(e.stdout)
	_ = enc.Encode(rr)
	fmt.Fprintln(e.stderr, summaryLine(rr))
}

func summaryLine(rr domain.RunReport) string {
	return fmt.Sprintf("完成（%s）：pages=%d/%d scraped=%d inserted=%d skipped=%d failed=%d ok=%v",
		rr.Kind, rr.Pages.Fetched, rr.Pages.Requested,
		rr.Summary.Scraped, rr.Summary.Inserted, rr.Summary.Skipped, rr.Summary.Failed, rr.OK,
	)
}

func keyOrUnknown(k string) string {
	if k == "" {
		return "<unknown>"
	}
	return k
}

func reportForConfigError(kind string, dryRun bool, err error) domain.RunReport {
	now := time.Now()
	rr := domain.RunReport{
		Kind:       kind,
		DryRun:     dryRun,
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Key:      config.Code(err),
			Status:   domain.StatusFailed,
			ErrorMsg: err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func writeReportFile(path string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomic(path, b)
}
