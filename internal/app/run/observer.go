package run

import (
	"time"

	"github.com/John-Robertt/cardharvest/internal/config"
)

// Observer 把“运行进度/阶段”从流水线中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）
// - 流水线严格串行，事件按发生顺序同步投递
type Observer interface {
	// OnStart 在流水线开始时调用。
	OnStart(kind string, eff config.EffectiveConfig)
	// OnPhaseDone 在 scrape / upload 阶段结束时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
}

type nopObserver struct{}

func (nopObserver) OnStart(string, config.EffectiveConfig)             {}
func (nopObserver) OnPhaseDone(string, map[string]any, time.Duration) {}
