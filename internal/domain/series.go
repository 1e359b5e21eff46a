package domain

import (
	"fmt"
	"strings"
)

// Series 是官方卡表的系列族（卡表 URL 中 series 参数的前缀）。
//
// 约束：只允许下面 5 个取值；前缀码与页数上限由 switch 穷举给出，新增系列必须同时补齐两处。
type Series string

const (
	SeriesStarter Series = "stc" // 起始卡组 ST
	SeriesBooster Series = "set" // 扩展包 OP
	SeriesExtra   Series = "eb"  // 特别扩展包 EB
	SeriesPremium Series = "prb" // 高级扩展包 PRB
	SeriesPromo   Series = "pc"  // 活动/促销卡
)

// AllSeries 是顶层抓取遍历的固定顺序。
var AllSeries = []Series{SeriesStarter, SeriesBooster, SeriesExtra, SeriesPremium, SeriesPromo}

// ParseSeries 接受系列名（大小写不敏感，允许首尾空白）。
func ParseSeries(s string) (Series, bool) {
	v := Series(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := v.Prefix(); !ok {
		return "", false
	}
	return v, true
}

// Prefix 返回卡表 URL 使用的 4 位前缀码。
func (s Series) Prefix() (string, bool) {
	switch s {
	case SeriesStarter:
		return "5690", true
	case SeriesBooster:
		return "5691", true
	case SeriesExtra:
		return "5692", true
	case SeriesPremium:
		return "5693", true
	case SeriesPromo:
		return "5699", true
	default:
		return "", false
	}
}

// MaxPages 返回该系列族允许抓取的最大页数；未知系列返回 0。
func (s Series) MaxPages() int {
	switch s {
	case SeriesStarter:
		return 21
	case SeriesBooster:
		return 10
	case SeriesExtra, SeriesPremium, SeriesPromo:
		return 1
	default:
		return 0
	}
}

// PageIndex 把页码格式化为 2 位补零的字符串（1 => "01"）。
func PageIndex(i int) string {
	return fmt.Sprintf("%02d", i)
}
