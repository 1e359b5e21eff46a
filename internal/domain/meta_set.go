package domain

import "strings"

// MetaSet 是 meta 卡组站点上按弹划分的卡组列表页（每个已发售的扩展包一页）。
type MetaSet string

const (
	MetaOP01 MetaSet = "OP01"
	MetaOP02 MetaSet = "OP02"
	MetaOP03 MetaSet = "OP03"
	MetaOP04 MetaSet = "OP04"
	MetaOP05 MetaSet = "OP05"
	MetaOP06 MetaSet = "OP06"
	MetaOP07 MetaSet = "OP07"
	MetaOP08 MetaSet = "OP08"
	MetaOP09 MetaSet = "OP09"
	MetaOP10 MetaSet = "OP10"
)

// AllMetaSets 是顶层抓取遍历的固定顺序。
var AllMetaSets = []MetaSet{
	MetaOP01, MetaOP02, MetaOP03, MetaOP04, MetaOP05,
	MetaOP06, MetaOP07, MetaOP08, MetaOP09, MetaOP10,
}

// ParseMetaSet 接受 "op01" / "OP01" 等写法。
func ParseMetaSet(s string) (MetaSet, bool) {
	v := MetaSet(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := v.URL(); !ok {
		return "", false
	}
	return v, true
}

// URL 返回该弹的卡组列表页地址。站点的 slug 并不规则，只能逐个列出。
func (m MetaSet) URL() (string, bool) {
	const base = "https://onepiecetopdecks.com/deck-list/"
	switch m {
	case MetaOP01:
		return base + "english-format-op1-and-st1to4-meta-decks/", true
	case MetaOP02:
		return base + "en-format-op02-paramount-war-decklist/", true
	case MetaOP03:
		return base + "en-format-op03-mighty-enemy-decklist/", true
	case MetaOP04:
		return base + "en-format-op04-kingdom-of-intrigue-decklist/", true
	case MetaOP05:
		return base + "en-format-op05-awakening-of-the-new-era/", true
	case MetaOP06:
		return base + "en-format-op-06-wings-of-the-captain-decks/", true
	case MetaOP07:
		return base + "english-op-07-500-years-into-the-future-decks/", true
	case MetaOP08:
		return base + "english-op-08-two-legends-decks/", true
	case MetaOP09:
		return base + "english-op-09-the-new-emperor-decks/", true
	case MetaOP10:
		return base + "english-op-10-the-royal-bloodline-decks/", true
	default:
		return "", false
	}
}
