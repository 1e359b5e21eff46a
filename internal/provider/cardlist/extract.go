package cardlist

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/cardharvest/internal/domain"
	"github.com/John-Robertt/cardharvest/internal/provider"
)

// 卡片字段 => 片段内的 CSS 选择器。每个选择器只取第一个匹配元素的第一个文本子节点。
const (
	selName      = "div.cardName"
	selCost      = "div.cost"
	selAttribute = "div.attribute i"
	selPower     = "div.power"
	selCounter   = "div.counter"
	selColour    = "div.color"
	selFeature   = "div.feature"
	selSet       = "div.getInfo"
	selText      = "div.text"
)

// ParseCards 把一整页卡表 HTML 解析为 Card 列表（页面内每个 .modalCol 一张）。
// 页面无法解析时告警并返回空列表。
func ParseCards(page string) []domain.Card {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		slog.Warn("could not parse card list page", "err", err)
		return nil
	}

	frags := doc.Find(".modalCol")
	out := make([]domain.Card, 0, frags.Length())
	frags.Each(func(_ int, s *goquery.Selection) {
		c := ExtractCard(s)
		slog.Debug("parsed card", "card", c.String())
		out = append(out, c)
	})
	return out
}

// ExtractCard 把单张卡的片段映射为 Card。
//
// 约束：
// - 纯函数：同一片段重复解析得到逐字段相同的结果
// - 不返回错误：缺失的数据退化为空串 / 0
func ExtractCard(s *goquery.Selection) domain.Card {
	var c domain.Card
	c.ID, _ = s.Attr("id")

	// 第一个 span 是卡号，最后两个是布局装饰；中间依次为 [rarity, type]。
	spans := spanTexts(s)
	if len(spans) > 0 {
		c.Rarity = spans[0]
	}
	if len(spans) > 1 {
		c.Type = spans[1]
	}

	c.Name, _ = field(s, selName)
	c.Cost, _ = count(s, selCost)
	c.Attribute, _ = field(s, selAttribute)
	c.Power, _ = count(s, selPower)
	c.Counter, _ = count(s, selCounter)
	c.Colour, _ = field(s, selColour)
	c.Feature, _ = field(s, selFeature)
	c.Set, _ = field(s, selSet)
	c.Text, _ = field(s, selText)
	return c
}

func spanTexts(s *goquery.Selection) []string {
	spans := s.Find("span")
	n := spans.Length()
	if n <= 3 {
		return nil
	}
	out := make([]string, 0, n-3)
	spans.Slice(1, n-2).Each(func(_ int, sp *goquery.Selection) {
		out = append(out, strings.TrimSpace(sp.Text()))
	})
	return out
}

func field(s *goquery.Selection, selector string) (string, bool) {
	return provider.FirstText(s.Find(selector).First())
}

func count(s *goquery.Selection, selector string) (int, bool) {
	txt, ok := field(s, selector)
	if !ok {
		return 0, false
	}
	return provider.ParseCount(txt), true
}
