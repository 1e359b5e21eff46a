package provider

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// FirstText 返回 sel 第一个元素下“第一个非空白的直接文本子节点”（已 trim）。
// 嵌套元素（图标、<h3> 标题等）里的文字一律忽略。
//
// 实体解码由 html 解析器完成：TextNode.Data 已是解码后的文本，这里不能再解码一次。
// 找不到元素或文本节点时返回 ok=false，由调用方决定默认值。
func FirstText(sel *goquery.Selection) (string, bool) {
	if sel == nil || sel.Length() == 0 {
		return "", false
	}
	for n := sel.Get(0).FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.TextNode {
			continue
		}
		if s := strings.TrimSpace(n.Data); s != "" {
			return s, true
		}
	}
	return "", false
}

// ParseCount 按十进制解析前导数字段："3" => 3，"5000" => 5000，"2abc" => 2。
// 空串、"-"、带符号或非数字开头一律为 0（结果不会是负数）。
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// 位数过多导致溢出：按无法解析处理。
		return 0
	}
	return n
}

// NormSpace 把连续空白折叠成单个空格并去掉首尾空白。
func NormSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
