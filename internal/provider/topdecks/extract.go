package topdecks

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/cardharvest/internal/domain"
	"github.com/John-Robertt/cardharvest/internal/provider"
)

// 卡组表的固定列（TablePress 生成的 td.column-N）。
const (
	selDeckList = "td.column-1"
	selName     = "td.column-4"
	selDate     = "td.column-6"
	selAuthor   = "td.column-8"
)

const (
	// entrySep 分隔卡组串中的条目。
	entrySep = "a"
	// cardIDLen 是条目末尾卡号的固定长度（例如 OP01-001）。
	cardIDLen = 8
)

// ExtractDeck 把卡组表的一行映射为 Deck。
// 缺失的列退化为空串；卡组串为空时得到只有 name/description 的卡组。
func ExtractDeck(row *goquery.Selection) domain.Deck {
	d := domain.Deck{
		Name:        cellText(row, selName),
		Description: "created " + cellText(row, selDate) + " by " + cellText(row, selAuthor),
	}
	d.LeaderCardID, d.Cards = DecodeDeckList(cellText(row, selDeckList))
	return d
}

func cellText(row *goquery.Selection, selector string) string {
	return provider.NormSpace(row.Find(selector).First().Text())
}

// DecodeDeckList 解码站点私有的卡组串：
//
//	<张数><任意前缀字符><8 位卡号>a<张数>...<8 位卡号>a...
//
// 第一个条目是 leader，其张数必须恰好为 1，否则丢弃 leader（告警，不算错误）。
// 其余条目的张数按十进制取首字符，不在这里校验范围（由存储层 CHECK 约束负责）。
// 同一卡号重复出现时只保留第一次（告警），保证 (deck, card) 唯一。
func DecodeDeckList(raw string) (leader string, cards []domain.DeckCard) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	entries := strings.Split(raw, entrySep)

	first := entries[0]
	if q, ok := leadingDigit(first); ok && q == 1 {
		leader = trailingID(first)
	} else {
		slog.Warn("unexpected leader card quantity", "entry", first)
	}

	seen := make(map[string]struct{}, len(entries))
	cards = make([]domain.DeckCard, 0, len(entries)-1)
	for _, e := range entries[1:] {
		if e == "" {
			slog.Warn("empty deck list entry", "raw", raw)
			continue
		}
		id := trailingID(e)
		if _, dup := seen[id]; dup {
			slog.Warn("duplicate card in deck list", "id", id, "raw", raw)
			continue
		}
		seen[id] = struct{}{}

		// 非数字首字符 => 0，插入时会被 quantity CHECK 拒绝。
		q, _ := leadingDigit(e)
		cards = append(cards, domain.DeckCard{ID: id, Quantity: q})
	}
	return leader, cards
}

func leadingDigit(entry string) (int, bool) {
	if entry == "" || entry[0] < '0' || entry[0] > '9' {
		return 0, false
	}
	return int(entry[0] - '0'), true
}

// trailingID 取条目末尾 8 个字符；条目更短时返回整个条目。
func trailingID(entry string) string {
	if len(entry) <= cardIDLen {
		return entry
	}
	return entry[len(entry)-cardIDLen:]
}
