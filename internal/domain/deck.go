package domain

import "fmt"

const (
	// MinCardQuantity / MaxCardQuantity 是 deck_cards.quantity 的合法范围（由存储层 CHECK 约束执行）。
	MinCardQuantity = 1
	MaxCardQuantity = 4
)

// DeckCard 是卡组中的一条 (卡号, 张数)。
type DeckCard struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// Deck 是 meta 卡组表中的一行。
//
// 约束：
// - 卡组 ID 在上传时才生成（这里不持有）
// - LeaderCardID 为空表示 leader 条目不合法（已告警），其余卡仍然保留
// - Cards 内卡号不重复：同一卡组不会对同一张卡登记两次
type Deck struct {
	LeaderCardID string     `json:"leader_card_id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Cards        []DeckCard `json:"cards"`
}

func (d Deck) String() string {
	return fmt.Sprintf("Deck { leaderCardId: %s, name: %s, description: %s }", d.LeaderCardID, d.Name, d.Description)
}
