package domain

import "fmt"

// Card 是从官方卡表页面解析出的一张卡（每个 .modalCol 片段一张）。
//
// 约束：
// - ID 是站点分配的卡号，全库唯一；重复抓取不能产生重复行
// - 构造后不可变；上传时只插入不覆盖（已存在的 ID 直接跳过）
// - 数值字段缺失或无法解析时为 0，永远不会是负数
type Card struct {
	ID        string `json:"id"`
	Rarity    string `json:"rarity"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Cost      int    `json:"cost"`
	Attribute string `json:"attribute"`
	Power     int    `json:"power"`
	Counter   int    `json:"counter"`
	Colour    string `json:"colour"`
	Feature   string `json:"feature"`
	// Set 是卡面上印的收录弹名（例如 "-ROMANCE DAWN- [OP01]"），与抓取时的 series 参数无关。
	Set  string `json:"set"`
	Text string `json:"text"`
}

func (c Card) String() string {
	return fmt.Sprintf("Card { id: %s, rarity: %s, type: %s, name: %s, cost: %d, attribute: %s, power: %d, counter: %d, colour: %s, feature: %s, set: %s }",
		c.ID, c.Rarity, c.Type, c.Name, c.Cost, c.Attribute, c.Power, c.Counter, c.Colour, c.Feature, c.Set)
}
