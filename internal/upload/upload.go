// Package upload 把抓取结果幂等地写入存储。
//
// 两条流水线的失败语义刻意不同：
// - Cards：卡片插入失败会中止整批（返回 ok=false）
// - Decks：单个卡组失败只回滚该卡组并继续（始终 ok=true）
package upload

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/John-Robertt/cardharvest/internal/domain"
)

// CardStore 是卡片上传需要的最小存储能力。
type CardStore interface {
	CardExists(ctx context.Context, id string) (bool, error)
	InsertCard(ctx context.Context, c domain.Card) error
}

// DeckStore 是卡组上传需要的最小存储能力。
type DeckStore interface {
	InsertDeck(ctx context.Context, id string, d domain.Deck) error
	InsertDeckCard(ctx context.Context, deckID string, c domain.DeckCard) error
	DeleteDeck(ctx context.Context, id string) error
}

// Cards 逐张对账并插入卡片。
//
// 约束：
// - 已存在的 ID 跳过（重复运行不产生重复行；同批内重复的卡号也只插入第一次）
// - 存在性查询失败：记录日志，跳过该卡，继续
// - 插入失败：记录日志并中止，返回 ok=false；已插入的卡保留
func Cards(ctx context.Context, st CardStore, cards []domain.Card) (items []domain.ItemResult, ok bool) {
	items = make([]domain.ItemResult, 0, len(cards))
	for _, c := range cards {
		exists, err := st.CardExists(ctx, c.ID)
		if err != nil {
			slog.Error("error checking card", "id", c.ID, "err", err)
			items = append(items, domain.ItemResult{Key: c.ID, Status: domain.StatusFailed, ErrorMsg: err.Error()})
			continue
		}
		if exists {
			slog.Debug("card already exists", "id", c.ID)
			items = append(items, domain.ItemResult{Key: c.ID, Status: domain.StatusSkipped})
			continue
		}
		if err := st.InsertCard(ctx, c); err != nil {
			slog.Error("error inserting card", "id", c.ID, "name", c.Name, "err", err)
			items = append(items, domain.ItemResult{Key: c.ID, Status: domain.StatusFailed, ErrorMsg: err.Error()})
			return items, false
		}
		slog.Debug("inserted card", "id", c.ID)
		items = append(items, domain.ItemResult{Key: c.ID, Status: domain.StatusInserted})
	}
	slog.Info("all cards inserted successfully", "count", len(cards))
	return items, true
}

// Decks 为每个卡组生成新 ID，写入卡组行与全部 deck_cards 行。
//
// 任一步失败：记录日志，尽力删除该卡组（已写入的 deck_cards 由级联删除清理），继续下一个。
// 卡组没有自然键，重复运行会再次插入同样的卡组。
// newID 为空时使用随机 UUID。ok 恒为 true：单个卡组的失败不会上升为批次失败。
func Decks(ctx context.Context, st DeckStore, decks []domain.Deck, newID func() string) (items []domain.ItemResult, ok bool) {
	if newID == nil {
		newID = uuid.NewString
	}
	items = make([]domain.ItemResult, 0, len(decks))
	for _, d := range decks {
		id := newID()
		if err := insertDeck(ctx, st, id, d); err != nil {
			slog.Error("error inserting deck", "deck", d.String(), "id", id, "err", err)
			if derr := st.DeleteDeck(ctx, id); derr != nil {
				slog.Warn("error deleting partial deck", "id", id, "err", derr)
			}
			items = append(items, domain.ItemResult{Key: deckKey(id, d), Status: domain.StatusFailed, ErrorMsg: err.Error()})
			continue
		}
		slog.Debug("inserted deck", "id", id, "name", d.Name, "cards", len(d.Cards))
		items = append(items, domain.ItemResult{Key: deckKey(id, d), Status: domain.StatusInserted})
	}
	slog.Info("all decks processed", "count", len(decks))
	return items, true
}

func insertDeck(ctx context.Context, st DeckStore, id string, d domain.Deck) error {
	if err := st.InsertDeck(ctx, id, d); err != nil {
		return err
	}
	for _, c := range d.Cards {
		if err := st.InsertDeckCard(ctx, id, c); err != nil {
			return err
		}
	}
	return nil
}

func deckKey(id string, d domain.Deck) string {
	if d.Name == "" {
		return id
	}
	return id + " " + d.Name
}
