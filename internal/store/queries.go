package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/John-Robertt/cardharvest/internal/domain"
)

const (
	qCardExists = `SELECT 1 FROM cards WHERE id = ?`
	qInsertCard = `INSERT INTO cards (id, rarity, type, name, cost, attribute, power, counter, colour, feature, "set", text)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	qInsertDeck     = `INSERT INTO decks (id, leader_card_id, name, description) VALUES (?, ?, ?, ?)`
	qInsertDeckCard = `INSERT INTO deck_cards (deck_id, card_id, quantity) VALUES (?, ?, ?)`
	qDeleteDeck     = `DELETE FROM decks WHERE id = ?`
)

// CardExists 按 ID 查询卡片是否已入库。
func (s *Store) CardExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, rebind(s.driver, qCardExists), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("查询卡片 %s 失败：%w", id, err)
	}
	return true, nil
}

func (s *Store) InsertCard(ctx context.Context, c domain.Card) error {
	err := s.exec(ctx, qInsertCard,
		c.ID, c.Rarity, c.Type, c.Name, c.Cost, c.Attribute,
		c.Power, c.Counter, c.Colour, c.Feature, c.Set, c.Text,
	)
	if err != nil {
		return fmt.Errorf("插入卡片 %s 失败：%w", c.ID, err)
	}
	return nil
}

// InsertDeck 只写 decks 一行；卡组内的卡由 InsertDeckCard 逐条写入。
func (s *Store) InsertDeck(ctx context.Context, id string, d domain.Deck) error {
	var desc sql.NullString
	if d.Description != "" {
		desc = sql.NullString{String: d.Description, Valid: true}
	}
	if err := s.exec(ctx, qInsertDeck, id, d.LeaderCardID, d.Name, desc); err != nil {
		return fmt.Errorf("插入卡组 %s 失败：%w", id, err)
	}
	return nil
}

func (s *Store) InsertDeckCard(ctx context.Context, deckID string, c domain.DeckCard) error {
	if err := s.exec(ctx, qInsertDeckCard, deckID, c.ID, c.Quantity); err != nil {
		return fmt.Errorf("插入卡组 %s 的卡片 %s 失败：%w", deckID, c.ID, err)
	}
	return nil
}

// DeleteDeck 删除卡组；已写入的 deck_cards 行由 ON DELETE CASCADE 清理。
func (s *Store) DeleteDeck(ctx context.Context, id string) error {
	if err := s.exec(ctx, qDeleteDeck, id); err != nil {
		return fmt.Errorf("删除卡组 %s 失败：%w", id, err)
	}
	return nil
}

// Stats 是各表行数（migrate 命令输出、测试断言）。
type Stats struct {
	Cards     int `json:"cards"`
	Decks     int `json:"decks"`
	DeckCards int `json:"deck_cards"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	for _, t := range []struct {
		table string
		dst   *int
	}{
		{"cards", &st.Cards},
		{"decks", &st.Decks},
		{"deck_cards", &st.DeckCards},
	} {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
			return Stats{}, fmt.Errorf("统计 %s 失败：%w", t.table, err)
		}
	}
	return st, nil
}
