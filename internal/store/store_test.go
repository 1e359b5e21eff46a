package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/cardharvest/internal/domain"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func card(id string) domain.Card {
	return domain.Card{
		ID: id, Rarity: "C", Type: "CHARACTER", Name: "n-" + id, Cost: 1,
		Attribute: "Slash", Power: 1000, Counter: 1000, Colour: "Red",
		Feature: "Straw Hat Crew", Set: "-ROMANCE DAWN- [OP01]", Text: "",
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestCards_InsertAndExists(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	ok, err := s.CardExists(ctx, "OP01-001")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.InsertCard(ctx, card("OP01-001")))

	ok, err = s.CardExists(ctx, "OP01-001")
	require.NoError(t, err)
	require.True(t, ok)

	// 主键冲突
	require.Error(t, s.InsertCard(ctx, card("OP01-001")))
}

func TestDeckCards_Constraints(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	require.NoError(t, s.InsertCard(ctx, card("OP01-001")))
	require.NoError(t, s.InsertCard(ctx, card("OP01-016")))

	deck := domain.Deck{LeaderCardID: "OP01-001", Name: "Red Zoro", Description: "created 2023-12-03 by Bob"}
	require.NoError(t, s.InsertDeck(ctx, "d1", deck))

	require.NoError(t, s.InsertDeckCard(ctx, "d1", domain.DeckCard{ID: "OP01-016", Quantity: 4}))
	require.Error(t, s.InsertDeckCard(ctx, "d1", domain.DeckCard{ID: "OP01-016", Quantity: 1}), "同一卡组同一张卡不能登记两次")

	for _, q := range []int{0, 5} {
		require.Error(t, s.InsertDeckCard(ctx, "d1", domain.DeckCard{ID: "OP01-001", Quantity: q}), "quantity=%d 应被拒绝", q)
	}
	require.Error(t, s.InsertDeckCard(ctx, "d1", domain.DeckCard{ID: "OP99-999", Quantity: 1}), "未知卡号应违反外键")
	require.Error(t, s.InsertDeckCard(ctx, "missing", domain.DeckCard{ID: "OP01-001", Quantity: 1}), "未知卡组应违反外键")
}

func TestInsertDeck_UnknownOrMissingLeaderFails(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	require.Error(t, s.InsertDeck(ctx, "d1", domain.Deck{LeaderCardID: "OP99-999", Name: "x"}))
	require.Error(t, s.InsertDeck(ctx, "d2", domain.Deck{Name: "no leader"}))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{}, st)
}

func TestDeleteDeck_CascadesJoinRows(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	require.NoError(t, s.InsertCard(ctx, card("OP01-001")))
	require.NoError(t, s.InsertCard(ctx, card("OP01-016")))
	require.NoError(t, s.InsertCard(ctx, card("OP01-025")))

	require.NoError(t, s.InsertDeck(ctx, "d1", domain.Deck{LeaderCardID: "OP01-001", Name: "a"}))
	require.NoError(t, s.InsertDeckCard(ctx, "d1", domain.DeckCard{ID: "OP01-016", Quantity: 4}))
	require.NoError(t, s.InsertDeckCard(ctx, "d1", domain.DeckCard{ID: "OP01-025", Quantity: 2}))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{Cards: 3, Decks: 1, DeckCards: 2}, st)

	require.NoError(t, s.DeleteDeck(ctx, "d1"))

	st, err = s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{Cards: 3}, st)

	// 删除不存在的卡组不是错误
	require.NoError(t, s.DeleteDeck(ctx, "d1"))
}

func TestDeleteCard_CascadesToDecks(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	require.NoError(t, s.InsertCard(ctx, card("OP01-001")))
	require.NoError(t, s.InsertCard(ctx, card("OP01-016")))
	require.NoError(t, s.InsertDeck(ctx, "d1", domain.Deck{LeaderCardID: "OP01-001", Name: "a"}))
	require.NoError(t, s.InsertDeckCard(ctx, "d1", domain.DeckCard{ID: "OP01-016", Quantity: 4}))

	_, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = 'OP01-001'`)
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{Cards: 1}, st)
}

func TestRebind(t *testing.T) {
	q := `INSERT INTO t (a, b) VALUES (?, ?)`
	require.Equal(t, q, rebind(DriverSQLite, q))
	require.Equal(t, `INSERT INTO t (a, b) VALUES ($1, $2)`, rebind(DriverPostgres, q))
}

func TestParseDriver(t *testing.T) {
	for in, want := range map[string]Driver{
		"":           DriverSQLite,
		"SQLite":     DriverSQLite,
		"postgresql": DriverPostgres,
		"pg":         DriverPostgres,
	} {
		got, ok := ParseDriver(in)
		require.True(t, ok, in)
		require.Equal(t, want, got, in)
	}
	_, ok := ParseDriver("mysql")
	require.False(t, ok)
}

func TestOpen_RejectsBadInput(t *testing.T) {
	_, err := Open(context.Background(), DriverSQLite, " ")
	require.Error(t, err)
	_, err = Open(context.Background(), Driver("mysql"), "x")
	require.Error(t, err)
}
