package topdecks

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/John-Robertt/cardharvest/internal/domain"
	"github.com/John-Robertt/cardharvest/internal/provider"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("读取 fixture 失败：%v", err)
	}
	return string(b)
}

func TestDecodeDeckList_LeaderAndCards(t *testing.T) {
	leader, cards := DecodeDeckList("1xxxxxxxOP01-001a3xxxxxxxOP01-045")
	if leader != "OP01-001" {
		t.Fatalf("期望 leader=OP01-001，实际 %q", leader)
	}
	want := []domain.DeckCard{{ID: "OP01-045", Quantity: 3}}
	if diff := cmp.Diff(want, cards); diff != "" {
		t.Fatalf("cards 不符合预期 (-want +got):\n%s", diff)
	}
}

func TestDecodeDeckList_BadLeaderQuantityKeepsCards(t *testing.T) {
	logs := captureLogs(t)

	leader, cards := DecodeDeckList("2nOP01-001a4nOP01-025a1nOP01-016")

	if leader != "" {
		t.Fatalf("leader 张数不为 1 时应为空，实际 %q", leader)
	}
	want := []domain.DeckCard{{ID: "OP01-025", Quantity: 4}, {ID: "OP01-016", Quantity: 1}}
	if diff := cmp.Diff(want, cards); diff != "" {
		t.Fatalf("cards 不符合预期 (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs.String(), "level=WARN") || !strings.Contains(logs.String(), "unexpected leader card quantity") {
		t.Fatalf("期望 leader 告警，实际日志：%s", logs.String())
	}
}

func TestDecodeDeckList_Empty(t *testing.T) {
	for _, raw := range []string{"", "   "} {
		leader, cards := DecodeDeckList(raw)
		if leader != "" || len(cards) != 0 {
			t.Fatalf("%q: 期望空结果，实际 leader=%q cards=%v", raw, leader, cards)
		}
	}
}

func TestDecodeDeckList_EdgeEntries(t *testing.T) {
	logs := captureLogs(t)

	// 末尾多余的 a、重复卡号、非数字张数、短条目。
	leader, cards := DecodeDeckList("1OP01-001a4nOP01-025a2nOP01-025axnOP01-016aa3ab")

	if leader != "OP01-001" {
		t.Fatalf("期望 leader=OP01-001，实际 %q", leader)
	}
	want := []domain.DeckCard{
		{ID: "OP01-025", Quantity: 4},
		{ID: "OP01-016", Quantity: 0},
		{ID: "3", Quantity: 3},
		{ID: "b", Quantity: 0},
	}
	if diff := cmp.Diff(want, cards); diff != "" {
		t.Fatalf("cards 不符合预期 (-want +got):\n%s", diff)
	}
	out := logs.String()
	if !strings.Contains(out, "duplicate card in deck list") {
		t.Fatalf("重复卡号应告警：%s", out)
	}
	if !strings.Contains(out, "empty deck list entry") {
		t.Fatalf("空条目应告警：%s", out)
	}
}

func TestParseDecks_Fixture(t *testing.T) {
	decks, ok := ParseDecks(readFixture(t, "op05.html"))
	if !ok {
		t.Fatalf("期望找到卡组表")
	}

	want := []domain.Deck{
		{
			LeaderCardID: "OP05-060",
			Name:         "Purple Luffy",
			Description:  "created 2023-12-02 by Alice & Co",
			Cards: []domain.DeckCard{
				{ID: "OP01-016", Quantity: 4},
				{ID: "OP05-067", Quantity: 4},
				{ID: "ST10-010", Quantity: 2},
			},
		},
		{
			Name:        "Red Zoro",
			Description: "created 2023-12-03 by Bob",
			Cards:       []domain.DeckCard{{ID: "OP01-025", Quantity: 4}},
		},
		{
			Name:        "Empty",
			Description: "created 2023-12-04 by Carol",
		},
	}
	if diff := cmp.Diff(want, decks); diff != "" {
		t.Fatalf("解析结果不符合预期 (-want +got):\n%s", diff)
	}
}

func TestParseDecks_NoTable(t *testing.T) {
	if _, ok := ParseDecks("<html><body><p>maintenance</p></body></html>"); ok {
		t.Fatalf("没有结果表时应返回 ok=false")
	}
}

func TestScrape_SkipsFailedAndTablelessPages(t *testing.T) {
	logs := captureLogs(t)
	page := readFixture(t, "op05.html")

	var calls []string
	f := provider.FetcherFunc(func(ctx context.Context, url string) (string, error) {
		calls = append(calls, url)
		switch {
		case strings.HasSuffix(url, "/op01"):
			return "", &provider.HTTPStatusError{URL: url, StatusCode: 503}
		case strings.HasSuffix(url, "/op02"):
			return "<html></html>", nil
		default:
			return page, nil
		}
	})
	src := Source{
		Fetcher: f,
		URLFor: func(m domain.MetaSet) (string, bool) {
			return "http://decks.test/" + strings.ToLower(string(m)), true
		},
	}

	decks, sum := src.Scrape(context.Background(), []domain.MetaSet{domain.MetaOP01, domain.MetaOP02, domain.MetaOP05})

	if len(calls) != 3 {
		t.Fatalf("单页失败不应中断后续页面：calls=%v", calls)
	}
	if len(decks) != 3 {
		t.Fatalf("期望 3 个卡组，实际 %d", len(decks))
	}
	if sum.Requested != 3 || sum.Fetched != 1 {
		t.Fatalf("页面统计不符合预期：%+v", sum)
	}
	out := logs.String()
	if !strings.Contains(out, "error fetching deck list") || !strings.Contains(out, "deck list table not found") {
		t.Fatalf("失败页面应记录日志：%s", out)
	}
}

func TestScrape_UnknownMetaSetIsNotRequested(t *testing.T) {
	called := false
	f := provider.FetcherFunc(func(ctx context.Context, url string) (string, error) {
		called = true
		return "", errors.New("unexpected")
	})

	decks, sum := Source{Fetcher: f}.Scrape(context.Background(), []domain.MetaSet{"OP99"})
	if called || len(decks) != 0 || sum.Requested != 0 {
		t.Fatalf("未知 MetaSet 不应发出请求：called=%v decks=%d sum=%+v", called, len(decks), sum)
	}
}
