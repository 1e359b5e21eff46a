package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/John-Robertt/cardharvest/internal/domain"
	"github.com/John-Robertt/cardharvest/internal/provider/cardlist"
	"github.com/John-Robertt/cardharvest/internal/store"
)

// unsetDatabaseURL 保证测试不受外部环境影响，结束后恢复原值。
func unsetDatabaseURL(t *testing.T) {
	t.Helper()
	t.Setenv(EnvDatabaseURL, "")
	if err := os.Unsetenv(EnvDatabaseURL); err != nil {
		t.Fatalf("unsetenv 失败：%v", err)
	}
}

func TestLoadEffective_Defaults(t *testing.T) {
	unsetDatabaseURL(t)
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Driver != store.DriverSQLite {
		t.Fatalf("期望 driver=sqlite，实际=%q", eff.Driver)
	}
	if want := filepath.Join(cwd, DefaultDSN); eff.DSN != want {
		t.Fatalf("期望 dsn=%q，实际=%q", want, eff.DSN)
	}
	if eff.CardBaseURL != cardlist.DefaultBaseURL {
		t.Fatalf("card_base_url 默认值不符合预期：%q", eff.CardBaseURL)
	}
	if !reflect.DeepEqual(eff.Requests, cardlist.DefaultRequests()) {
		t.Fatalf("默认应抓取全部系列族：%+v", eff.Requests)
	}
	if !reflect.DeepEqual(eff.MetaSets, domain.AllMetaSets) {
		t.Fatalf("默认应抓取全部 meta set：%v", eff.MetaSets)
	}
	if eff.Report != "" || eff.ProxyURL != "" {
		t.Fatalf("report/proxy 默认应为空：%+v", eff)
	}
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	unsetDatabaseURL(t)
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigPath: "missing.json5"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_JSON5AndLocalOverride(t *testing.T) {
	unsetDatabaseURL(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{
		// 注释与尾逗号
		database: { dsn: "data/cards.db" },
		series: { set: 3, eb: 1, },
		meta_sets: ["op01", "OP05"],
		report: "out/report.json",
	}`))
	writeFile(t, filepath.Join(cwd, "cardharvest.local.json5"), []byte(`{
		series: { set: 5 },
		proxy: { url: "http://127.0.0.1:7890" },
	}`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if want := filepath.Join(cwd, "data", "cards.db"); eff.DSN != want {
		t.Fatalf("期望 dsn=%q，实际=%q", want, eff.DSN)
	}
	wantReqs := []cardlist.Request{
		{Series: domain.SeriesBooster, Pages: 5},
		{Series: domain.SeriesExtra, Pages: 1},
	}
	if !reflect.DeepEqual(eff.Requests, wantReqs) {
		t.Fatalf("series 合并不符合预期：%+v", eff.Requests)
	}
	if !reflect.DeepEqual(eff.MetaSets, []domain.MetaSet{domain.MetaOP01, domain.MetaOP05}) {
		t.Fatalf("meta_sets 不符合预期：%v", eff.MetaSets)
	}
	if eff.ProxyURL != "http://127.0.0.1:7890" {
		t.Fatalf("local 覆盖未生效：proxy=%q", eff.ProxyURL)
	}
	if want := filepath.Join(cwd, "out", "report.json"); eff.Report != want {
		t.Fatalf("期望 report=%q，实际=%q", want, eff.Report)
	}
}

func TestLoadEffective_CLIOverridesFile(t *testing.T) {
	unsetDatabaseURL(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{
		database: { driver: "sqlite", dsn: "a.db" },
		series: { set: 3 },
		meta_sets: ["OP01"],
		report: "r.json",
	}`))

	eff, err := LoadEffective(cwd, CLIArgs{
		Driver: "postgres", DriverSet: true,
		DSN: "postgres://u:p@localhost/cards", DSNSet: true,
		Series: []string{"pc", "stc"}, SeriesSet: true,
		MetaSets: []string{"OP10"}, MetaSetsSet: true,
		Report: "", ReportSet: true,
		DryRun: true,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Driver != store.DriverPostgres || eff.DSN != "postgres://u:p@localhost/cards" {
		t.Fatalf("database 覆盖不符合预期：%q %q", eff.Driver, eff.DSN)
	}
	wantReqs := []cardlist.Request{
		{Series: domain.SeriesPromo, Pages: 1},
		{Series: domain.SeriesStarter, Pages: 21},
	}
	if !reflect.DeepEqual(eff.Requests, wantReqs) {
		t.Fatalf("--series 应按给定顺序并使用上限：%+v", eff.Requests)
	}
	if !reflect.DeepEqual(eff.MetaSets, []domain.MetaSet{domain.MetaOP10}) {
		t.Fatalf("--meta 覆盖不符合预期：%v", eff.MetaSets)
	}
	if eff.Report != "" {
		t.Fatalf("--report= 应关闭落盘，实际=%q", eff.Report)
	}
	if !eff.DryRun {
		t.Fatalf("期望 dry_run=true")
	}
}

func TestLoadEffective_DatabaseURLFromDotEnv(t *testing.T) {
	unsetDatabaseURL(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, ".env"), []byte("DATABASE_URL=postgres://u:p@db:5432/cards?sslmode=disable\n"))
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{database: {dsn: "ignored.db"}}`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.DSN != "postgres://u:p@db:5432/cards?sslmode=disable" {
		t.Fatalf("$DATABASE_URL 应优先于配置文件：%q", eff.DSN)
	}
	if eff.Driver != store.DriverPostgres {
		t.Fatalf("postgres:// DSN 应推断为 postgres，实际=%q", eff.Driver)
	}
}

func TestLoadEffective_InvalidFields(t *testing.T) {
	cases := []struct {
		name string
		file string
		cli  CLIArgs
	}{
		{"broken json5", `{`, CLIArgs{}},
		{"bad driver", `{database: {driver: "mysql"}}`, CLIArgs{}},
		{"bad proxy", `{proxy: {url: "http://[::1"}}`, CLIArgs{}},
		{"proxy without scheme", `{proxy: {url: "127.0.0.1:7890"}}`, CLIArgs{}},
		{"bad base url", `{card_base_url: "ftp://x/"}`, CLIArgs{}},
		{"unknown series in file", `{series: {op: 1}}`, CLIArgs{}},
		{"unknown series on cli", `{}`, CLIArgs{Series: []string{"op"}, SeriesSet: true}},
		{"unknown meta set", `{meta_sets: ["OP99"]}`, CLIArgs{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			unsetDatabaseURL(t)
			cwd := t.TempDir()
			writeFile(t, filepath.Join(cwd, FileName), []byte(c.file))

			_, err := LoadEffective(cwd, c.cli)
			if Code(err) != ErrCodeInvalid {
				t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
			}
		})
	}
}

func TestLoadEffective_SeriesPageCountIsNotValidatedHere(t *testing.T) {
	unsetDatabaseURL(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{series: {eb: 5}}`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("越界页数应交给抓取阶段告警，不应是配置错误：%v", err)
	}
	if !reflect.DeepEqual(eff.Requests, []cardlist.Request{{Series: domain.SeriesExtra, Pages: 5}}) {
		t.Fatalf("requests 不符合预期：%+v", eff.Requests)
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
