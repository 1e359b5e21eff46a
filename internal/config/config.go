package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"

	"github.com/John-Robertt/cardharvest/internal/domain"
	"github.com/John-Robertt/cardharvest/internal/provider/cardlist"
	"github.com/John-Robertt/cardharvest/internal/store"
)

const (
	// ErrCodeNotFound 表示显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是工作目录下的默认配置文件（可选）；同目录的 cardharvest.local.json5 覆盖其字段。
	FileName = "cardharvest.json5"
	// DefaultDSN 是 sqlite 的默认库文件（相对工作目录）。
	DefaultDSN = "cardharvest.db"
	// EnvDatabaseURL 提供 DSN（可来自 .env）。
	EnvDatabaseURL = "DATABASE_URL"
)

// CLIArgs 是命令行可以覆盖的字段，并保留“是否显式指定”的信息：
// 例如 --series 必须能覆盖配置文件里的 series。
type CLIArgs struct {
	// ConfigPath 非空时必须存在；为空时读取 <cwd>/cardharvest.json5（可选）。
	ConfigPath string

	Driver    string
	DriverSet bool

	DSN    string
	DSNSet bool

	ProxyURL string
	ProxySet bool

	Report    string
	ReportSet bool

	Series    []string
	SeriesSet bool

	MetaSets    []string
	MetaSetsSet bool

	DryRun bool
}

// FileConfig 对应 cardharvest.json5 的解析结构。
type FileConfig struct {
	Database    DatabaseConfig `json:"database"`
	Proxy       *ProxyConfig   `json:"proxy"`
	CardBaseURL string         `json:"card_base_url"`
	// Series 是 系列族 => 页数；为空表示全部系列族按上限抓满。
	Series   map[string]int `json:"series"`
	MetaSets []string       `json:"meta_sets"`
	Report   string         `json:"report"`
}

type DatabaseConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Driver store.Driver
	DSN    string

	ProxyURL    string
	CardBaseURL string

	Requests []cardlist.Request
	MetaSets []domain.MetaSet

	// Report 为空表示不落盘。
	Report string
	DryRun bool
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取 .env 与配置文件，然后与 CLI 参数合并为最终配置。
//
// 覆盖优先级（固定）：
// - database.dsn：CLI --db > $DATABASE_URL > 配置文件 > 默认 cardharvest.db
// - database.driver：CLI --driver > 配置文件 > 由 DSN 推断（postgres:// => postgres）> sqlite
// - proxy.url / report：CLI > 配置文件
// - series / meta_sets：CLI 列表 > 配置文件 > 全部
// - card_base_url：仅由配置文件控制
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	// .env 不存在不是错误；已存在的环境变量不会被覆盖。
	envPath := filepath.Join(cwdAbs, ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: envPath, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	required := false
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		required = true
	}
	fc, exists, err := ReadFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if required && !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}

	eff, err := merge(cwdAbs, cli, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	return eff, nil
}

func merge(cwd string, cli CLIArgs, fc FileConfig) (EffectiveConfig, error) {
	dsn := DefaultDSN
	dsnFromDefault := true
	switch {
	case cli.DSNSet:
		dsn, dsnFromDefault = strings.TrimSpace(cli.DSN), false
	case strings.TrimSpace(os.Getenv(EnvDatabaseURL)) != "":
		dsn, dsnFromDefault = strings.TrimSpace(os.Getenv(EnvDatabaseURL)), false
	case strings.TrimSpace(fc.Database.DSN) != "":
		dsn, dsnFromDefault = strings.TrimSpace(fc.Database.DSN), false
	}
	if dsn == "" {
		return EffectiveConfig{}, errors.New("database.dsn 不能为空")
	}

	driverName := ""
	if cli.DriverSet {
		driverName = cli.Driver
	} else if strings.TrimSpace(fc.Database.Driver) != "" {
		driverName = fc.Database.Driver
	} else if !dsnFromDefault && looksLikePostgres(dsn) {
		driverName = string(store.DriverPostgres)
	}
	driver, ok := store.ParseDriver(driverName)
	if !ok {
		return EffectiveConfig{}, fmt.Errorf("database.driver 只能是 sqlite 或 postgres，实际是 %q", driverName)
	}
	if driver == store.DriverSQLite && isPlainPath(dsn) {
		dsn = absCleanFrom(cwd, dsn)
	}

	proxyURL := ""
	if cli.ProxySet {
		proxyURL = strings.TrimSpace(cli.ProxyURL)
	} else if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		if err := validateHTTPURL("proxy.url", proxyURL); err != nil {
			return EffectiveConfig{}, err
		}
	}

	baseURL := strings.TrimSpace(fc.CardBaseURL)
	if baseURL == "" {
		baseURL = cardlist.DefaultBaseURL
	} else if err := validateHTTPURL("card_base_url", baseURL); err != nil {
		return EffectiveConfig{}, err
	}

	reqs, err := requests(cli, fc)
	if err != nil {
		return EffectiveConfig{}, err
	}
	metas, err := metaSets(cli, fc)
	if err != nil {
		return EffectiveConfig{}, err
	}

	report := strings.TrimSpace(fc.Report)
	if cli.ReportSet {
		report = strings.TrimSpace(cli.Report)
	}
	if report != "" {
		report = absCleanFrom(cwd, report)
	}

	return EffectiveConfig{
		Driver:      driver,
		DSN:         dsn,
		ProxyURL:    proxyURL,
		CardBaseURL: baseURL,
		Requests:    reqs,
		MetaSets:    metas,
		Report:      report,
		DryRun:      cli.DryRun,
	}, nil
}

// requests 决定抓取哪些系列族、每族多少页。页数本身不在这里校验：越界由 Orchestrator 告警并跳过。
func requests(cli CLIArgs, fc FileConfig) ([]cardlist.Request, error) {
	pages := make(map[domain.Series]int, len(fc.Series))
	for name, n := range fc.Series {
		s, ok := domain.ParseSeries(name)
		if !ok {
			return nil, fmt.Errorf("series 含未知系列族 %q", name)
		}
		pages[s] = n
	}

	var families []domain.Series
	switch {
	case cli.SeriesSet:
		for _, name := range cli.Series {
			s, ok := domain.ParseSeries(name)
			if !ok {
				return nil, fmt.Errorf("未知系列族 %q（可选：stc, set, eb, prb, pc）", name)
			}
			families = append(families, s)
		}
	case len(pages) > 0:
		// 按固定顺序遍历，避免 map 的随机顺序影响抓取顺序。
		for _, s := range domain.AllSeries {
			if _, ok := pages[s]; ok {
				families = append(families, s)
			}
		}
	default:
		families = domain.AllSeries
	}

	out := make([]cardlist.Request, 0, len(families))
	for _, s := range families {
		n, ok := pages[s]
		if !ok {
			n = s.MaxPages()
		}
		out = append(out, cardlist.Request{Series: s, Pages: n})
	}
	return out, nil
}

func metaSets(cli CLIArgs, fc FileConfig) ([]domain.MetaSet, error) {
	names := fc.MetaSets
	if cli.MetaSetsSet {
		names = cli.MetaSets
	}
	if len(names) == 0 {
		return append([]domain.MetaSet(nil), domain.AllMetaSets...), nil
	}
	out := make([]domain.MetaSet, 0, len(names))
	for _, name := range names {
		m, ok := domain.ParseMetaSet(name)
		if !ok {
			return nil, fmt.Errorf("未知 meta set %q（可选：OP01..OP10）", name)
		}
		out = append(out, m)
	}
	return out, nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s 无效：%q", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" && !(field == "proxy.url" && strings.HasPrefix(u.Scheme, "socks5")) {
		return fmt.Errorf("%s 必须是 http/https：%q", field, raw)
	}
	return nil
}

func looksLikePostgres(dsn string) bool {
	d := strings.ToLower(dsn)
	return strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") || strings.Contains(d, "host=")
}

// isPlainPath 判断 sqlite DSN 是否为普通文件路径（file: URI 与 :memory: 原样保留）。
func isPlainPath(dsn string) bool {
	return dsn != ":memory:" && !strings.HasPrefix(dsn, "file:")
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// ReadFileConfig 读取 path 并叠加同目录的 <name>.local.<ext>（后者字段优先）。
// 返回值 exists 表示两者至少有一个存在（都不存在不算错误）。
func ReadFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return FileConfig{}, false, err
	}
	if len(b) > 0 {
		if err := json5.Unmarshal(b, &fc); err != nil {
			return FileConfig{}, true, err
		}
	}
	exists = err == nil

	local := localPath(path)
	lb, err := os.ReadFile(local)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, exists, nil
		}
		return FileConfig{}, exists, err
	}
	var override FileConfig
	if len(lb) > 0 {
		if err := json5.Unmarshal(lb, &override); err != nil {
			return FileConfig{}, true, fmt.Errorf("%s：%w", local, err)
		}
	}
	if err := mergo.Merge(&fc, override, mergo.WithOverride); err != nil {
		return FileConfig{}, true, err
	}
	slog.Debug("merging config with local overrides", "local", local)
	return fc, true, nil
}

func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}
