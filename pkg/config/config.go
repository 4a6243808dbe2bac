package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shouni/go-steam-images/pkg/httpclient"
)

const (
	// DefaultPageURL はスクレイピング対象の既定ページです。
	DefaultPageURL = "https://steamcommunity.com/sharedfiles/filedetails/?id=2804456563"
	// DefaultFolder は既定の保存先フォルダです。
	DefaultFolder = "./downloaded_images"

	envPrefix = "STEAMIMG_"
)

// Config はアプリケーション全体の設定です。
type Config struct {
	Page     PageConfig     `yaml:"page"`
	Download DownloadConfig `yaml:"download"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PageConfig は取得対象ページの設定です。
type PageConfig struct {
	URL       string `yaml:"url"`
	UserAgent string `yaml:"user_agent"`
}

// DownloadConfig は取得・保存の設定です。
type DownloadConfig struct {
	Folder     string        `yaml:"folder"`
	Delay      time.Duration `yaml:"delay"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries uint64        `yaml:"max_retries"`
}

// LoggingConfig はログ出力の設定です。
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig は既定値 (元のスクリプトの固定値) を返します。
func DefaultConfig() *Config {
	return &Config{
		Page: PageConfig{
			URL:       DefaultPageURL,
			UserAgent: httpclient.BrowserUserAgent,
		},
		Download: DownloadConfig{
			Folder:     DefaultFolder,
			Delay:      500 * time.Millisecond,
			Timeout:    httpclient.DefaultHTTPTimeout,
			MaxRetries: 0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile はYAMLファイルから設定を読み込みます。
// path が空の場合は既定の場所を探し、見つからなければ何もしません。
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイルのパースに失敗しました (%s): %w", path, err)
	}
	return nil
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".steamimg.yaml",
		".steamimg.yml",
	}
	if home != "" {
		locations = append(locations,
			filepath.Join(home, ".config", "steamimg", "config.yaml"),
			filepath.Join(home, ".steamimg.yaml"),
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// LoadFromEnv は STEAMIMG_* 環境変数で設定を上書きします。
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv(envPrefix + "URL"); v != "" {
		c.Page.URL = v
	}
	if v := os.Getenv(envPrefix + "USER_AGENT"); v != "" {
		c.Page.UserAgent = v
	}
	if v := os.Getenv(envPrefix + "FOLDER"); v != "" {
		c.Download.Folder = v
	}
	if v := os.Getenv(envPrefix + "DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sDELAY が不正です: %w", envPrefix, err))
		} else {
			c.Download.Delay = d
		}
	}
	if v := os.Getenv(envPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTIMEOUT が不正です: %w", envPrefix, err))
		} else {
			c.Download.Timeout = d
		}
	}
	if v := os.Getenv(envPrefix + "MAX_RETRIES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_RETRIES が不正です: %w", envPrefix, err))
		} else {
			c.Download.MaxRetries = n
		}
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return errors.Join(errs...)
}

// Validate は設定値を検証し、すべての問題をまとめて返します。
func (c *Config) Validate() error {
	var errs []error

	if c.Page.URL == "" {
		errs = append(errs, errors.New("ページURLが指定されていません"))
	} else if u, err := url.Parse(c.Page.URL); err != nil {
		errs = append(errs, fmt.Errorf("ページURLのパースエラー: %w", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Errorf("無効なURLスキームです。httpまたはhttpsを指定してください: %s", c.Page.URL))
	}

	if c.Download.Folder == "" {
		errs = append(errs, errors.New("保存先フォルダが指定されていません"))
	}
	if c.Download.Delay < 0 {
		errs = append(errs, errors.New("待機時間に負の値は指定できません"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("タイムアウトは正の値である必要があります"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("無効なログレベルです: %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Load は 既定値 < 設定ファイル < .env < 環境変数 の順に設定を読み込みます。
// コマンドラインフラグによる上書きは呼び出し側で行い、その後 Validate を呼び出してください。
func Load(configPath string) (*Config, error) {
	// .env が存在しなくてもエラーにはしない
	_ = godotenv.Load(".env")

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗しました: %w", err)
	}
	return cfg, nil
}
