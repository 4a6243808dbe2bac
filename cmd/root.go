package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shouni/go-steam-images/internal/pipeline"
	"github.com/shouni/go-steam-images/pkg/config"
	"github.com/shouni/go-steam-images/pkg/logger"
)

// --- グローバル定数 ---

const (
	appName = "steam-images"
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	ConfigPath string        // --config 設定ファイル
	TimeoutSec int           // --timeout タイムアウト (秒)
	MaxRetries uint64        // --max-retries リトライ回数
	LogLevel   string        // --log-level
	Verbose    bool          // --verbose
	Output     string        // --output 保存先フォルダ
	Delay      time.Duration // --delay 画像間の待機時間
}

var (
	Flags     AppFlags
	pageURL   string // ルートコマンドの --url
	appConfig *config.Config
	appLogger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Steamコミュニティのページから画像を一括ダウンロードします",
	Long: `指定されたSteamコミュニティのページ (既定ではガイドページ) を取得し、
img 要素、steamusercontent.com へのリンク、インラインスタイルの背景画像から画像URLを抽出して、
保存先フォルダへ1枚ずつダウンロードします。`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initAppPreRunE,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("url") {
			processedURL, err := ensureScheme(pageURL)
			if err != nil {
				return fmt.Errorf("URLスキームの処理エラー: %w", err)
			}
			appConfig.Page.URL = processedURL
		}

		p, err := pipeline.New(appConfig, cmd.OutOrStdout(), appLogger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		fmt.Fprintln(cmd.OutOrStdout(), "🚀 Steam Community Image Downloader")
		fmt.Fprintln(cmd.OutOrStdout(), "==================================================")

		_, err = p.RunPage(ctx)
		return err
	},
}

// --- 初期化とロジック ---

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	defaults := config.DefaultConfig()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&Flags.ConfigPath, "config", "", "設定ファイル (YAML) のパス")
	pf.IntVar(&Flags.TimeoutSec, "timeout", int(defaults.Download.Timeout/time.Second), "HTTPリクエストのタイムアウト時間（秒）")
	pf.Uint64Var(&Flags.MaxRetries, "max-retries", defaults.Download.MaxRetries, "HTTPリクエストのリトライ最大回数 (0 でリトライしない)")
	pf.StringVar(&Flags.LogLevel, "log-level", defaults.Logging.Level, "ログレベル (debug, info, warn, error)")
	pf.BoolVarP(&Flags.Verbose, "verbose", "v", false, "詳細なログを出力する")
	pf.StringVarP(&Flags.Output, "output", "o", defaults.Download.Folder, "画像の保存先フォルダ")
	pf.DurationVar(&Flags.Delay, "delay", defaults.Download.Delay, "画像ごとの待機時間")

	rootCmd.Flags().StringVarP(&pageURL, "url", "u", defaults.Page.URL, "画像を抽出するページのURL")
}

// initAppPreRunE は設定を 既定値 < 設定ファイル < 環境変数 < フラグ の順で確定し、ロガーを初期化します。
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(Flags.ConfigPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Download.Timeout = time.Duration(Flags.TimeoutSec) * time.Second
	}
	if flags.Changed("max-retries") {
		cfg.Download.MaxRetries = Flags.MaxRetries
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = Flags.LogLevel
	}
	if flags.Changed("output") {
		cfg.Download.Folder = Flags.Output
	}
	if flags.Changed("delay") {
		cfg.Download.Delay = Flags.Delay
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("設定の検証に失敗しました: %w", err)
	}

	log, err := logger.New(cfg.Logging.Level, Flags.Verbose)
	if err != nil {
		return err
	}
	log.Debug().
		Str("url", cfg.Page.URL).
		Str("folder", cfg.Download.Folder).
		Dur("timeout", cfg.Download.Timeout).
		Msg("設定を読み込みました")

	appConfig = cfg
	appLogger = log
	return nil
}

func init() {
	addAppPersistentFlags(rootCmd)
	rootCmd.AddCommand(feedCmd)
}

// --- エントリポイント ---

// Execute は rootCmd を実行します。ページ取得の失敗などの致命的エラーは表示して終了コード 1 で終了します。
// 個々の画像の失敗は致命的エラーではありません。
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "❌ エラー: %v\n", err)
		os.Exit(1)
	}
}
