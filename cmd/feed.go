package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/shouni/go-steam-images/internal/pipeline"
)

// フィードURLを保持するフラグ変数
var feedURL string

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "RSS/Atomフィードの各アイテムから画像をダウンロードします",
	Long:  `指定されたURLからRSSまたはAtomフィードを取得し、各アイテムの本文と画像エンクロージャーから画像URLを抽出してダウンロードします。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		processedURL, err := ensureScheme(feedURL)
		if err != nil {
			return fmt.Errorf("URLスキームの処理エラー: %w", err)
		}
		appLogger.Info().Str("url", processedURL).Msg("フィードを処理します")

		p, err := pipeline.New(appConfig, cmd.OutOrStdout(), appLogger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "🔍 フィードを取得中: %s\n", processedURL)
		_, err = p.RunFeed(ctx, processedURL)
		return err
	},
}

func init() {
	feedCmd.Flags().StringVarP(&feedURL, "url", "u", "", "解析対象のフィード (RSS/Atom) URL")
	feedCmd.MarkFlagRequired("url")
}
