package scraper

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/shouni/go-steam-images/pkg/downloader"
	"github.com/shouni/go-steam-images/pkg/storage"
	"github.com/shouni/go-steam-images/pkg/types"
)

// PageExtractor はページを取得して画像URLの集合を返します。
type PageExtractor interface {
	FetchAndExtract(ctx context.Context, pageURL string) (*types.ImageSet, error)
}

// Scraper はページ取得、抽出、ダウンロードの一連の流れをまとめます。
type Scraper struct {
	extractor    PageExtractor
	imageFetcher downloader.Fetcher
	folder       string
	out          io.Writer
	logger       zerolog.Logger
	dlOptions    []downloader.Option
}

// Config は Scraper の依存と設定です。
type Config struct {
	Extractor    PageExtractor
	ImageFetcher downloader.Fetcher
	Folder       string
	Out          io.Writer
	Logger       *zerolog.Logger // nil の場合はログを出力しない
	Options      []downloader.Option
}

// New は Scraper を初期化します。
func New(cfg Config) (*Scraper, error) {
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("scraper.New: Extractor cannot be nil")
	}
	if cfg.ImageFetcher == nil {
		return nil, fmt.Errorf("scraper.New: ImageFetcher cannot be nil")
	}
	if cfg.Folder == "" {
		return nil, fmt.Errorf("scraper.New: 出力フォルダが指定されていません")
	}
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Scraper{
		extractor:    cfg.Extractor,
		imageFetcher: cfg.ImageFetcher,
		folder:       cfg.Folder,
		out:          out,
		logger:       logger,
		dlOptions:    cfg.Options,
	}, nil
}

// Run はページを取得して画像を抽出し、すべてダウンロードします。
// ページの取得・解析に失敗した場合は画像を1枚も取得せずにエラーを返します。
func (s *Scraper) Run(ctx context.Context, pageURL string) (*types.Summary, error) {
	fmt.Fprintf(s.out, "🔍 ページを取得中: %s\n", pageURL)
	s.logger.Debug().Str("url", pageURL).Msg("ページ取得開始")

	set, err := s.extractor.FetchAndExtract(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("ページのスクレイピングに失敗しました (URL: %s): %w", pageURL, err)
	}

	return s.RunSet(ctx, set)
}

// RunSet は抽出済みの画像URL集合をダウンロードし、集計を出力します。
func (s *Scraper) RunSet(ctx context.Context, set *types.ImageSet) (*types.Summary, error) {
	fmt.Fprintf(s.out, "📸 %d 件のユニークな画像が見つかりました\n", set.Len())

	store, err := storage.NewManager(s.folder)
	if err != nil {
		return nil, err
	}

	opts := append([]downloader.Option{downloader.WithLogger(s.logger)}, s.dlOptions...)
	dl, err := downloader.New(s.imageFetcher, store, s.out, opts...)
	if err != nil {
		return nil, err
	}

	summary := dl.Run(ctx, set)

	fmt.Fprintf(s.out, "\n✨ ダウンロード完了! %d/%d 枚の画像を %s に保存しました\n",
		summary.Downloaded, summary.Total, summary.Folder)
	s.logger.Info().
		Int("downloaded", summary.Downloaded).
		Int("failed", summary.Failed).
		Int("total", summary.Total).
		Str("folder", summary.Folder).
		Msg("ダウンロード処理が完了しました")

	return summary, nil
}
