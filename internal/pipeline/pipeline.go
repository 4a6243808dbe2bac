package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/shouni/go-steam-images/pkg/config"
	"github.com/shouni/go-steam-images/pkg/downloader"
	"github.com/shouni/go-steam-images/pkg/extract"
	"github.com/shouni/go-steam-images/pkg/feed"
	"github.com/shouni/go-steam-images/pkg/httpclient"
	"github.com/shouni/go-steam-images/pkg/scraper"
	"github.com/shouni/go-steam-images/pkg/types"
)

// Pipeline は設定から組み立てた依存一式を保持します。
type Pipeline struct {
	cfg        *config.Config
	pageClient *httpclient.Client
	extractor  *extract.Extractor
	scraper    *scraper.Scraper
	logger     zerolog.Logger
}

// Option は Pipeline の組み立てを調整します (主にテスト用)。
type Option func(*options)

type options struct {
	pageDoer  httpclient.Doer
	imageDoer httpclient.Doer
}

// WithPageDoer はページ取得に使う Doer を差し替えます。
func WithPageDoer(d httpclient.Doer) Option {
	return func(o *options) { o.pageDoer = d }
}

// WithImageDoer は画像取得に使う Doer を差し替えます。
func WithImageDoer(d httpclient.Doer) Option {
	return func(o *options) { o.imageDoer = d }
}

// New は cfg から Fetcher、Extractor、Scraper を組み立てます。
// ページ取得には User-Agent を付与し、画像取得にはカスタムヘッダーを付与しません。
func New(cfg *config.Config, out io.Writer, logger zerolog.Logger, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline.New: Config cannot be nil")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	pageOpts := []httpclient.ClientOption{
		httpclient.WithMaxRetries(cfg.Download.MaxRetries),
		httpclient.WithUserAgent(cfg.Page.UserAgent),
	}
	imageOpts := []httpclient.ClientOption{
		httpclient.WithMaxRetries(cfg.Download.MaxRetries),
	}
	if o.pageDoer != nil {
		pageOpts = append(pageOpts, httpclient.WithHTTPClient(o.pageDoer))
	}
	if o.imageDoer != nil {
		imageOpts = append(imageOpts, httpclient.WithHTTPClient(o.imageDoer))
	}

	pageClient := httpclient.New(cfg.Download.Timeout, pageOpts...)
	imageClient := httpclient.New(cfg.Download.Timeout, imageOpts...)

	extractor, err := extract.NewExtractor(pageClient)
	if err != nil {
		return nil, fmt.Errorf("Extractorの初期化エラー: %w", err)
	}

	s, err := scraper.New(scraper.Config{
		Extractor:    extractor,
		ImageFetcher: imageClient,
		Folder:       cfg.Download.Folder,
		Out:          out,
		Logger:       &logger,
		Options:      []downloader.Option{downloader.WithDelay(cfg.Download.Delay)},
	})
	if err != nil {
		return nil, fmt.Errorf("Scraperの初期化エラー: %w", err)
	}

	logger.Debug().
		Dur("timeout", cfg.Download.Timeout).
		Uint64("max_retries", cfg.Download.MaxRetries).
		Dur("delay", cfg.Download.Delay).
		Str("folder", cfg.Download.Folder).
		Msg("パイプラインを初期化しました")

	return &Pipeline{
		cfg:        cfg,
		pageClient: pageClient,
		extractor:  extractor,
		scraper:    s,
		logger:     logger,
	}, nil
}

// RunPage は設定されたページから画像を取得します。
func (p *Pipeline) RunPage(ctx context.Context) (*types.Summary, error) {
	return p.scraper.Run(ctx, p.cfg.Page.URL)
}

// RunFeed は RSS/Atom フィードのアイテムから画像を取得します。
func (p *Pipeline) RunFeed(ctx context.Context, feedURL string) (*types.Summary, error) {
	parsed, err := feed.NewParser(p.pageClient).FetchAndParse(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	p.logger.Debug().Str("title", parsed.Title).Int("items", len(parsed.Items)).Msg("フィードを解析しました")

	set, err := feed.CollectImages(p.extractor, parsed)
	if err != nil {
		return nil, err
	}
	return p.scraper.RunSet(ctx, set)
}
