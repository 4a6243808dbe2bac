package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/shouni/go-steam-images/pkg/types"
)

// DefaultDelay は画像ごとの待機時間です (サーバーへの配慮、適応的な制御はしない)。
const DefaultDelay = 500 * time.Millisecond

// Fetcher は画像のバイト列を取得します。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Store は画像を保存します。
type Store interface {
	Save(r io.Reader, filename string) (string, int64, error)
	Dir() string
}

// Downloader は画像URLを1件ずつ順番に取得・保存します。
type Downloader struct {
	fetcher Fetcher
	store   Store
	out     io.Writer
	logger  zerolog.Logger
	delay   time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option は Downloader の設定を行うための関数型です。
type Option func(*Downloader)

// WithDelay は画像間の待機時間を設定します。0 以下の場合は待機しません。
func WithDelay(d time.Duration) Option {
	return func(dl *Downloader) {
		dl.delay = d
	}
}

// WithLogger は診断用ロガーを設定します。
func WithLogger(logger zerolog.Logger) Option {
	return func(dl *Downloader) {
		dl.logger = logger
	}
}

// New は Downloader を生成します。out には進捗行が書き込まれます。
func New(fetcher Fetcher, store Store, out io.Writer, opts ...Option) (*Downloader, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("downloader.New: Fetcher cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("downloader.New: Store cannot be nil")
	}
	if out == nil {
		out = io.Discard
	}

	dl := &Downloader{
		fetcher: fetcher,
		store:   store,
		out:     out,
		logger:  zerolog.Nop(),
		delay:   DefaultDelay,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(dl)
	}
	return dl, nil
}

// Run は set の各URLを順番にダウンロードします。
// 個々の失敗は結果に記録して次へ進み、実行全体を中断しません。
func (d *Downloader) Run(ctx context.Context, set *types.ImageSet) *types.Summary {
	urls := set.URLs()
	summary := &types.Summary{
		Folder:  d.store.Dir(),
		Total:   len(urls),
		Results: make([]types.DownloadResult, 0, len(urls)),
	}

	for i, u := range urls {
		res := d.downloadOne(ctx, i+1, len(urls), u)
		summary.Results = append(summary.Results, res)
		if res.Err != nil {
			summary.Failed++
		} else {
			summary.Downloaded++
		}

		if i == len(urls)-1 {
			break
		}
		if err := d.pause(ctx); err != nil {
			d.logger.Warn().Err(err).Int("remaining", len(urls)-i-1).Msg("ダウンロードを中断しました")
			for j := i + 1; j < len(urls); j++ {
				summary.Results = append(summary.Results, types.DownloadResult{
					Index:    j + 1,
					URL:      urls[j],
					Filename: Filename(urls[j]),
					Err:      err,
				})
				summary.Failed++
			}
			break
		}
	}

	return summary
}

// downloadOne は1件分の取得と保存を行い、進捗を出力します。
func (d *Downloader) downloadOne(ctx context.Context, index, total int, url string) types.DownloadResult {
	res := types.DownloadResult{
		Index:    index,
		URL:      url,
		Filename: Filename(url),
	}
	fmt.Fprintf(d.out, "[%d/%d] ダウンロード中: %s\n", index, total, res.Filename)

	body, err := d.fetcher.FetchBytes(ctx, url)
	if err == nil {
		var n int64
		res.Path, n, err = d.store.Save(bytes.NewReader(body), res.Filename)
		res.Bytes = int(n)
	}
	if err != nil {
		res.Err = err
		fmt.Fprintf(d.out, "❌ %s のダウンロードに失敗しました: %v\n", res.Filename, err)
		d.logger.Debug().Err(err).Str("url", url).Str("file", res.Filename).Msg("画像の取得に失敗")
		return res
	}

	fmt.Fprintf(d.out, "✅ ダウンロード完了: %s\n", res.Filename)
	d.logger.Debug().Str("url", url).Str("path", res.Path).Int("bytes", res.Bytes).Msg("画像を保存")
	return res
}

func (d *Downloader) pause(ctx context.Context) error {
	if d.delay <= 0 {
		return ctx.Err()
	}
	return d.sleep(ctx, d.delay)
}

func sleepContext(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
