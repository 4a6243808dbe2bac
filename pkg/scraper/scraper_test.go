package scraper_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-steam-images/pkg/downloader"
	"github.com/shouni/go-steam-images/pkg/extract"
	"github.com/shouni/go-steam-images/pkg/httpclient"
	"github.com/shouni/go-steam-images/pkg/scraper"
)

// recordingFetcher は画像取得の呼び出しを記録し、failURLs に含まれるURLでは失敗します。
type recordingFetcher struct {
	mu       sync.Mutex
	calls    []string
	failURLs map[string]bool
}

func (f *recordingFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if f.failURLs[url] {
		return nil, errors.New("simulated network error")
	}
	return []byte("image:" + url), nil
}

// pageServer はテスト用のページを返し、受け取った User-Agent を記録します。
type pageServer struct {
	*httptest.Server
	mu        sync.Mutex
	userAgent string
}

func (p *pageServer) UserAgent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userAgent
}

func newPageServer(t *testing.T, status int, html string) *pageServer {
	t.Helper()
	p := &pageServer{}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.userAgent = r.Header.Get("User-Agent")
		p.mu.Unlock()
		w.WriteHeader(status)
		fmt.Fprint(w, html)
	}))
	t.Cleanup(p.Close)
	return p
}

func newScraper(t *testing.T, images *recordingFetcher, out *bytes.Buffer) (*scraper.Scraper, string) {
	t.Helper()
	pageClient := httpclient.New(0, httpclient.WithUserAgent(httpclient.BrowserUserAgent))
	extractor, err := extract.NewExtractor(pageClient)
	require.NoError(t, err)

	folder := filepath.Join(t.TempDir(), "downloaded_images")
	s, err := scraper.New(scraper.Config{
		Extractor:    extractor,
		ImageFetcher: images,
		Folder:       folder,
		Out:          out,
		Options:      []downloader.Option{downloader.WithDelay(0)},
	})
	require.NoError(t, err)
	return s, folder
}

const threeImagesPage = `<html><body>
	<img src="https://images.steamusercontent.com/ugc/11111111111/AAAA/first.jpg">
	<img src="https://images.steamusercontent.com/ugc/22222222222/BBBB/second.jpg">
	<img src="https://example.com/unrelated/third.jpg">
</body></html>`

func TestRun_EndToEnd(t *testing.T) {
	srv := newPageServer(t, http.StatusOK, threeImagesPage)
	images := &recordingFetcher{}
	var out bytes.Buffer
	s, folder := newScraper(t, images, &out)

	summary, err := s.Run(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, httpclient.BrowserUserAgent, srv.UserAgent(), "ページ取得にはブラウザ風のUser-Agentを送る")
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, []string{
		"https://images.steamusercontent.com/ugc/11111111111/AAAA/first.jpg",
		"https://images.steamusercontent.com/ugc/22222222222/BBBB/second.jpg",
	}, images.calls)

	for _, name := range []string{"steam_image_11111111111.jpg", "steam_image_22222222222.jpg"} {
		_, err := os.Stat(filepath.Join(folder, name))
		assert.NoError(t, err, name)
	}

	assert.Contains(t, out.String(), "📸 2 件のユニークな画像が見つかりました")
	assert.Contains(t, out.String(), "2/2 枚の画像を")
}

func TestRun_OneDownloadFails(t *testing.T) {
	srv := newPageServer(t, http.StatusOK, threeImagesPage)
	images := &recordingFetcher{failURLs: map[string]bool{
		"https://images.steamusercontent.com/ugc/22222222222/BBBB/second.jpg": true,
	}}
	var out bytes.Buffer
	s, _ := newScraper(t, images, &out)

	summary, err := s.Run(context.Background(), srv.URL)
	require.NoError(t, err, "個々の画像の失敗は実行全体のエラーにならない")

	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 2, summary.Total)
	assert.Len(t, images.calls, 2)
	assert.Contains(t, out.String(), "1/2 枚の画像を")
	assert.Contains(t, out.String(), "❌ steam_image_22222222222.jpg のダウンロードに失敗しました")
}

func TestRun_EmptyPage(t *testing.T) {
	srv := newPageServer(t, http.StatusOK, `<html><body><p>no images</p></body></html>`)
	images := &recordingFetcher{}
	var out bytes.Buffer
	s, folder := newScraper(t, images, &out)

	summary, err := s.Run(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0, summary.Downloaded)
	assert.Empty(t, images.calls)
	assert.Contains(t, out.String(), "0/0 枚の画像を")

	info, err := os.Stat(folder)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRun_PageFetchFailureIsFatal(t *testing.T) {
	srv := newPageServer(t, http.StatusNotFound, "not found")
	images := &recordingFetcher{}
	var out bytes.Buffer
	s, folder := newScraper(t, images, &out)

	summary, err := s.Run(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.True(t, httpclient.IsNonRetryableError(err))
	assert.Empty(t, images.calls, "ページ取得に失敗したら画像は取得しない")

	_, statErr := os.Stat(folder)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNew_Validation(t *testing.T) {
	extractor, err := extract.NewExtractor(httpclient.New(0))
	require.NoError(t, err)

	_, err = scraper.New(scraper.Config{ImageFetcher: &recordingFetcher{}, Folder: "x"})
	assert.Error(t, err)
	_, err = scraper.New(scraper.Config{Extractor: extractor, Folder: "x"})
	assert.Error(t, err)
	_, err = scraper.New(scraper.Config{Extractor: extractor, ImageFetcher: &recordingFetcher{}})
	assert.Error(t, err)
}
