package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/shouni/go-steam-images/pkg/types"
)

// ----------------------------------------------------------------------
// 定数定義
// ----------------------------------------------------------------------
const (
	// KnownHost はルート相対パス (/path) を補完する際のホストです。
	KnownHost = "https://steamcommunity.com"

	// LinkHost はアンカーの href を無条件に採用するホストです。
	LinkHost = "steamusercontent.com"

	imgSelector    = "img[src]"
	anchorSelector = "a[href]"
	styleSelector  = "[style]"
)

// AllowedDomains は画像の取得元として認めるドメインです。
var AllowedDomains = []string{"steamusercontent.com", "steamstatic.com"}

// ImageExtensions は img 要素に対してのみ適用される拡張子フィルタです。
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

var styleURLPattern = regexp.MustCompile(`url\(\s*["']?([^"')]+)["']?\s*\)`)

// Extractor は、Fetcher を使ってページを取得し、画像URLを抽出します。
type Extractor struct {
	fetcher Fetcher
}

// NewExtractor は、新しいExtractorのインスタンスを生成します。
func NewExtractor(fetcher Fetcher) (*Extractor, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("extract.NewExtractor: Fetcher cannot be nil")
	}
	return &Extractor{
		fetcher: fetcher,
	}, nil
}

// ----------------------------------------------------------------------
// メイン関数
// ----------------------------------------------------------------------

// FetchAndExtract は指定されたURLのページを取得し、画像URLの集合を返します。
// 取得エラーはそのまま返します (呼び出し元にとって致命的なエラー)。
func (e *Extractor) FetchAndExtract(ctx context.Context, pageURL string) (*types.ImageSet, error) {
	htmlBytes, err := e.fetcher.FetchBytes(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return e.ExtractImageURLs(htmlBytes)
}

// ExtractImageURLs はHTMLを解析し、3つの抽出元 (img, a, style) から画像URLを集めます。
func (e *Extractor) ExtractImageURLs(html []byte) (*types.ImageSet, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("HTML解析に失敗しました: %w", err)
	}

	set := types.NewImageSet()
	e.ExtractFromDocument(doc, set)
	return set, nil
}

// ExtractFromDocument は解析済みドキュメントから画像URLを set に追加します。
func (e *Extractor) ExtractFromDocument(doc *goquery.Document, set *types.ImageSet) {
	// 1. img 要素: ドメインと拡張子の両方が一致するもののみ
	doc.Find(imgSelector).Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if u := normalizeURL(src, true); u != "" && IsAllowedImage(u) {
			set.Add(u)
		}
	})

	// 2. アンカー: ホストに steamusercontent.com を含めば拡張子は問わない
	doc.Find(anchorSelector).Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if u := normalizeURL(href, false); u != "" && hostContains(u, LinkHost) {
			set.Add(u)
		}
	})

	// 3. インラインスタイルの url(...): ドメインのみで判定
	doc.Find(styleSelector).Each(func(i int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		for _, raw := range StyleURLs(style) {
			if u := normalizeURL(raw, true); u != "" && IsAllowedDomain(u) {
				set.Add(u)
			}
		}
	})
}

// ----------------------------------------------------------------------
// ヘルパー関数
// ----------------------------------------------------------------------

// StyleURLs は style 属性値から url(...) の中身をすべて取り出します。
// background-image も url( も含まない値は対象外です。
func StyleURLs(style string) []string {
	if !strings.Contains(style, "background-image") && !strings.Contains(style, "url(") {
		return nil
	}

	var urls []string
	for _, m := range styleURLPattern.FindAllStringSubmatch(style, -1) {
		if payload := strings.TrimSpace(m[1]); payload != "" {
			urls = append(urls, payload)
		}
	}
	return urls
}

// normalizeURL はプロトコル相対URL (//host/path) を https に補完します。
// rootRelative が true の場合、ルート相対パス (/path) に KnownHost を付与します。
func normalizeURL(raw string, rootRelative bool) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case rootRelative && strings.HasPrefix(raw, "/"):
		return KnownHost + raw
	}
	return raw
}

// NormalizeURL は img/style と同じ規則でURLを補完します。
func NormalizeURL(raw string) string {
	return normalizeURL(raw, true)
}

// IsAllowedImage はドメインと拡張子の両方が許可リストに一致するかを判定します。
func IsAllowedImage(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return matchesDomain(u.Hostname()) && hasImageExtension(u.Path)
}

// IsAllowedDomain はホストが許可ドメインに属するかを判定します。
func IsAllowedDomain(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return matchesDomain(u.Hostname())
}

func matchesDomain(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return false
	}

	if registrable, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		for _, d := range AllowedDomains {
			if registrable == d {
				return true
			}
		}
		return false
	}

	for _, d := range AllowedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func hasImageExtension(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	for _, allowed := range ImageExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func hostContains(rawURL, needle string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(u.Hostname()), needle)
}
