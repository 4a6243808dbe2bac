package feed

import (
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/shouni/go-steam-images/pkg/extract"
	"github.com/shouni/go-steam-images/pkg/types"
)

// FeedAdapter は gofeed.Feed から画像抽出の入力を取り出します。
type FeedAdapter struct {
	*gofeed.Feed
}

// NewFeedAdapter は gofeed.Feed から新しいアダプターを作成します。
func NewFeedAdapter(feed *gofeed.Feed) *FeedAdapter {
	return &FeedAdapter{Feed: feed}
}

// HTMLFragments は各アイテムの本文 (Content と Description) を返します。
func (a *FeedAdapter) HTMLFragments() []string {
	if a.Feed == nil {
		return []string{}
	}

	fragments := make([]string, 0, len(a.Items)*2)
	for _, item := range a.Items {
		if item == nil {
			continue
		}
		for _, s := range []string{item.Content, item.Description} {
			if strings.TrimSpace(s) != "" {
				fragments = append(fragments, s)
			}
		}
	}
	return fragments
}

// ImageLinks はフィード画像、アイテム画像、image/* のエンクロージャーのURLを返します。
func (a *FeedAdapter) ImageLinks() []string {
	if a.Feed == nil {
		return []string{}
	}

	var links []string
	if a.Image != nil && a.Image.URL != "" {
		links = append(links, a.Image.URL)
	}
	for _, item := range a.Items {
		if item == nil {
			continue
		}
		if item.Image != nil && item.Image.URL != "" {
			links = append(links, item.Image.URL)
		}
		for _, enc := range item.Enclosures {
			if enc != nil && enc.URL != "" && strings.HasPrefix(enc.Type, "image/") {
				links = append(links, enc.URL)
			}
		}
	}
	if links == nil {
		return []string{}
	}
	return links
}

// CollectImages はフィード内の画像URLを集めます。
// 本文HTMLはページと同じ規則で抽出し、直接の画像リンクは許可ドメインのみ採用します。
func CollectImages(extractor *extract.Extractor, feed *gofeed.Feed) (*types.ImageSet, error) {
	if extractor == nil {
		return nil, fmt.Errorf("feed.CollectImages: Extractor cannot be nil")
	}

	adapter := NewFeedAdapter(feed)
	set := types.NewImageSet()

	for i, fragment := range adapter.HTMLFragments() {
		found, err := extractor.ExtractImageURLs([]byte(fragment))
		if err != nil {
			return nil, fmt.Errorf("アイテム本文 (%d件目) の解析に失敗しました: %w", i+1, err)
		}
		set.Merge(found)
	}

	for _, link := range adapter.ImageLinks() {
		if u := extract.NormalizeURL(link); extract.IsAllowedDomain(u) {
			set.Add(u)
		}
	}
	return set, nil
}
