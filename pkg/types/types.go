package types

// ImageSet は画像URLの集合です。一意性は文字列の完全一致で判定し、
// 走査順は追加順で固定されます (1回の実行内で進捗表示が安定するように)。
type ImageSet struct {
	urls  []string
	index map[string]struct{}
}

// NewImageSet は空の ImageSet を生成します。
func NewImageSet() *ImageSet {
	return &ImageSet{index: make(map[string]struct{})}
}

// Add はURLを追加します。新規に追加された場合は true を返します。
func (s *ImageSet) Add(url string) bool {
	if url == "" {
		return false
	}
	if _, ok := s.index[url]; ok {
		return false
	}
	s.index[url] = struct{}{}
	s.urls = append(s.urls, url)
	return true
}

// Merge は other の要素をすべて追加します。
func (s *ImageSet) Merge(other *ImageSet) {
	if other == nil {
		return
	}
	for _, u := range other.urls {
		s.Add(u)
	}
}

// Contains はURLが含まれているかを返します。
func (s *ImageSet) Contains(url string) bool {
	_, ok := s.index[url]
	return ok
}

// Len は要素数を返します。
func (s *ImageSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.urls)
}

// URLs は追加順のURL一覧のコピーを返します。
func (s *ImageSet) URLs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.urls))
	copy(out, s.urls)
	return out
}

// DownloadResult は画像1枚分のダウンロード結果です。
// Err が nil でない場合、その画像は保存されていません。
type DownloadResult struct {
	Index    int    // 1始まりの通し番号
	URL      string // 取得対象のURL
	Filename string // URLから導出したファイル名
	Path     string // 保存先のパス (成功時のみ)
	Bytes    int    // 書き込んだバイト数
	Err      error
}

// Summary は1回の実行の集計です。
type Summary struct {
	Folder     string
	Total      int
	Downloaded int
	Failed     int
	Results    []DownloadResult
}
