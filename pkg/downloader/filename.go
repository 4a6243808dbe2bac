package downloader

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"path"
	"regexp"
	"strings"
)

const (
	steamHost         = "steamusercontent.com"
	minSteamIDLength  = 10
	fallbackHashRange = 10000
)

var steamIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Filename はURLから保存用のファイル名を導出します。
// 結果は実行間で一意である保証はなく、衝突した場合は上書きされます。
func Filename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallbackName(rawURL)
	}

	if strings.Contains(strings.ToLower(u.Hostname()), steamHost) {
		for _, part := range strings.Split(u.Path, "/") {
			if len(part) > minSteamIDLength && steamIDPattern.MatchString(part) {
				return "steam_image_" + part + ".jpg"
			}
		}
	}

	name := path.Base(u.Path)
	if name == "." || name == ".." || name == "/" || !strings.Contains(name, ".") {
		return fallbackName(rawURL)
	}
	return name
}

// fallbackName は image_<hash mod 10000>.jpg を返します。
func fallbackName(rawURL string) string {
	h := fnv.New32a()
	h.Write([]byte(rawURL))
	return fmt.Sprintf("image_%d.jpg", h.Sum32()%fallbackHashRange)
}
