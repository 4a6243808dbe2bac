package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New は診断用の zerolog.Logger を生成します。
// 出力は人が読むためのコンソール形式で、進捗表示 (標準出力) とは分けて標準エラーに書きます。
func New(level string, verbose bool) (zerolog.Logger, error) {
	return NewWithWriter(os.Stderr, level, verbose)
}

// NewWithWriter は出力先を指定して Logger を生成します。
func NewWithWriter(w io.Writer, level string, verbose bool) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(w),
	}

	return zerolog.New(console).
		Level(lvl).
		With().
		Timestamp().
		Str("app", "steam-images").
		Logger(), nil
}

// ParseLevel はログレベル文字列を zerolog.Level に変換します。
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("無効なログレベルです: %q", level)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
