package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Manager はダウンロード先フォルダへのファイル書き込みを扱います。
type Manager struct {
	outputDir string
}

// NewManager はフォルダを (親ディレクトリを含めて) 作成し、Manager を返します。
// 既に存在する場合は何もしません。
func NewManager(outputDir string) (*Manager, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("出力フォルダが指定されていません")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("出力フォルダの作成に失敗しました (%s): %w", outputDir, err)
	}
	return &Manager{outputDir: outputDir}, nil
}

// Dir は出力フォルダのパスを返します。
func (m *Manager) Dir() string {
	return m.outputDir
}

// Path は filename の保存先パスを返します。
func (m *Manager) Path(filename string) string {
	return filepath.Join(m.outputDir, filename)
}

// Save は r の内容を <outputDir>/<filename> に書き込みます。
// 同名のファイルが存在する場合は上書きします。
// 一時ファイルに書き込んでから rename するため、失敗時に中途半端なファイルは残りません。
func (m *Manager) Save(r io.Reader, filename string) (string, int64, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", 0, fmt.Errorf("不正なファイル名です: %q", filename)
	}

	target := m.Path(filename)
	tmp, err := os.CreateTemp(m.outputDir, "."+filename+".*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if err != nil {
		os.Remove(tmpName)
		return "", 0, fmt.Errorf("画像データの書き込みに失敗しました: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmpName)
		return "", 0, fmt.Errorf("ファイルのクローズに失敗しました: %w", closeErr)
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", 0, fmt.Errorf("パーミッションの設定に失敗しました: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", 0, fmt.Errorf("一時ファイルのリネームに失敗しました: %w", err)
	}

	return target, n, nil
}
