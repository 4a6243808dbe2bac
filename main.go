package main

import "github.com/shouni/go-steam-images/cmd"

// main はコマンドを実行します。エラー処理と終了コードは cmd.Execute が一元的に扱います。
func main() {
	cmd.Execute()
}
