// ソーシャルプラットフォームのコアAPIサーバーのエントリポイント。
// 通知のライブ配信（SSE）、フォローグラフ、いいねトグル、フィード集約を
// 単一プロセスで提供する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/sociahub/internal/server"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv, err := server.NewServer(port)
	if err != nil {
		log.Fatalf("サーバーの初期化に失敗: %v", err)
	}
	defer func() { _ = srv.Close() }()

	log.Printf("コアAPIサーバーを起動します: :%s", port)
	if err := srv.Run(); err != nil {
		log.Fatalf("サーバーの起動に失敗: %v", err)
	}
}
