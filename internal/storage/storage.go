// Package storage はsociahubコアのSQLiteデータベース接続とスキーマ適用を提供する。
//
// 本番環境ではファイルベースのデータベースを、テストではインメモリ
// データベースを使用する。スキーマはembedされたマイグレーションファイルから
// 適用される。
package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/nao1215/sociahub/internal/storage/migrations"
	"github.com/nao1215/sociahub/pkg/migration"
)

// Open はファイルベースのSQLiteデータベースを開き、マイグレーションを適用する。
// WALモードとビジータイムアウトを有効にする。
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("データベースパスが指定されていません")
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}

	if err := migration.Run(db, migrations.FS, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("マイグレーションの適用に失敗: %w", err)
	}

	return db, nil
}

// OpenInMemory はインメモリのSQLiteデータベースを開き、マイグレーションを適用する。
// テストで使用する。接続を閉じるとデータは消える。
func OpenInMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("インメモリデータベースの作成に失敗: %w", err)
	}

	// インメモリDBは接続ごとに独立したデータベースになるため、
	// コネクションプールを単一接続に制限する。
	db.SetMaxOpenConns(1)

	if err := migration.Run(db, migrations.FS, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("マイグレーションの適用に失敗: %w", err)
	}

	return db, nil
}
