package storage

import "testing"

// TestOpenInMemory はインメモリデータベースのオープンとスキーマ適用を検証する。
func TestOpenInMemory(t *testing.T) {
	t.Parallel()

	t.Run("全テーブルが作成されること", func(t *testing.T) {
		t.Parallel()

		db, err := OpenInMemory()
		if err != nil {
			t.Fatalf("OpenInMemory()でエラーが発生: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })

		for _, table := range []string{"users", "follows", "likes", "notifications", "projects", "posts", "comments", "topics"} {
			var name string
			err := db.QueryRow(
				"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
			).Scan(&name)
			if err != nil {
				t.Errorf("テーブル %q が存在しない: %v", table, err)
			}
		}
	})

	t.Run("マイグレーションが二重適用されないこと", func(t *testing.T) {
		t.Parallel()

		db, err := OpenInMemory()
		if err != nil {
			t.Fatalf("OpenInMemory()でエラーが発生: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("schema_migrationsの参照に失敗: %v", err)
		}
		if count != 6 {
			t.Errorf("適用済みマイグレーション数 = %d, want 6", count)
		}
	})
}

// TestOpen はファイルベースデータベースのオープンを検証する。
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("パスが空の場合エラーを返すこと", func(t *testing.T) {
		t.Parallel()

		if _, err := Open(""); err == nil {
			t.Fatal("空パスに対してエラーが返らなかった")
		}
	})

	t.Run("一時ファイルでオープンできること", func(t *testing.T) {
		t.Parallel()

		db, err := Open(t.TempDir() + "/sociahub.db")
		if err != nil {
			t.Fatalf("Open()でエラーが発生: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })

		if err := db.Ping(); err != nil {
			t.Errorf("Ping()でエラーが発生: %v", err)
		}
	})
}
