// Package migrations はsociahubコアのSQLマイグレーションファイルをembedする。
package migrations

import "embed"

// FS はマイグレーションSQLファイルを含むembedファイルシステム。
//
//go:embed *.up.sql
var FS embed.FS
