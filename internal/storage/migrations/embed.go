package migrations

import "embed"

// PostgresFS файлы схемы, имя задает порядок применения
//
//go:embed postgres/*.sql
var PostgresFS embed.FS
