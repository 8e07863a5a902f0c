package database

import "embed"

// PostgresSQL 只在 PostgreSQL 上执行的补充 DDL，每个文件一条语句
//
//go:embed sql/*.sql
var PostgresSQL embed.FS
