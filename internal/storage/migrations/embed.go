// Package migrations embeds and applies the database schemas. Postgres holds
// runs, trades, and result records; ClickHouse holds the bar and option
// quote timeseries.
package migrations

import "embed"

// PostgresFS embeds all PostgreSQL migration files.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds all ClickHouse migration files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
