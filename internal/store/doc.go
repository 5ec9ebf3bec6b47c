// Package store provides the SQLite-backed cell store for guildgrid.
//
// The store holds two tables:
//   - gg_grids: one GridDocument per grid, unique by (guild_id, grid_slug)
//   - gg_cells: one CellRecord per NON-EMPTY cell, unique by
//     (grid_id, gg_row, gg_column)
//
// # Critical Patterns
//
// Sparse Cells:
//   - Clearing a cell deletes its row; gg_value is never ''
//   - Deletes match on (grid_id, guild_id, gg_row, gg_column), not on id
//
// Upsert Identity:
//   - A record carrying a storage id updates that row
//   - A record without one updates the row already at its coordinate, or
//     inserts a fresh row with a UUIDv7 id
//
// Change Feed:
//   - Every committed insert, update and delete is published to every
//     subscriber, for every grid, including the writer's own
//   - Events carry a monotonically increasing Seq in commit order and are
//     delivered to each subscriber in that order on its own goroutine
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Cells must reference an existing grid
package store
