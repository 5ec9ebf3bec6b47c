// Package model provides the shared record types for guildgrid.
//
// This package contains type definitions only. All other internal packages
// import model; model imports nothing internal.
//
// Key design constraints:
//   - A CellRecord exists only for a non-empty cell; clearing deletes it
//   - Row and Column are always plain ints in [0,100); string identifiers
//     such as "R-3" are parsed once at the boundary (package grid)
//   - CellRecord.Value is opaque: plaintext or ciphertext, the store never
//     knows which
//   - All JSON tags use snake_case
package model
