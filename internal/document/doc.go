// Package document resolves and creates grid documents.
//
// A grid is addressed publicly by its guild and a human-readable slug. The
// Resolver turns that pair into a GridDocument; the Creator mints new
// grids with a unique slug.
package document
