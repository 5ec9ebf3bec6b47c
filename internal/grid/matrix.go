package grid

import "golang.org/x/text/unicode/norm"

// Cell is one rendered matrix entry.
//
// StorageID is set once the backing store is known to hold a record for
// the coordinate; the UI uses it only to frame update versus insert.
type Cell struct {
	Text      string `json:"text"`
	StorageID string `json:"storage_id,omitempty"`
}

// IsEmpty reports whether the cell has no text.
func (c Cell) IsEmpty() bool {
	return c.Text == ""
}

// Matrix is the dense MaxRows × MaxCols grid.
//
// The backing array makes the shape invariant structural: every coordinate
// always has a Cell, defaulting to empty text and no storage id, no matter
// how sparse the store is.
type Matrix struct {
	cells [MaxRows][MaxCols]Cell
}

// Placed pairs a cell with its coordinate.
type Placed struct {
	Coord
	Cell
}

// NewMatrix returns an all-empty matrix.
func NewMatrix() *Matrix {
	return &Matrix{}
}

// Rows returns the number of rows (always MaxRows).
func (m *Matrix) Rows() int { return len(m.cells) }

// Cols returns the number of columns (always MaxCols).
func (m *Matrix) Cols() int { return len(m.cells[0]) }

// At returns the cell at c. c must be valid.
func (m *Matrix) At(c Coord) Cell {
	return m.cells[c.Row][c.Col]
}

// Set overwrites the cell at c. c must be valid.
func (m *Matrix) Set(c Coord, cell Cell) {
	m.cells[c.Row][c.Col] = cell
}

// SetText overwrites the text at c, keeping the storage id.
func (m *Matrix) SetText(c Coord, text string) {
	m.cells[c.Row][c.Col].Text = text
}

// Reset empties every cell.
func (m *Matrix) Reset() {
	m.cells = [MaxRows][MaxCols]Cell{}
}

// Clone returns an independent copy.
func (m *Matrix) Clone() *Matrix {
	cp := *m
	return &cp
}

// NonEmpty returns every cell with text, in row-major order.
func (m *Matrix) NonEmpty() []Placed {
	var out []Placed
	for r := range m.cells {
		for c := range m.cells[r] {
			if cell := m.cells[r][c]; !cell.IsEmpty() {
				out = append(out, Placed{Coord: Coord{Row: r, Col: c}, Cell: cell})
			}
		}
	}
	return out
}

// NormalizeText puts edited text into NFC so that visually identical input
// from different clients compares and stores identically.
func NormalizeText(s string) string {
	return norm.NFC.String(s)
}
