package grid

import (
	"fmt"
	"strconv"
	"strings"
)

// Fixed address space. Rows and columns are never inserted or removed.
const (
	MaxRows = 100
	MaxCols = 100
)

const (
	rowPrefix    = "R-"
	columnPrefix = "C-"
)

// Coord is a validated (row, column) pair in [0,MaxRows)×[0,MaxCols).
type Coord struct {
	Row int `json:"row"`
	Col int `json:"column"`
}

// NewCoord validates row and col and returns the coordinate.
func NewCoord(row, col int) (Coord, error) {
	if row < 0 || row >= MaxRows {
		return Coord{}, outOfBounds(fmt.Sprintf("%d,%d", row, col), MaxRows)
	}
	if col < 0 || col >= MaxCols {
		return Coord{}, outOfBounds(fmt.Sprintf("%d,%d", row, col), MaxCols)
	}
	return Coord{Row: row, Col: col}, nil
}

// Valid reports whether c lies inside the address space.
func (c Coord) Valid() bool {
	return c.Row >= 0 && c.Row < MaxRows && c.Col >= 0 && c.Col < MaxCols
}

// String renders the coordinate as "R-<row>:C-<col>".
func (c Coord) String() string {
	return RowID(c.Row) + ":" + ColumnID(c.Col)
}

// RowID formats a row index as "R-<n>".
func RowID(row int) string {
	return rowPrefix + strconv.Itoa(row)
}

// ColumnID formats a column index as "C-<n>".
func ColumnID(col int) string {
	return columnPrefix + strconv.Itoa(col)
}

// ParseRowID parses "R-<n>" into a row index.
func ParseRowID(id string) (int, error) {
	return parseIndex(id, rowPrefix, MaxRows)
}

// ParseColumnID parses "C-<n>" into a column index.
func ParseColumnID(id string) (int, error) {
	return parseIndex(id, columnPrefix, MaxCols)
}

// ToCoordinate parses a row and column identifier pair.
func ToCoordinate(rowID, columnID string) (Coord, error) {
	row, err := ParseRowID(rowID)
	if err != nil {
		return Coord{}, err
	}
	col, err := ParseColumnID(columnID)
	if err != nil {
		return Coord{}, err
	}
	return Coord{Row: row, Col: col}, nil
}

func parseIndex(id, prefix string, limit int) (int, error) {
	suffix, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return 0, malformed(id, fmt.Sprintf("expected prefix %q", prefix))
	}
	if suffix == "" {
		return 0, malformed(id, "missing index")
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return 0, malformed(id, "index is not an integer")
		}
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n >= limit {
		// Only digits reach here, so a parse error means overflow.
		return 0, outOfBounds(id, limit)
	}
	return n, nil
}
