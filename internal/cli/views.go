package cli

import (
	"fmt"
	"strings"

	"github.com/roach88/guildgrid/internal/document"
	"github.com/roach88/guildgrid/internal/grid"
	"github.com/roach88/guildgrid/internal/model"
)

// GridSummary is the CLI view of a grid document.
type GridSummary struct {
	ID        string `json:"id"`
	GuildID   string `json:"guild_id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
	URL       string `json:"url,omitempty"`
}

func summarize(doc model.GridDocument, baseURL string) GridSummary {
	u, _ := document.GridURL(baseURL, doc)
	return GridSummary{
		ID:        doc.ID,
		GuildID:   doc.GuildID,
		Slug:      doc.Slug,
		Name:      doc.Name,
		Protected: doc.HasPassword,
		URL:       u,
	}
}

func (g GridSummary) String() string {
	lock := ""
	if g.Protected {
		lock = " [protected]"
	}
	return fmt.Sprintf("%s (%s/%s)%s\n  %s", g.Name, g.GuildID, g.Slug, lock, g.URL)
}

// CellView is one non-empty cell.
type CellView struct {
	Address   string `json:"address"`
	Row       int    `json:"row"`
	Column    int    `json:"column"`
	Text      string `json:"text"`
	StorageID string `json:"storage_id,omitempty"`
}

func cellView(c grid.Coord, cell grid.Cell) CellView {
	return CellView{
		Address:   c.String(),
		Row:       c.Row,
		Column:    c.Col,
		Text:      cell.Text,
		StorageID: cell.StorageID,
	}
}

func (c CellView) String() string {
	if c.Text == "" {
		return c.Address + " cleared"
	}
	return c.Address + " = " + c.Text
}

// GridView is a grid with its non-empty cells in row-major order.
type GridView struct {
	Grid           GridSummary `json:"grid"`
	Cells          []CellView  `json:"cells"`
	DecodeFailures int         `json:"decode_failures"`
}

func (v GridView) String() string {
	var b strings.Builder
	b.WriteString(v.Grid.String())
	if len(v.Cells) == 0 {
		b.WriteString("\n  (empty)")
	}
	for _, c := range v.Cells {
		fmt.Fprintf(&b, "\n%s\t%s", c.Address, c.Text)
	}
	if v.DecodeFailures > 0 {
		fmt.Fprintf(&b, "\nwarning: %d cell(s) did not decode; wrong passphrase?", v.DecodeFailures)
	}
	return b.String()
}

// GridList is a list of grids.
type GridList []GridSummary

func (l GridList) String() string {
	if len(l) == 0 {
		return "No grids."
	}
	lines := make([]string, len(l))
	for i, g := range l {
		lines[i] = g.String()
	}
	return strings.Join(lines, "\n")
}
