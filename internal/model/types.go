package model

// GridDocument identifies one grid and its metadata.
//
// HasPassword flips false→true exactly once, when a passphrase is first set.
type GridDocument struct {
	ID                 string `json:"id"`
	GuildID            string `json:"guild_id"`
	Slug               string `json:"slug"`
	Name               string `json:"name"`
	HasPassword        bool   `json:"has_password"`
	CreatorID          string `json:"creator_id"`
	CreatorDisplayName string `json:"creator_display_name"`
}

// CellRecord is the persisted form of one non-empty cell.
//
// StorageID is empty until the store has assigned one. When set on an
// upsert, the store updates that row instead of inserting.
type CellRecord struct {
	StorageID string `json:"storage_id,omitempty"`
	GridID    string `json:"grid_id"`
	GuildID   string `json:"guild_id"`
	Row       int    `json:"row"`
	Column    int    `json:"column"`
	Value     string `json:"value"`
}

// Key returns the match key addressing this record's coordinate.
func (r CellRecord) Key() CellKey {
	return CellKey{GridID: r.GridID, GuildID: r.GuildID, Row: r.Row, Column: r.Column}
}

// CellKey is the match key for a match-based delete.
// Deletes never go by storage id, since a cleared cell may have none.
type CellKey struct {
	GridID  string `json:"grid_id"`
	GuildID string `json:"guild_id"`
	Row     int    `json:"row"`
	Column  int    `json:"column"`
}
