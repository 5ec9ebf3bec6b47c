package document

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"
	"strings"
	"unicode"

	"github.com/roach88/guildgrid/internal/model"
)

const (
	// MaxSlugLength bounds a slug including its random suffix.
	MaxSlugLength = 100

	suffixLength = 5
	base36       = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// DocumentWriter persists new grid documents.
type DocumentWriter interface {
	InsertDocument(ctx context.Context, doc model.GridDocument) (model.GridDocument, error)
}

// SuffixFunc returns the random tail appended to every slug.
type SuffixFunc func() (string, error)

// Creator mints new grids.
type Creator struct {
	docs   DocumentWriter
	suffix SuffixFunc
}

// CreatorOption configures a Creator.
type CreatorOption func(*Creator)

// WithSuffixFunc replaces the random slug suffix source.
// Tests use it to get deterministic slugs.
func WithSuffixFunc(fn SuffixFunc) CreatorOption {
	return func(c *Creator) {
		c.suffix = fn
	}
}

// NewCreator creates a Creator writing to docs.
func NewCreator(docs DocumentWriter, opts ...CreatorOption) *Creator {
	c := &Creator{docs: docs, suffix: randomSuffix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create stores a new, unprotected grid owned by creatorID.
// An empty name defaults to "<creatorName>'s grid".
func (c *Creator) Create(ctx context.Context, guildID, name, creatorID, creatorName string) (model.GridDocument, error) {
	if guildID == "" {
		return model.GridDocument{}, fmt.Errorf("create grid: guild id is required")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = creatorName + "'s grid"
	}

	suffix, err := c.suffix()
	if err != nil {
		return model.GridDocument{}, fmt.Errorf("create grid: slug suffix: %w", err)
	}

	doc, err := c.docs.InsertDocument(ctx, model.GridDocument{
		GuildID:            guildID,
		Slug:               Slugify(name, suffix),
		Name:               name,
		CreatorID:          creatorID,
		CreatorDisplayName: creatorName,
	})
	if err != nil {
		return model.GridDocument{}, fmt.Errorf("create grid: %w", err)
	}

	slog.Info("grid created", "guild_id", doc.GuildID, "slug", doc.Slug, "grid_id", doc.ID)
	return doc, nil
}

// Slugify lower-cases name, turns whitespace runs into "-", drops anything
// outside [a-z0-9-], appends "-"+suffix and truncates to MaxSlugLength.
func Slugify(name, suffix string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}

	slug := b.String() + "-" + suffix
	if len(slug) > MaxSlugLength {
		slug = slug[:MaxSlugLength]
	}
	return slug
}

// GridURL returns the shareable link for doc under baseURL.
func GridURL(baseURL string, doc model.GridDocument) (string, error) {
	u, err := url.JoinPath(baseURL, "grids", doc.GuildID, doc.Slug)
	if err != nil {
		return "", fmt.Errorf("grid url: %w", err)
	}
	return u, nil
}

func randomSuffix() (string, error) {
	max := big.NewInt(int64(len(base36)))
	buf := make([]byte, suffixLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = base36[n.Int64()]
	}
	return string(buf), nil
}
