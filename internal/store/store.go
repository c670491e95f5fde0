package store

import (
	"context"
	"errors"
	"time"
)

// ErrEmpty is returned by the random pickers when the collection has no
// entries yet.
var ErrEmpty = errors.New("store is empty")

// Meme is one saved chat meme.
type Meme struct {
	ID        string
	Author    string
	Content   string
	CreatedAt time.Time
}

// Quote is one saved quote line.
type Quote struct {
	ID        string
	Author    string
	Content   string
	CreatedAt time.Time
}

// Store is the persistence capability the bundled plugins need: load
// everything, append one entry, existence check, random pick. The backing
// mechanism is an implementation detail.
type Store interface {
	AddMeme(ctx context.Context, m Meme) error
	Memes(ctx context.Context) ([]Meme, error)
	RandomMeme(ctx context.Context) (*Meme, error)
	MemeExists(ctx context.Context, content string) (bool, error)

	AddQuote(ctx context.Context, q Quote) error
	Quotes(ctx context.Context) ([]Quote, error)
	RandomQuote(ctx context.Context) (*Quote, error)

	Close() error
}
