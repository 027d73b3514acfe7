package selfx

import (
	"context"
	"encoding/json"
)

// Commit is a read-only view over one commit as returned by a provider's API.
type Commit interface {
	// ShaRef returns the commit's SHA reference.
	ShaRef() string

	// Author returns the author's username.
	Author() string

	// Comments returns the comments on this commit.
	Comments() Comments

	// JSON returns the commit as fetched from the provider.
	JSON() json.RawMessage
}

// Commits resolves commits of one repository.
type Commits interface {
	// Get returns the commit with the given reference.
	// It returns nil, nil when the provider does not know the commit.
	Get(ctx context.Context, ref string) (Commit, error)

	// Latest returns the most recent commit of the repository.
	Latest(ctx context.Context) (Commit, error)

	// All always fails with ErrUnsupported: full history must be paged
	// through provider-specific calls.
	All(ctx context.Context) ([]Commit, error)
}

// Comment is a comment left on a commit.
type Comment struct {
	ID     string
	Author string
	Body   string
	JSON   json.RawMessage
}

// Comments is the comment thread of a commit.
type Comments interface {
	// All returns every comment, following the provider's pagination.
	All(ctx context.Context) ([]Comment, error)

	// Post adds a comment and returns it as stored by the provider.
	Post(ctx context.Context, body string) (Comment, error)
}

// Provider is a source-hosting service.
type Provider interface {
	// Name returns one of GitHub, GitLab or Bitbucket.
	Name() string

	// Commits returns the commits of the given repository.
	Commits(repoFullName string) Commits
}
