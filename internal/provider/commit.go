package provider

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"selfx-go/internal/selfx"
)

// Commit is a read-only view over a commit document and the URI it was
// fetched from.
type Commit struct {
	uri    string
	doc    json.RawMessage
	sha    string
	author string

	schema    schema
	resources selfx.Resources
	logger    selfx.Logger

	once     sync.Once
	comments *Comments
}

var _ selfx.Commit = (*Commit)(nil)

func newCommit(uri string, doc json.RawMessage, s schema, resources selfx.Resources, logger selfx.Logger) (*Commit, error) {
	sha, author, err := s.commit(doc)
	if err != nil {
		return nil, fmt.Errorf("decoding commit from [%s]: %w", uri, err)
	}
	return &Commit{
		uri:       uri,
		doc:       doc,
		sha:       sha,
		author:    author,
		schema:    s,
		resources: resources,
		logger:    logger,
	}, nil
}

// URI returns the address the commit was fetched from.
func (c *Commit) URI() string { return c.uri }

func (c *Commit) ShaRef() string { return c.sha }

func (c *Commit) Author() string { return c.author }

// JSON returns a copy of the commit document.
func (c *Commit) JSON() json.RawMessage { return slices.Clone(c.doc) }

// Comments returns the comments at {uri}/comments.
func (c *Commit) Comments() selfx.Comments {
	c.once.Do(func() {
		c.comments = &Comments{
			uri:       c.uri + "/comments",
			schema:    c.schema,
			resources: c.resources,
			logger:    c.logger,
		}
	})
	return c.comments
}
