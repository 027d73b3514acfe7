package provider

import (
	"context"
	"fmt"
	"net/http"

	"selfx-go/internal/selfx"
)

// Commits is the commits endpoint of one repository. It holds no state
// beyond its URI and is safe for concurrent use.
type Commits struct {
	uri       string
	schema    schema
	resources selfx.Resources
	logger    selfx.Logger
}

var _ selfx.Commits = (*Commits)(nil)

// URI returns the commits endpoint.
func (c *Commits) URI() string { return c.uri }

// Get fetches {uri}/{ref}. A 404 yields nil, nil.
func (c *Commits) Get(ctx context.Context, ref string) (selfx.Commit, error) {
	uri := c.uri + "/" + ref
	c.logger.Debug("getting commit", "ref", ref, "uri", c.uri)

	res, err := c.resources.Get(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("fetching commit %s: %w", ref, err)
	}
	switch res.StatusCode {
	case http.StatusOK:
		commit, err := newCommit(uri, res.Body, c.schema, c.resources, c.logger)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("commit found", "ref", ref)
		return commit, nil
	case http.StatusNotFound:
		c.logger.Debug("commit not found", "ref", ref)
		return nil, nil
	default:
		c.logger.Error("could not get commit", "ref", ref, "status", res.StatusCode)
		return nil, selfx.Upstream("get commit "+ref, res.StatusCode, uri)
	}
}

// Latest fetches the commits list and returns its newest commit, bound to
// {uri}/{ref}.
func (c *Commits) Latest(ctx context.Context) (selfx.Commit, error) {
	res, err := c.resources.Get(ctx, c.uri)
	if err != nil {
		return nil, fmt.Errorf("fetching commits: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		c.logger.Error("could not list commits", "uri", c.uri, "status", res.StatusCode)
		return nil, selfx.Upstream("latest commit", res.StatusCode, c.uri)
	}
	doc, ref, err := c.schema.latest(res.Body, c.logger)
	if err != nil {
		return nil, fmt.Errorf("latest commit of [%s]: %w", c.uri, err)
	}
	commit, err := newCommit(c.uri+"/"+ref, doc, c.schema, c.resources, c.logger)
	if err != nil {
		return nil, err
	}
	return commit, nil
}

func (c *Commits) All(context.Context) ([]selfx.Commit, error) {
	return nil, selfx.Unsupported("you cannot iterate over all the commits of a repository")
}
