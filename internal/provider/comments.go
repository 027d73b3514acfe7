package provider

import (
	"context"
	"fmt"
	"net/http"

	"selfx-go/internal/selfx"
)

// Comments is the comment thread of a commit.
type Comments struct {
	uri       string
	schema    schema
	resources selfx.Resources
	logger    selfx.Logger
}

var _ selfx.Comments = (*Comments)(nil)

// URI returns the comments endpoint.
func (c *Comments) URI() string { return c.uri }

// All follows the provider's pagination until the last page.
func (c *Comments) All(ctx context.Context) ([]selfx.Comment, error) {
	var out []selfx.Comment
	seen := make(map[string]bool)
	for uri := c.uri; uri != ""; {
		if seen[uri] {
			return nil, fmt.Errorf("comments pagination loops at [%s]", uri)
		}
		seen[uri] = true

		res, err := c.resources.Get(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("fetching comments: %w", err)
		}
		if res.StatusCode != http.StatusOK {
			c.logger.Error("could not list comments", "uri", uri, "status", res.StatusCode)
			return nil, selfx.Upstream("list comments", res.StatusCode, uri)
		}
		items, next, err := c.schema.commentsPage(res, uri)
		if err != nil {
			return nil, fmt.Errorf("decoding comments from [%s]: %w", uri, err)
		}
		out = append(out, items...)
		uri = next
	}
	return out, nil
}

// Post adds a comment to the commit.
func (c *Comments) Post(ctx context.Context, body string) (selfx.Comment, error) {
	res, err := c.resources.Post(ctx, c.uri, c.schema.newComment(body))
	if err != nil {
		return selfx.Comment{}, fmt.Errorf("posting comment: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.Error("could not post comment", "uri", c.uri, "status", res.StatusCode)
		return selfx.Comment{}, selfx.Upstream("post comment", res.StatusCode, c.uri)
	}
	comment, err := c.schema.comment(res.Body)
	if err != nil {
		return selfx.Comment{}, fmt.Errorf("decoding posted comment: %w", err)
	}
	return comment, nil
}
