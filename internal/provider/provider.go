// Package provider adapts the commit APIs of GitHub, GitLab and Bitbucket to
// the selfx Commits and Commit contracts.
package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"selfx-go/internal/selfx"
)

// Default API roots of the hosted providers.
var defaultBaseURLs = map[string]string{
	selfx.GitHub:    "https://api.github.com",
	selfx.GitLab:    "https://gitlab.com/api/v4",
	selfx.Bitbucket: "https://api.bitbucket.org/2.0",
}

// schema holds everything that differs between the providers' REST APIs.
type schema interface {
	// commitsURI returns the commits endpoint of a repository.
	commitsURI(baseURL, repo string) string

	// latest picks the newest commit out of a commits-list body. It returns the
	// document a Commit is built on and the commit's ref.
	latest(body json.RawMessage, logger selfx.Logger) (doc json.RawMessage, ref string, err error)

	// commit projects the sha and the author's username out of a commit document.
	commit(doc json.RawMessage) (sha, author string, err error)

	// commentsPage decodes one page of comments fetched from uri and returns
	// the URI of the next page, or "" on the last page.
	commentsPage(res *selfx.Resource, uri string) (items []selfx.Comment, next string, err error)

	// comment decodes a single comment.
	comment(doc json.RawMessage) (selfx.Comment, error)

	// newComment is the request body posting a comment.
	newComment(body string) any
}

var schemas = map[string]schema{
	selfx.GitHub:    githubSchema{},
	selfx.GitLab:    gitlabSchema{},
	selfx.Bitbucket: bitbucketSchema{},
}

// Provider is a source-hosting service reached through Resources.
type Provider struct {
	name      string
	baseURL   string
	schema    schema
	resources selfx.Resources
	logger    selfx.Logger
}

var _ selfx.Provider = (*Provider)(nil)

// New creates the provider called name. An empty baseURL selects the public
// API of the provider.
func New(name, baseURL string, resources selfx.Resources, logger selfx.Logger) (*Provider, error) {
	s, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %q", name)
	}
	if baseURL == "" {
		baseURL = defaultBaseURLs[name]
	}
	if logger == nil {
		logger = selfx.NewNopLogger()
	}
	return &Provider{
		name:      name,
		baseURL:   strings.TrimRight(baseURL, "/"),
		schema:    s,
		resources: resources,
		logger:    logger,
	}, nil
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) BaseURL() string { return p.baseURL }

// Commits returns the commits of repo, given as "owner/name".
func (p *Provider) Commits(repo string) selfx.Commits {
	return &Commits{
		uri:       p.schema.commitsURI(p.baseURL, repo),
		schema:    p.schema,
		resources: p.resources,
		logger:    p.logger,
	}
}
