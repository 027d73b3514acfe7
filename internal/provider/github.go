package provider

import (
	"encoding/json"
	"net/http"
	"strings"

	"selfx-go/internal/selfx"
)

type githubSchema struct{}

type githubCommit struct {
	SHA    string `json:"sha"`
	Author *struct {
		Login string `json:"login"`
	} `json:"author"`
	Commit struct {
		Author struct {
			Name string `json:"name"`
		} `json:"author"`
	} `json:"commit"`
}

type githubComment struct {
	ID   json.RawMessage `json:"id"`
	Body string          `json:"body"`
	User struct {
		Login string `json:"login"`
	} `json:"user"`
}

func (githubSchema) commitsURI(baseURL, repo string) string {
	return baseURL + "/repos/" + repo + "/commits"
}

// latest reduces the commits array to its first element, the newest commit.
func (githubSchema) latest(body json.RawMessage, _ selfx.Logger) (json.RawMessage, string, error) {
	first, err := firstOfList(body)
	if err != nil {
		return nil, "", err
	}
	var c githubCommit
	if err := json.Unmarshal(first, &c); err != nil {
		return nil, "", err
	}
	return first, c.SHA, nil
}

// commit takes the author's login; commits by unknown users only carry the
// git author name.
func (githubSchema) commit(doc json.RawMessage) (string, string, error) {
	var c githubCommit
	if err := json.Unmarshal(doc, &c); err != nil {
		return "", "", err
	}
	author := c.Commit.Author.Name
	if c.Author != nil && c.Author.Login != "" {
		author = c.Author.Login
	}
	return c.SHA, author, nil
}

func (s githubSchema) commentsPage(res *selfx.Resource, _ string) ([]selfx.Comment, string, error) {
	items, err := decodeCommentList(res.Body, s.comment)
	if err != nil {
		return nil, "", err
	}
	return items, nextLink(res.Header), nil
}

func (githubSchema) comment(doc json.RawMessage) (selfx.Comment, error) {
	var c githubComment
	if err := json.Unmarshal(doc, &c); err != nil {
		return selfx.Comment{}, err
	}
	return selfx.Comment{ID: rawID(c.ID), Author: c.User.Login, Body: c.Body, JSON: doc}, nil
}

func (githubSchema) newComment(body string) any {
	return map[string]string{"body": body}
}

// nextLink returns the rel="next" target of an RFC 8288 Link header.
func nextLink(h http.Header) string {
	for _, link := range strings.Split(h.Get("Link"), ",") {
		parts := strings.Split(link, ";")
		if len(parts) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(parts[0]), "<>")
		for _, param := range parts[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return target
			}
		}
	}
	return ""
}
