package provider

import (
	"encoding/json"
	"net/url"
	"strings"

	"selfx-go/internal/selfx"
)

type gitlabSchema struct{}

type gitlabCommit struct {
	ID         string `json:"id"`
	AuthorName string `json:"author_name"`
}

// GitLab commit comments have no id of their own.
type gitlabComment struct {
	Note   string `json:"note"`
	Author struct {
		Username string `json:"username"`
	} `json:"author"`
}

// commitsURI addresses the project by its URL-encoded path.
func (gitlabSchema) commitsURI(baseURL, repo string) string {
	return baseURL + "/projects/" + url.PathEscape(repo) + "/repository/commits"
}

func (gitlabSchema) latest(body json.RawMessage, _ selfx.Logger) (json.RawMessage, string, error) {
	first, err := firstOfList(body)
	if err != nil {
		return nil, "", err
	}
	var c gitlabCommit
	if err := json.Unmarshal(first, &c); err != nil {
		return nil, "", err
	}
	return first, c.ID, nil
}

func (gitlabSchema) commit(doc json.RawMessage) (string, string, error) {
	var c gitlabCommit
	if err := json.Unmarshal(doc, &c); err != nil {
		return "", "", err
	}
	return c.ID, c.AuthorName, nil
}

// commentsPage reads the page number of the next page from X-Next-Page,
// which is empty on the last page.
func (s gitlabSchema) commentsPage(res *selfx.Resource, uri string) ([]selfx.Comment, string, error) {
	items, err := decodeCommentList(res.Body, s.comment)
	if err != nil {
		return nil, "", err
	}
	page := strings.TrimSpace(res.Header.Get("X-Next-Page"))
	if page == "" {
		return items, "", nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, "", err
	}
	q := u.Query()
	q.Set("page", page)
	u.RawQuery = q.Encode()
	return items, u.String(), nil
}

func (gitlabSchema) comment(doc json.RawMessage) (selfx.Comment, error) {
	var c gitlabComment
	if err := json.Unmarshal(doc, &c); err != nil {
		return selfx.Comment{}, err
	}
	return selfx.Comment{Author: c.Author.Username, Body: c.Note, JSON: doc}, nil
}

func (gitlabSchema) newComment(body string) any {
	return map[string]string{"note": body}
}
