package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"selfx-go/internal/selfx"
)

type bitbucketSchema struct{}

type bitbucketCommit struct {
	Hash   string `json:"hash"`
	Date   string `json:"date"`
	Author struct {
		Raw  string `json:"raw"`
		User *struct {
			Nickname string `json:"nickname"`
		} `json:"user"`
	} `json:"author"`
}

// bitbucketPage is the paginated envelope of every Bitbucket list endpoint.
type bitbucketPage struct {
	Values []json.RawMessage `json:"values"`
	Next   string            `json:"next"`
}

type bitbucketComment struct {
	ID      json.RawMessage `json:"id"`
	Content struct {
		Raw string `json:"raw"`
	} `json:"content"`
	User struct {
		Nickname string `json:"nickname"`
	} `json:"user"`
}

func (bitbucketSchema) commitsURI(baseURL, repo string) string {
	return baseURL + "/repositories/" + repo + "/commits"
}

// latest keeps the envelope of the commits list and rewrites its values to
// hold only the newest commit. Element 0 is expected to be the newest; when
// the dates say otherwise a warning is logged and the newest by date wins.
func (bitbucketSchema) latest(body json.RawMessage, logger selfx.Logger) (json.RawMessage, string, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, "", fmt.Errorf("decoding commits envelope: %w", err)
	}
	var values []json.RawMessage
	if raw, ok := envelope["values"]; ok {
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, "", fmt.Errorf("decoding commits values: %w", err)
		}
	}
	if len(values) == 0 {
		return nil, "", selfx.ErrNoCommits
	}

	commits := make([]bitbucketCommit, len(values))
	for i, v := range values {
		if err := json.Unmarshal(v, &commits[i]); err != nil {
			return nil, "", fmt.Errorf("decoding commit %d: %w", i, err)
		}
	}
	idx := newestBitbucketCommit(commits)
	if idx != 0 {
		logger.Warn("commits list is not sorted newest first",
			"first", commits[0].Hash, "newest", commits[idx].Hash)
	}

	single, err := json.Marshal([]json.RawMessage{values[idx]})
	if err != nil {
		return nil, "", fmt.Errorf("encoding commits values: %w", err)
	}
	envelope["values"] = single
	doc, err := json.Marshal(envelope)
	if err != nil {
		return nil, "", fmt.Errorf("encoding commits envelope: %w", err)
	}
	return doc, commits[idx].Hash, nil
}

// newestBitbucketCommit returns the index of the most recent commit, or 0
// when a date is missing or unreadable.
func newestBitbucketCommit(commits []bitbucketCommit) int {
	newest := 0
	var newestAt time.Time
	for i, c := range commits {
		at, err := time.Parse(time.RFC3339, c.Date)
		if err != nil {
			return 0
		}
		if i == 0 || at.After(newestAt) {
			newest, newestAt = i, at
		}
	}
	return newest
}

// commit accepts both a bare commit and a values envelope, in which case the
// first value is the commit.
func (bitbucketSchema) commit(doc json.RawMessage) (string, string, error) {
	var page bitbucketPage
	if err := json.Unmarshal(doc, &page); err != nil {
		return "", "", err
	}
	if len(page.Values) > 0 {
		doc = page.Values[0]
	}
	var c bitbucketCommit
	if err := json.Unmarshal(doc, &c); err != nil {
		return "", "", err
	}
	author := c.Author.Raw
	if c.Author.User != nil && c.Author.User.Nickname != "" {
		author = c.Author.User.Nickname
	}
	return c.Hash, author, nil
}

func (s bitbucketSchema) commentsPage(res *selfx.Resource, _ string) ([]selfx.Comment, string, error) {
	var page bitbucketPage
	if err := json.Unmarshal(res.Body, &page); err != nil {
		return nil, "", err
	}
	items := make([]selfx.Comment, 0, len(page.Values))
	for _, v := range page.Values {
		c, err := s.comment(v)
		if err != nil {
			return nil, "", err
		}
		items = append(items, c)
	}
	return items, page.Next, nil
}

func (bitbucketSchema) comment(doc json.RawMessage) (selfx.Comment, error) {
	var c bitbucketComment
	if err := json.Unmarshal(doc, &c); err != nil {
		return selfx.Comment{}, err
	}
	return selfx.Comment{
		ID:     rawID(c.ID),
		Author: c.User.Nickname,
		Body:   c.Content.Raw,
		JSON:   doc,
	}, nil
}

func (bitbucketSchema) newComment(body string) any {
	return map[string]any{"content": map[string]string{"raw": body}}
}
