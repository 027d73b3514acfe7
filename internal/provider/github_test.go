package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"selfx-go/internal/selfx"
	"selfx-go/internal/testutil"
)

const ghCommits = "https://api.github.com/repos/amihaiemil/docker-java-api/commits"

func TestGitHubCommits_Latest(t *testing.T) {
	ctx := context.Background()
	list := `[
		{"sha":"s0","author":{"login":"amihaiemil"},"commit":{"author":{"name":"Mihai"}}},
		{"sha":"s1","author":{"login":"vlad"},"commit":{"author":{"name":"Vlad"}}}
	]`
	res := testutil.NewStubResources().Serve(ghCommits, 200, list)
	p, _ := newTestProvider(t, selfx.GitHub, res)

	c, err := p.Commits("amihaiemil/docker-java-api").Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if c.(*Commit).URI() != ghCommits+"/s0" || c.ShaRef() != "s0" || c.Author() != "amihaiemil" {
		t.Errorf("commit = %s %s %s", c.(*Commit).URI(), c.ShaRef(), c.Author())
	}
	var single map[string]any
	if err := json.Unmarshal(c.JSON(), &single); err != nil {
		t.Fatalf("JSON() should be a single object: %v", err)
	}
	if single["sha"] != "s0" {
		t.Errorf("JSON() sha = %v", single["sha"])
	}
}

func TestGitHubCommits_Get(t *testing.T) {
	ctx := context.Background()
	res := testutil.NewStubResources().
		Serve(ghCommits+"/s9", 200, `{"sha":"s9","author":null,"commit":{"author":{"name":"Ghost Writer"}}}`).
		Serve(ghCommits+"/nope", 404, `{"message":"Not Found"}`).
		Serve(ghCommits+"/limited", 403, `{"message":"API rate limit exceeded"}`)
	p, _ := newTestProvider(t, selfx.GitHub, res)
	commits := p.Commits("amihaiemil/docker-java-api")

	c, err := commits.Get(ctx, "s9")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if c.Author() != "Ghost Writer" {
		t.Errorf("Author() = %q, want the git author name", c.Author())
	}
	if c, err := commits.Get(ctx, "nope"); c != nil || err != nil {
		t.Errorf("Get(nope) = %v, %v", c, err)
	}
	if _, err := commits.Get(ctx, "limited"); !errors.Is(err, selfx.ErrUpstream) {
		t.Errorf("Get(limited) error = %v, want ErrUpstream", err)
	}
}

func TestGitHubCommits_LatestEmpty(t *testing.T) {
	res := testutil.NewStubResources().Serve(ghCommits, 200, `[]`)
	p, _ := newTestProvider(t, selfx.GitHub, res)
	if _, err := p.Commits("amihaiemil/docker-java-api").Latest(context.Background()); !errors.Is(err, selfx.ErrNoCommits) {
		t.Errorf("Latest() error = %v, want ErrNoCommits", err)
	}
}

func TestGitHubComments_Pagination(t *testing.T) {
	ctx := context.Background()
	commentsURI := ghCommits + "/s0/comments"
	page2 := "https://api.github.com/repositories/1/commits/s0/comments?page=2"
	link := http.Header{}
	link.Set("Link", `<`+page2+`>; rel="next", <`+page2+`>; rel="last"`)

	res := testutil.NewStubResources().
		Serve(ghCommits+"/s0", 200, `{"sha":"s0","author":{"login":"a"}}`).
		ServeWithHeader(commentsURI, 200, `[{"id":11,"body":"one","user":{"login":"a"}}]`, link).
		Serve(page2, 200, `[{"id":12,"body":"two","user":{"login":"b"}}]`).
		ServePost(commentsURI, 422, `{"message":"Validation Failed"}`)
	p, _ := newTestProvider(t, selfx.GitHub, res)

	c, err := p.Commits("amihaiemil/docker-java-api").Get(ctx, "s0")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	all, err := c.Comments().All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 2 || all[0].ID != "11" || all[1].Body != "two" {
		t.Errorf("All() = %+v", all)
	}

	_, err = c.Comments().Post(ctx, "")
	var ue *selfx.UpstreamError
	if !errors.As(err, &ue) || ue.StatusCode != 422 {
		t.Errorf("Post() error = %v, want status 422", err)
	}
}

func TestNextLink(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{link: "", want: ""},
		{link: `<https://x/p2>; rel="next"`, want: "https://x/p2"},
		{link: `<https://x/p1>; rel="prev", <https://x/p3>; rel="next"`, want: "https://x/p3"},
		{link: `<https://x/p1>; rel="first"`, want: ""},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.link != "" {
			h.Set("Link", tt.link)
		}
		if got := nextLink(h); got != tt.want {
			t.Errorf("nextLink(%q) = %q, want %q", tt.link, got, tt.want)
		}
	}
}
