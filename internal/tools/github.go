package tools

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/oauth2"
)

const (
	defaultRepoLimit     = 5
	maxDescriptionLength = 100
	noReposFound         = "No repos found."
)

type GitHubConfig struct {
	// Token is optional; anonymous search works with a lower quota.
	Token string
	// BaseURL overrides the API endpoint (GitHub Enterprise or tests).
	BaseURL string
	Limit   int
	Timeout time.Duration
}

type GitHubTool struct {
	client    *github.Client
	limit     int
	sanitizer *bluemonday.Policy
}

func NewGitHubTool(ctx context.Context, cfg GitHubConfig) (*GitHubTool, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultRepoLimit
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, httpClient), ts)
	}
	client := github.NewClient(httpClient)

	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		client.BaseURL = u
	}

	return &GitHubTool{
		client:    client,
		limit:     cfg.Limit,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

func (g *GitHubTool) ID() ToolID {
	return ToolGitHub
}

func (g *GitHubTool) Description() string {
	return "Search GitHub repositories by topic and list the most starred ones."
}

func (g *GitHubTool) Extract(step string) string {
	return ExtractQuery(step)
}

func (g *GitHubTool) Execute(ctx context.Context, query string) (string, error) {
	opts := &github.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: g.limit},
	}

	result, resp, err := g.client.Search.Repositories(ctx, query, opts)
	if err != nil {
		be := &BackendError{Service: "github", Err: err}
		if resp != nil {
			be.StatusCode = resp.StatusCode
		}
		return "", be
	}

	repos := result.Repositories
	if len(repos) > g.limit {
		repos = repos[:g.limit]
	}
	return g.formatRepos(repos), nil
}

func (g *GitHubTool) formatRepos(repos []*github.Repository) string {
	if len(repos) == 0 {
		return noReposFound
	}

	lines := make([]string, 0, len(repos))
	for _, r := range repos {
		desc := strings.TrimSpace(html.UnescapeString(g.sanitizer.Sanitize(r.GetDescription())))
		if desc == "" {
			desc = "No description"
		}
		lines = append(lines, fmt.Sprintf("%s: %d stars - %s", r.GetName(), r.GetStargazersCount(), truncateRunes(desc, maxDescriptionLength)))
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
