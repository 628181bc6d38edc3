// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/woodsj1206/github-repo-stats/internal/domain"
)

// ErrNoTrafficData is returned when GitHub reports no traffic data for a
// repository. Callers treat this as a recoverable per-repository condition.
var ErrNoTrafficData = errors.New("no traffic data")

// Repository is one repository owned by the authenticated user, with its
// current popularity counters.
type Repository struct {
	Owner    string
	Name     string
	Stars    int
	Forks    int
	Watchers int
}

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	// FetchRepositories lists the authenticated user's public repositories.
	FetchRepositories(ctx context.Context) ([]Repository, error)
	// FetchTraffic returns the trailing per-day traffic window for one
	// repository, keyed by metric kind and ordered oldest to newest.
	FetchTraffic(ctx context.Context, owner, repo string) (map[domain.MetricKind][]domain.TrafficPoint, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
// Repository listing goes through the GraphQL API (one query returns all
// popularity counters); the traffic endpoints exist only in the REST API.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *log.Logger
}

// repositoriesQuery lists the viewer's owned public repositories.
type repositoriesQuery struct {
	Viewer struct {
		Login        string
		Repositories struct {
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
			Nodes []struct {
				Name           string
				StargazerCount int
				ForkCount      int
				Watchers       struct {
					TotalCount int
				}
			}
		} `graphql:"repositories(first: 100, after: $cursor, ownerAffiliations: OWNER, privacy: PUBLIC)"`
	}
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, logger *log.Logger) (Fetcher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

// FetchRepositories pages through the viewer's owned public repositories.
func (g *GitHubGateway) FetchRepositories(ctx context.Context) ([]Repository, error) {
	g.logger.Println("Fetching repository list using GraphQL API...")
	variables := map[string]interface{}{"cursor": (*githubv4.String)(nil)}
	var repos []Repository
	for {
		var q repositoriesQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to execute GraphQL query for repositories: %w", err)
		}
		for _, node := range q.Viewer.Repositories.Nodes {
			repos = append(repos, Repository{
				Owner:    q.Viewer.Login,
				Name:     node.Name,
				Stars:    node.StargazerCount,
				Forks:    node.ForkCount,
				Watchers: node.Watchers.TotalCount,
			})
		}
		if !q.Viewer.Repositories.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Viewer.Repositories.PageInfo.EndCursor)
		g.logger.Println("  Fetching next page of repositories...")
	}
	g.logger.Printf("Completed fetching repository list (%d repositories).\n", len(repos))
	return repos, nil
}

// FetchTraffic fetches the per-day clone and view windows for one repository
// using the REST traffic endpoints.
func (g *GitHubGateway) FetchTraffic(ctx context.Context, owner, repo string) (map[domain.MetricKind][]domain.TrafficPoint, error) {
	g.logger.Printf("Fetching traffic data for %s/%s...\n", owner, repo)
	opts := &github.TrafficBreakdownOptions{Per: "day"}

	clones, _, err := g.restClient.Repositories.ListTrafficClones(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clone traffic for %s/%s: %w", owner, repo, err)
	}
	views, _, err := g.restClient.Repositories.ListTrafficViews(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch view traffic for %s/%s: %w", owner, repo, err)
	}
	if clones == nil || views == nil {
		return nil, fmt.Errorf("%s/%s: %w", owner, repo, ErrNoTrafficData)
	}

	traffic := map[domain.MetricKind][]domain.TrafficPoint{
		domain.Clones: trafficPoints(clones.Clones),
		domain.Views:  trafficPoints(views.Views),
	}
	return traffic, nil
}

// trafficPoints converts the REST breakdown into domain points, normalizing
// each timestamp to its UTC calendar day.
func trafficPoints(data []*github.TrafficData) []domain.TrafficPoint {
	points := make([]domain.TrafficPoint, 0, len(data))
	for _, d := range data {
		if d.Timestamp == nil {
			continue
		}
		points = append(points, domain.TrafficPoint{
			Date:    domain.Day(d.Timestamp.Time),
			Count:   d.GetCount(),
			Uniques: d.GetUniques(),
		})
	}
	return points
}
