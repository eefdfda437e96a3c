package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Upstream is the part of Client the aggregator needs.
type Upstream interface {
	FetchIdentity(ctx context.Context, token string) (Result, error)
	ListRepositories(ctx context.Context, token string) (Result, error)
	ListBranches(ctx context.Context, token, repoURL string) (Result, error)
}

var _ Upstream = (*Client)(nil)

// Details is the combined identity and repository view of one token.
type Details struct {
	UserInfo     json.RawMessage    `json:"user_info"`
	Repositories []RepositoryRecord `json:"repositories"`
}

// RepositoryRecord is one upstream repository with its branches attached.
// ID, Name, CloneURL and Private are copied from the upstream payload as
// they are (null when absent).
//
// Branches is the raw branch list. When the branch call came back non-2xx
// it is null and BranchesStatus holds the upstream status.
type RepositoryRecord struct {
	ID             json.RawMessage `json:"id"`
	Name           json.RawMessage `json:"name"`
	CloneURL       json.RawMessage `json:"clone_url"`
	Private        json.RawMessage `json:"private"`
	Branches       json.RawMessage `json:"branches"`
	BranchesStatus int             `json:"branches_status,omitempty"`
}

// upstreamRepo is the slice of a repositories-list element we read.
type upstreamRepo struct {
	ID       json.RawMessage `json:"id"`
	Name     json.RawMessage `json:"name"`
	CloneURL json.RawMessage `json:"clone_url"`
	Private  json.RawMessage `json:"private"`
	URL      string          `json:"url"`
}

// Aggregator assembles Details with 1 + 1 + N upstream calls for a
// token owning N repositories.
type Aggregator struct {
	upstream    Upstream
	concurrency int
	logger      *slog.Logger
}

// NewAggregator returns an Aggregator that keeps at most concurrency
// branch calls in flight. Values below 1 mean 1.
func NewAggregator(upstream Upstream, concurrency int, logger *slog.Logger) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{upstream: upstream, concurrency: concurrency, logger: logger}
}

// Aggregate fetches the identity, the repository list, and then every
// repository's branches.
//
// Failure policy:
//   - transport error on any call: the whole aggregation fails with it
//   - identity or repository list non-2xx: *UpstreamError
//   - repository list that is not a JSON array of objects: *UpstreamError
//   - branch call non-2xx: that record degrades (Branches null,
//     BranchesStatus set), the rest are unaffected
//
// Records keep the upstream list order regardless of which branch call
// finishes first. Aggregate has no side effects beyond the calls.
func (a *Aggregator) Aggregate(ctx context.Context, token string) (*Details, error) {
	identity, err := a.upstream.FetchIdentity(ctx, token)
	if err != nil {
		return nil, err
	}
	if !identity.OK() {
		return nil, &UpstreamError{Call: "identity", Status: identity.Status, Payload: identity.Payload}
	}

	list, err := a.upstream.ListRepositories(ctx, token)
	if err != nil {
		return nil, err
	}
	if !list.OK() {
		return nil, &UpstreamError{Call: "repositories", Status: list.Status, Payload: list.Payload}
	}

	var repos []upstreamRepo
	if err := json.Unmarshal(list.Payload, &repos); err != nil || repos == nil {
		return nil, &UpstreamError{Call: "repositories", Status: list.Status, Payload: list.Payload}
	}

	records := make([]RepositoryRecord, len(repos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, repo := range repos {
		records[i] = RepositoryRecord{
			ID:       repo.ID,
			Name:     repo.Name,
			CloneURL: repo.CloneURL,
			Private:  repo.Private,
		}
		if repo.URL == "" {
			// Nothing to ask for; the record keeps branches: null.
			continue
		}
		g.Go(func() error {
			res, err := a.upstream.ListBranches(gctx, token, repo.URL)
			if err != nil {
				return fmt.Errorf("github: branches of repository %d: %w", i, err)
			}
			if !res.OK() {
				a.logger.Warn("branch listing failed",
					slog.String("repo_url", repo.URL),
					slog.Int("status", res.Status),
				)
				records[i].BranchesStatus = res.Status
				return nil
			}
			records[i].Branches = res.Payload
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Details{UserInfo: identity.Payload, Repositories: records}, nil
}
