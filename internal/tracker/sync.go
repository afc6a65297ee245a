package tracker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// DefaultSyncWorkers is the number of issues whose comments are fetched
// concurrently when no worker count is given.
const DefaultSyncWorkers = 5

const syncProgressEvery = 100

// IndexedIssue is a flattened issue with plain-text description and
// comments, ready to be fed to a search index.
type IndexedIssue struct {
	ID           string    `json:"id"`
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	Summary      string    `json:"summary"`
	Description  string    `json:"description"`
	CommentsText string    `json:"comments_text"`
	Queue        string    `json:"queue"`
	Status       string    `json:"status"`
	StatusName   string    `json:"status_name"`
	Priority     string    `json:"priority"`
	Type         string    `json:"type"`
	Resolution   string    `json:"resolution"`
	Author       string    `json:"author"`
	AuthorName   string    `json:"author_name"`
	Assignee     string    `json:"assignee"`
	AssigneeName string    `json:"assignee_name"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SyncResult summarizes one sync run. Errors holds the comment fetches that
// failed; their issues are still indexed without those comments.
type SyncResult struct {
	TotalIssues   int
	TotalComments int
	ProcessedAt   time.Time
	Errors        []error
}

// InitialSync fetches every issue of the given queues (all queues when
// empty) together with their comments.
func (c *Client) InitialSync(ctx context.Context, queues []string, workers int) ([]IndexedIssue, *SyncResult, error) {
	result := &SyncResult{ProcessedAt: time.Now()}

	slog.Info("Starting initial sync", "queues", queues)
	issues, err := c.ListIssues(ctx, queues)
	if err != nil {
		return nil, result, err
	}

	indexed, err := c.indexIssues(ctx, issues, workers, result)
	if err != nil {
		return nil, result, err
	}
	slog.Info("Initial sync completed",
		"issues", result.TotalIssues, "comments", result.TotalComments, "errors", len(result.Errors))
	return indexed, result, nil
}

// UpdateSync fetches the issues changed at or after since together with
// their comments.
func (c *Client) UpdateSync(ctx context.Context, since time.Time, workers int) ([]IndexedIssue, *SyncResult, error) {
	result := &SyncResult{ProcessedAt: time.Now()}

	issues, err := c.ListUpdatedIssues(ctx, since)
	if err != nil {
		return nil, result, err
	}

	indexed, err := c.indexIssues(ctx, issues, workers, result)
	if err != nil {
		return nil, result, err
	}
	slog.Info("Update sync completed", "since", since,
		"issues", result.TotalIssues, "comments", result.TotalComments, "errors", len(result.Errors))
	return indexed, result, nil
}

// indexIssues loads the comments of issues with at most workers concurrent
// fetches and converts each issue, keeping the input order. A cancelled ctx
// stops dispatching and is returned once in-flight fetches finish.
func (c *Client) indexIssues(ctx context.Context, issues []Issue, workers int, result *SyncResult) ([]IndexedIssue, error) {
	if workers <= 0 {
		workers = DefaultSyncWorkers
	}
	result.TotalIssues = len(issues)

	var (
		mu        sync.Mutex
		processed int
		indexed   = make([]IndexedIssue, len(issues))
		g         errgroup.Group
	)
	g.SetLimit(workers)

	for i, issue := range issues {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			comments, err := c.ListComments(ctx, issue.Key)
			indexed[i] = c.ToIndexed(issue, comments)

			mu.Lock()
			defer mu.Unlock()
			processed++
			result.TotalComments += len(comments)
			if err != nil && ctx.Err() == nil {
				result.Errors = append(result.Errors, err)
				slog.Warn("Comments fetch failed", "issue", issue.Key, "error", err)
			}
			if processed%syncProgressEvery == 0 {
				slog.Info("Processing comments", "done", processed, "total", len(issues))
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "sync interrupted")
	}
	return indexed, nil
}

// ToIndexed flattens an issue and its comments. HTML is stripped from the
// description and from every comment; non-empty comment texts are joined
// by blank lines.
func (c *Client) ToIndexed(issue Issue, comments []Comment) IndexedIssue {
	out := IndexedIssue{
		ID:          issue.ID,
		Key:         issue.Key,
		URL:         c.webURL + "/" + issue.Key,
		Summary:     issue.Summary,
		Description: StripHTML(issue.Description),
		Queue:       issue.Queue.Key,
		Status:      issue.Status.Key,
		StatusName:  issue.Status.Display,
		Priority:    issue.Priority.Key,
		Type:        issue.Type.Key,
		Author:      issue.Author.ID,
		AuthorName:  issue.Author.Display,
		Tags:        issue.Tags,
		CreatedAt:   issue.CreatedAt.Time,
		UpdatedAt:   issue.UpdatedAt.Time,
	}
	if issue.Resolution != nil {
		out.Resolution = issue.Resolution.Key
	}
	if issue.Assignee != nil {
		out.Assignee = issue.Assignee.ID
		out.AssigneeName = issue.Assignee.Display
	}

	texts := make([]string, 0, len(comments))
	for _, comment := range comments {
		if text := StripHTML(comment.Text); text != "" {
			texts = append(texts, text)
		}
	}
	out.CommentsText = strings.Join(texts, "\n\n")
	return out
}

// StripHTML returns the text content of s with entities decoded and
// surrounding whitespace trimmed. Non-breaking spaces become plain spaces.
func StripHTML(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(strings.ReplaceAll(b.String(), "\u00a0", " "))
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
