package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const queuesCacheKey = "queues"

// ListQueues returns every queue visible to the organization. The listing
// is cached for the client's cache TTL; callers get their own copy.
func (c *Client) ListQueues(ctx context.Context) ([]Queue, error) {
	if queues, ok := c.queues.Get(queuesCacheKey); ok {
		return slices.Clone(queues), nil
	}

	var all []Queue
	err := c.paginate(ctx, http.MethodGet, nil, func(page int) string {
		return fmt.Sprintf("/queues?perPage=%d&page=%d", c.pageSize, page)
	}, func(body []byte) error {
		var queues []Queue
		if err := json.Unmarshal(body, &queues); err != nil {
			return errors.Wrap(err, "unmarshal queues")
		}
		all = append(all, queues...)
		return nil
	})
	if err != nil {
		return all, errors.Wrap(err, "list queues")
	}

	c.queues.Set(queuesCacheKey, slices.Clone(all), 0)
	return all, nil
}

// ListComments returns all comments of the issue with the given key.
func (c *Client) ListComments(ctx context.Context, issueKey string) ([]Comment, error) {
	var all []Comment
	err := c.paginate(ctx, http.MethodGet, nil, func(page int) string {
		return fmt.Sprintf("/issues/%s/comments?perPage=%d&page=%d", url.PathEscape(issueKey), c.pageSize, page)
	}, func(body []byte) error {
		var comments []Comment
		if err := json.Unmarshal(body, &comments); err != nil {
			return errors.Wrap(err, "unmarshal comments")
		}
		all = append(all, comments...)
		return nil
	})
	if err != nil {
		return all, errors.Wrapf(err, "list comments of %s", issueKey)
	}
	return all, nil
}

// paginate walks page-numbered listings until X-Total-Pages is reached or
// the header is absent. body is sent with every page.
func (c *Client) paginate(ctx context.Context, method string, body any, path func(page int) string, decode func([]byte) error) error {
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, headers, err := c.doRequest(ctx, method, path(page), body)
		if err != nil {
			return errors.Wrapf(err, "page %d", page)
		}
		if err := decode(resp); err != nil {
			return err
		}

		total := headers.Get("X-Total-Pages")
		if total == "" {
			return nil
		}
		totalPages, err := strconv.Atoi(total)
		if err != nil {
			return errors.Wrapf(err, "parse X-Total-Pages %q", total)
		}
		if page >= totalPages {
			return nil
		}
	}
}

// IssueQuery builds the search query for issues in the given queues, most
// recently updated first. No queues means every accessible queue. Several
// queues are listed in one comma-separated Queue filter.
func IssueQuery(queues []string) string {
	if len(queues) == 0 {
		return `"Sort By": Updated DESC`
	}
	return fmt.Sprintf(`Queue: %s "Sort By": Updated DESC`, strings.Join(queues, ", "))
}

// ListIssues returns every issue in the given queues using the sorted
// scroll API.
func (c *Client) ListIssues(ctx context.Context, queues []string) ([]Issue, error) {
	req := searchRequest{Query: IssueQuery(queues)}
	path := fmt.Sprintf("/issues/_search?scrollType=sorted&perScroll=%d", c.pageSize)

	var all []Issue
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		slog.Debug("Fetching issues", "page", page, "loaded", len(all))

		body, headers, err := c.doRequest(ctx, http.MethodPost, path, req)
		if err != nil {
			return all, errors.Wrapf(err, "list issues page %d", page)
		}

		var issues []Issue
		if err := json.Unmarshal(body, &issues); err != nil {
			return all, errors.Wrap(err, "unmarshal issues")
		}
		all = append(all, issues...)

		scrollID := headers.Get("X-Scroll-Id")
		if scrollID == "" || len(issues) < c.pageSize {
			break
		}
		path = "/issues/_search?scrollId=" + url.QueryEscape(scrollID)
	}

	slog.Debug("Issues fetched", "total", len(all))
	return all, nil
}

// UpdatedQuery builds the search query for issues updated at or after since,
// oldest change first.
func UpdatedQuery(since time.Time) string {
	return fmt.Sprintf(`Updated: >= "%s" "Sort By": Updated ASC`, since.UTC().Format(time.RFC3339))
}

// ListUpdatedIssues returns every issue updated at or after since, across
// all accessible queues, following page-numbered search results.
func (c *Client) ListUpdatedIssues(ctx context.Context, since time.Time) ([]Issue, error) {
	req := searchRequest{Query: UpdatedQuery(since)}

	var all []Issue
	err := c.paginate(ctx, http.MethodPost, req, func(page int) string {
		return fmt.Sprintf("/issues/_search?perPage=%d&page=%d", c.pageSize, page)
	}, func(body []byte) error {
		var issues []Issue
		if err := json.Unmarshal(body, &issues); err != nil {
			return errors.Wrap(err, "unmarshal issues")
		}
		all = append(all, issues...)
		return nil
	})
	if err != nil {
		return all, errors.Wrapf(err, "list issues updated since %s", since.Format(time.RFC3339))
	}
	return all, nil
}
