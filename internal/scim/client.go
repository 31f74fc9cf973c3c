// Package scim is the directory client for the Webex identity service. It
// hides the SCIM page-parameter bookkeeping behind a lazy user iterator and
// decodes resources into typed records.
package scim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/me/webextools/internal/webex"
)

// DefaultIdentityURL is the production Webex identity service root.
const DefaultIdentityURL = "https://identity.webex.com"

var (
	// ErrNotFound marks an empty successful response for a single-resource
	// fetch: a valid outcome, distinguishable from request failures.
	ErrNotFound = errors.New("user not found")

	// ErrMissingOrg is returned when no organization id is supplied and the
	// client has no default.
	ErrMissingOrg = errors.New("organization id is required")
)

// Shared validator instance, reused across all patch calls.
var validate = validator.New()

// Client provides resource-shaped operations over a webex.Session for one
// organizational directory. The session should target the identity service
// base URL.
type Client struct {
	session *webex.Session
	orgID   string
	logger  *slog.Logger
}

// NewClient creates a directory client. orgID is the default organization
// used when per-call org ids are empty; it may itself be empty if every call
// supplies one.
func NewClient(session *webex.Session, orgID string, logger *slog.Logger) *Client {
	return &Client{
		session: session,
		orgID:   orgID,
		logger:  logger.With("component", "scim"),
	}
}

func (c *Client) resolveOrg(orgID string) (string, error) {
	if orgID != "" {
		return orgID, nil
	}
	if c.orgID != "" {
		return c.orgID, nil
	}
	return "", ErrMissingOrg
}

func usersPath(orgID string) string {
	return fmt.Sprintf("scim/%s/v2/Users", orgID)
}

// listPage mirrors the SCIM list response envelope. An absent or empty
// Resources array means end of data.
type listPage struct {
	TotalResults int    `json:"totalResults"`
	ItemsPerPage int    `json:"itemsPerPage"`
	StartIndex   int    `json:"startIndex"`
	Resources    []User `json:"Resources"`
}

// ListUsers returns a lazy iterator over every user in the organization.
// The sequence is finite and not restartable; each advance may trigger a
// network call. A missing org id surfaces as an error on the first Next.
func (c *Client) ListUsers(ctx context.Context, orgID string) *UserIterator {
	it := &UserIterator{c: c, ctx: ctx, nextIndex: 1}
	org, err := c.resolveOrg(orgID)
	if err != nil {
		it.err = err
		return it
	}
	it.orgID = org
	return it
}

// UserIterator lazily walks a paginated user collection:
//
//	users := client.ListUsers(ctx, orgID)
//	for users.Next() {
//		u := users.User()
//		...
//	}
//	if err := users.Err(); err != nil {
//		...
//	}
type UserIterator struct {
	c     *Client
	ctx   context.Context
	orgID string

	buf          []User // decoded records not yet yielded
	cur          *User
	nextIndex    int
	itemsPerPage int
	totalResults int
	haveTotal    bool
	done         bool
	err          error
}

// Next advances to the next record, fetching further pages as needed.
func (it *UserIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		if len(it.buf) > 0 {
			it.cur = &it.buf[0]
			it.buf = it.buf[1:]
			return true
		}
		if it.done {
			return false
		}
		if err := it.fetch(); err != nil {
			it.err = err
			return false
		}
	}
}

// User returns the record produced by the last successful Next.
func (it *UserIterator) User() *User { return it.cur }

// Err returns the error that terminated the iteration, if any.
func (it *UserIterator) Err() error { return it.err }

// fetch requests the collection at the current start index and consumes
// every page of that request cycle, updating the offset bookkeeping.
// totalResults is read from the first page only; itemsPerPage from each page
// advances the start index.
func (it *UserIterator) fetch() error {
	q := url.Values{}
	q.Set("startIndex", strconv.Itoa(it.nextIndex))
	if it.itemsPerPage > 0 {
		q.Set("count", strconv.Itoa(it.itemsPerPage))
	}

	prevIndex := it.nextIndex
	it.c.logger.Debug("fetch user page", "org", it.orgID, "start_index", it.nextIndex)

	pages := it.c.session.Get(it.ctx, usersPath(it.orgID)+"?"+q.Encode())
	for pages.Next() {
		var page listPage
		if err := json.Unmarshal(pages.Page().Body, &page); err != nil {
			return fmt.Errorf("decode user page: %w", err)
		}
		if !it.haveTotal {
			it.totalResults = page.TotalResults
			it.haveTotal = true
		}
		it.itemsPerPage = page.ItemsPerPage
		it.nextIndex = page.StartIndex + page.ItemsPerPage

		if len(page.Resources) == 0 {
			// Defensive termination even when the reported counts say
			// more data should exist.
			it.done = true
			return nil
		}
		it.buf = append(it.buf, page.Resources...)
	}
	if err := pages.Err(); err != nil {
		return err
	}

	if it.nextIndex-1 >= it.totalResults {
		it.done = true
		return nil
	}
	if it.nextIndex <= prevIndex {
		return fmt.Errorf("pagination did not advance past startIndex %d (totalResults %d)",
			prevIndex, it.totalResults)
	}
	return nil
}

// GetUser fetches a single user by id. An empty successful response body
// yields ErrNotFound; session-level errors propagate unchanged.
func (c *Client) GetUser(ctx context.Context, userID, orgID string) (*User, error) {
	org, err := c.resolveOrg(orgID)
	if err != nil {
		return nil, err
	}
	return c.decodeOne(c.session.Get(ctx, usersPath(org)+"/"+userID))
}

// UpdateUserPatch issues a SCIM partial update. The patch document is
// validated locally before any network call; the caller is responsible for
// confirming the effect via the returned record's Active flag rather than
// assuming success from a 2xx status.
func (c *Client) UpdateUserPatch(ctx context.Context, userID string, patch PatchDocument, orgID string) (*User, error) {
	if err := validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("invalid patch document: %w", err)
	}
	org, err := c.resolveOrg(orgID)
	if err != nil {
		return nil, err
	}
	return c.decodeOne(c.session.Patch(ctx, usersPath(org)+"/"+userID, patch))
}

// decodeOne drains a single-resource request cycle and decodes its first
// page, mapping an empty body to ErrNotFound.
func (c *Client) decodeOne(pages *webex.Pages) (*User, error) {
	var body []byte
	for pages.Next() {
		if body == nil {
			body = pages.Page().Body
		}
	}
	if err := pages.Err(); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrNotFound
	}
	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}
