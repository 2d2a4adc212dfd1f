package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cuongbtq/tube-insights/internal/domain"
)

// channelIDPattern matches a raw channel id
var channelIDPattern = regexp.MustCompile(`^UC[0-9A-Za-z_-]{22}$`)

type channelListResponse struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

type channelSearchResponse struct {
	Items []struct {
		ID struct {
			ChannelID string `json:"channelId"`
		} `json:"id"`
	} `json:"items"`
}

// Resolve maps a channel id, @handle or free-text channel name to a channel id.
// Failures are *domain.ResolutionError; an unknown channel wraps domain.ErrChannelNotFound.
func (c *Client) Resolve(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &domain.ResolutionError{Channel: name, Err: domain.ErrChannelNotFound}
	}

	if channelIDPattern.MatchString(name) {
		return name, nil
	}

	var (
		id  string
		err error
	)
	switch {
	case c.apiKey == "":
		id, err = c.scrapeChannelID(ctx, name)
	case strings.HasPrefix(name, "@"):
		id, err = c.lookupHandle(ctx, name)
	default:
		id, err = c.searchChannel(ctx, name)
	}
	if err != nil {
		return "", &domain.ResolutionError{Channel: name, Err: err}
	}

	return id, nil
}

func (c *Client) lookupHandle(ctx context.Context, handle string) (string, error) {
	var resp channelListResponse
	params := url.Values{
		"part":      {"id"},
		"forHandle": {handle},
	}
	if err := c.get(ctx, "/channels", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 || resp.Items[0].ID == "" {
		return "", domain.ErrChannelNotFound
	}
	return resp.Items[0].ID, nil
}

func (c *Client) searchChannel(ctx context.Context, name string) (string, error) {
	var resp channelSearchResponse
	params := url.Values{
		"part":       {"snippet"},
		"type":       {"channel"},
		"q":          {name},
		"maxResults": {"1"},
	}
	if err := c.get(ctx, "/search", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 || resp.Items[0].ID.ChannelID == "" {
		return "", domain.ErrChannelNotFound
	}
	return resp.Items[0].ID.ChannelID, nil
}

// scrapeChannelID reads the channel id from the public handle page
func (c *Client) scrapeChannelID(ctx context.Context, name string) (string, error) {
	handle := strings.TrimPrefix(name, "@")
	handle = strings.Join(strings.Fields(handle), "")

	doc, err := c.page(ctx, "/@"+url.PathEscape(handle))
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return "", domain.ErrChannelNotFound
		}
		return "", err
	}

	if id := channelIDFromDocument(doc); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("%w: no channel id on page for %q", domain.ErrChannelNotFound, name)
}

func channelIDFromDocument(doc *goquery.Document) string {
	if id, ok := doc.Find(`meta[itemprop="channelId"]`).Attr("content"); ok && channelIDPattern.MatchString(id) {
		return id
	}
	if id, ok := doc.Find(`meta[itemprop="identifier"]`).Attr("content"); ok && channelIDPattern.MatchString(id) {
		return id
	}
	if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		if i := strings.Index(href, "/channel/"); i >= 0 {
			id := strings.Trim(href[i+len("/channel/"):], "/")
			if channelIDPattern.MatchString(id) {
				return id
			}
		}
	}
	return ""
}
