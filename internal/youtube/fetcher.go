package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cuongbtq/tube-insights/internal/domain"
)

const watchURL = "https://www.youtube.com/watch?v="

type videoSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    *string `json:"viewCount"`
			LikeCount    *string `json:"likeCount"`
			CommentCount *string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// Fetch returns the channel's most recent videos, newest first. A channel without uploads yields an
// empty, non-nil slice. Failures are *domain.FetchError.
func (c *Client) Fetch(ctx context.Context, channelID string) ([]domain.ContentItem, error) {
	var (
		items []domain.ContentItem
		err   error
	)
	if c.apiKey == "" {
		items, err = c.fetchFeed(ctx, channelID)
	} else {
		items, err = c.fetchAPI(ctx, channelID)
	}
	if err != nil {
		return nil, &domain.FetchError{ChannelID: channelID, Err: err}
	}
	return items, nil
}

func (c *Client) fetchAPI(ctx context.Context, channelID string) ([]domain.ContentItem, error) {
	var search videoSearchResponse
	params := url.Values{
		"part":       {"id"},
		"channelId":  {channelID},
		"order":      {"date"},
		"type":       {"video"},
		"maxResults": {strconv.Itoa(c.maxResults)},
	}
	if err := c.get(ctx, "/search", params, &search); err != nil {
		return nil, fmt.Errorf("failed to search videos: %w", err)
	}

	ids := make([]string, 0, len(search.Items))
	for _, item := range search.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	if len(ids) == 0 {
		return []domain.ContentItem{}, nil
	}

	var list videoListResponse
	params = url.Values{
		"part": {"snippet,statistics"},
		"id":   {strings.Join(ids, ",")},
	}
	if err := c.get(ctx, "/videos", params, &list); err != nil {
		return nil, fmt.Errorf("failed to load video details: %w", err)
	}

	byID := make(map[string]domain.ContentItem, len(list.Items))
	for _, v := range list.Items {
		stats, err := parseStatistics(v.Statistics.ViewCount, v.Statistics.LikeCount, v.Statistics.CommentCount)
		if err != nil {
			return nil, fmt.Errorf("video %s: %w", v.ID, err)
		}
		byID[v.ID] = domain.ContentItem{
			Title:       v.Snippet.Title,
			Description: v.Snippet.Description,
			URL:         watchURL + v.ID,
			Statistics:  stats,
		}
	}

	// keep search order, which is newest first
	items := make([]domain.ContentItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func parseStatistics(views, likes, comments *string) (domain.Statistics, error) {
	var stats domain.Statistics
	var err error

	if stats.ViewCount, err = parseCount("viewCount", views); err != nil {
		return stats, err
	}
	if stats.LikeCount, err = parseCount("likeCount", likes); err != nil {
		return stats, err
	}
	if stats.CommentCount, err = parseCount("commentCount", comments); err != nil {
		return stats, err
	}
	return stats, nil
}

// parseCount keeps an unreported counter nil instead of coercing it to zero
func parseCount(field string, raw *string) (*int64, error) {
	if raw == nil {
		return nil, nil
	}
	n, err := strconv.ParseInt(*raw, 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("malformed %s %q", field, *raw)
	}
	return &n, nil
}

// atomFeed is the subset of the public uploads feed used when no API key is configured
type atomFeed struct {
	Entries []struct {
		VideoID string `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
		Title   string `xml:"title"`
		Group   struct {
			Description string `xml:"http://search.yahoo.com/mrss/ description"`
			Community   struct {
				Statistics struct {
					Views *string `xml:"views,attr"`
				} `xml:"http://search.yahoo.com/mrss/ statistics"`
			} `xml:"http://search.yahoo.com/mrss/ community"`
		} `xml:"http://search.yahoo.com/mrss/ group"`
	} `xml:"entry"`
}

// fetchFeed reads the public uploads feed. It reports views only.
func (c *Client) fetchFeed(ctx context.Context, channelID string) ([]domain.ContentItem, error) {
	path := "/feeds/videos.xml?channel_id=" + url.QueryEscape(channelID)
	resp, err := c.do(ctx, c.pageURL+path, "application/atom+xml")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Endpoint: "/feeds/videos.xml"}
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode uploads feed: %w", err)
	}

	items := make([]domain.ContentItem, 0, min(len(feed.Entries), c.maxResults))
	for _, e := range feed.Entries {
		if len(items) == c.maxResults {
			break
		}
		views, err := parseCount("views", e.Group.Community.Statistics.Views)
		if err != nil {
			return nil, fmt.Errorf("video %s: %w", e.VideoID, err)
		}
		items = append(items, domain.ContentItem{
			Title:       e.Title,
			Description: e.Group.Description,
			URL:         watchURL + e.VideoID,
			Statistics:  domain.Statistics{ViewCount: views},
		})
	}
	return items, nil
}
