package playlist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

const defaultAPIBase = "https://www.googleapis.com/youtube/v3/playlistItems"

// YouTube fetches playlists through the YouTube Data API v3. Pages are
// drained exhaustively before returning; a playlist is all-or-nothing.
type YouTube struct {
	APIKey string
	// BaseURL and Client are overridable for tests.
	BaseURL string
	Client  *http.Client

	log *zap.Logger
}

func NewYouTube(apiKey string, log *zap.Logger) *YouTube {
	return &YouTube{
		APIKey:  apiKey,
		BaseURL: defaultAPIBase,
		Client:  http.DefaultClient,
		log:     log,
	}
}

type playlistItemsPage struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			ResourceID   struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	} `json:"items"`
}

func (y *YouTube) Tracks(ctx context.Context, ref string) ([]Track, error) {
	playlistID := ExtractPlaylistID(ref)
	if playlistID == "" {
		return nil, fmt.Errorf("invalid playlist reference %q", ref)
	}

	var tracks []Track
	pageToken := ""
	for {
		page, err := y.fetchPage(ctx, playlistID, pageToken)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			tracks = append(tracks, Track{
				ID:      item.Snippet.ResourceID.VideoID,
				VideoID: item.Snippet.ResourceID.VideoID,
				Title:   item.Snippet.Title,
				Artist:  item.Snippet.ChannelTitle,
			})
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	y.log.Info("playlist loaded",
		zap.String("playlistId", playlistID),
		zap.Int("tracks", len(tracks)))
	return tracks, nil
}

func (y *YouTube) fetchPage(ctx context.Context, playlistID, pageToken string) (*playlistItemsPage, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("playlistId", playlistID)
	q.Set("maxResults", "50")
	q.Set("key", y.APIKey)
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build playlist request: %w", err)
	}
	resp, err := y.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube api: %s", resp.Status)
	}

	var page playlistItemsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode playlist page: %w", err)
	}
	return &page, nil
}
