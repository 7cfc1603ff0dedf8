// Package spotify is a small client for the Spotify Web API endpoints used to pick
// alarm tracks: search, track lookup, playlists, the user profile and playback state.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Ericcccccccccc/MusicAlarm/internal/runtime/executor"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50

	searchTypeTracks = "track"
	searchTypeAll    = "album,artist,playlist,track"
)

// Executor performs authenticated requests against the Web API.
type Executor interface {
	ExecuteJSON(ctx context.Context, req executor.Request, out any) (executor.Response, error)
}

type Client struct {
	exec Executor
}

func NewClient(exec Executor) *Client {
	return &Client{exec: exec}
}

// SearchTracks returns the track results for query.
func (c *Client) SearchTracks(ctx context.Context, query string, limit, offset int) ([]Track, error) {
	result, err := c.search(ctx, query, searchTypeTracks, limit, offset)
	if err != nil {
		return nil, err
	}
	if result.Tracks == nil {
		return []Track{}, nil
	}
	return result.Tracks.Items, nil
}

// SearchAll searches albums, artists, playlists and tracks in one call.
func (c *Client) SearchAll(ctx context.Context, query string, limit, offset int) (*SearchResult, error) {
	result, err := c.search(ctx, query, searchTypeAll, limit, offset)
	if err != nil {
		return nil, err
	}
	if result.Playlists != nil {
		result.Playlists.Items = compact(result.Playlists.Items)
	}
	return result, nil
}

func (c *Client) search(ctx context.Context, query, types string, limit, offset int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("spotify: search query is empty")
	}
	q := pageQuery(limit, offset)
	q.Set("q", query)
	q.Set("type", types)

	var result SearchResult
	if _, err := c.exec.ExecuteJSON(ctx, executor.Request{Path: "search", Query: q}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetTrack(ctx context.Context, id string) (*Track, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("spotify: track id is empty")
	}
	var track Track
	if _, err := c.exec.ExecuteJSON(ctx, executor.Request{Path: "tracks/" + url.PathEscape(id)}, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// GetTracks looks up several tracks at once. Only the first MaxLimit ids are sent
// and ids the service does not know are dropped from the result.
func (c *Client) GetTracks(ctx context.Context, ids []string) ([]Track, error) {
	if len(ids) == 0 {
		return []Track{}, nil
	}
	if len(ids) > MaxLimit {
		ids = ids[:MaxLimit]
	}
	var resp struct {
		Tracks []*Track `json:"tracks"`
	}
	q := url.Values{"ids": {strings.Join(ids, ",")}}
	if _, err := c.exec.ExecuteJSON(ctx, executor.Request{Path: "tracks", Query: q}, &resp); err != nil {
		return nil, err
	}
	return deref(compact(resp.Tracks)), nil
}

// GetUserPlaylists lists the playlists owned or followed by the current user.
func (c *Client) GetUserPlaylists(ctx context.Context, limit, offset int) ([]Playlist, error) {
	var page Paging[*Playlist]
	if _, err := c.exec.ExecuteJSON(ctx, executor.Request{Path: "me/playlists", Query: pageQuery(limit, offset)}, &page); err != nil {
		return nil, err
	}
	return deref(compact(page.Items)), nil
}

// GetPlaylistTracks lists the tracks of a playlist. Local files and episodes,
// which come back without a track object, are skipped.
func (c *Client) GetPlaylistTracks(ctx context.Context, playlistID string, limit, offset int) ([]Track, error) {
	if strings.TrimSpace(playlistID) == "" {
		return nil, fmt.Errorf("spotify: playlist id is empty")
	}
	var page Paging[playlistItem]
	path := "playlists/" + url.PathEscape(playlistID) + "/tracks"
	if _, err := c.exec.ExecuteJSON(ctx, executor.Request{Path: path, Query: pageQuery(limit, offset)}, &page); err != nil {
		return nil, err
	}
	tracks := make([]Track, 0, len(page.Items))
	for _, item := range page.Items {
		if item.Track != nil && item.Track.ID != "" {
			tracks = append(tracks, *item.Track)
		}
	}
	return tracks, nil
}

func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var user User
	if _, err := c.exec.ExecuteJSON(ctx, executor.Request{Path: "me"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetCurrentlyPlaying returns the track playing right now, or nil when nothing is.
func (c *Client) GetCurrentlyPlaying(ctx context.Context) (*Track, error) {
	var playing currentlyPlaying
	resp, err := c.exec.ExecuteJSON(ctx, executor.Request{Path: "me/player/currently-playing"}, &playing)
	if err != nil {
		var statusErr *executor.StatusError
		if errors.As(err, &statusErr) && statusErr.Kind == executor.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	return playing.Item, nil
}

// ClampLimit applies the default page size and the service maximum.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func pageQuery(limit, offset int) url.Values {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(ClampLimit(limit)))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	return q
}

func compact[T any](items []*T) []*T {
	out := items[:0]
	for _, item := range items {
		if item != nil {
			out = append(out, item)
		}
	}
	return out
}

func deref[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out
}
