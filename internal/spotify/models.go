package spotify

// Image is an album, artist or playlist cover.
type Image struct {
	URL    string `json:"url"`
	Height *int   `json:"height,omitempty"`
	Width  *int   `json:"width,omitempty"`
}

type Artist struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	URI    string  `json:"uri"`
	Href   string  `json:"href,omitempty"`
	Images []Image `json:"images,omitempty"`
}

type Album struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	URI         string  `json:"uri"`
	Images      []Image `json:"images"`
	ReleaseDate string  `json:"release_date"`
	TotalTracks int     `json:"total_tracks"`
}

type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URI        string   `json:"uri"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMs int      `json:"duration_ms"`
	PreviewURL *string  `json:"preview_url"`
	Explicit   bool     `json:"explicit"`
	Popularity int      `json:"popularity"`
}

type User struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name,omitempty"`
	Email       string  `json:"email,omitempty"`
	Country     string  `json:"country,omitempty"`
	Product     string  `json:"product,omitempty"`
	Images      []Image `json:"images,omitempty"`
}

// PlaylistTracksRef is the {href,total} stub embedded in simplified playlists.
type PlaylistTracksRef struct {
	Href  string `json:"href"`
	Total int    `json:"total"`
}

type Playlist struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	URI           string            `json:"uri"`
	Images        []Image           `json:"images"`
	Owner         User              `json:"owner"`
	Tracks        PlaylistTracksRef `json:"tracks"`
	Public        *bool             `json:"public"`
	Collaborative bool              `json:"collaborative"`
}

// Paging is the generic page envelope returned by list endpoints.
type Paging[T any] struct {
	Href     string  `json:"href"`
	Items    []T     `json:"items"`
	Limit    int     `json:"limit"`
	Next     *string `json:"next"`
	Offset   int     `json:"offset"`
	Previous *string `json:"previous"`
	Total    int     `json:"total"`
}

// SearchResult holds whichever result types were requested.
type SearchResult struct {
	Tracks    *Paging[Track]     `json:"tracks,omitempty"`
	Albums    *Paging[Album]     `json:"albums,omitempty"`
	Artists   *Paging[Artist]    `json:"artists,omitempty"`
	Playlists *Paging[*Playlist] `json:"playlists,omitempty"`
}

type playlistItem struct {
	Track *Track `json:"track"`
}

type currentlyPlaying struct {
	IsPlaying  bool   `json:"is_playing"`
	ProgressMs int    `json:"progress_ms"`
	Item       *Track `json:"item"`
}

// Song is the flattened track shape stored on alarms.
type Song struct {
	ID         string `json:"id"`
	Title      string `json:"name"`
	Artist     string `json:"artist"`
	AlbumArt   string `json:"album_art,omitempty"`
	URI        string `json:"uri"`
	PreviewURL string `json:"preview_url,omitempty"`
	DurationMs int    `json:"duration_ms"`
}

const unknownArtist = "Unknown Artist"

// ToSong flattens t using its first artist and first album image.
func (t Track) ToSong() Song {
	song := Song{
		ID:         t.ID,
		Title:      t.Name,
		Artist:     unknownArtist,
		URI:        t.URI,
		DurationMs: t.DurationMs,
	}
	if len(t.Artists) > 0 && t.Artists[0].Name != "" {
		song.Artist = t.Artists[0].Name
	}
	if len(t.Album.Images) > 0 {
		song.AlbumArt = t.Album.Images[0].URL
	}
	if t.PreviewURL != nil {
		song.PreviewURL = *t.PreviewURL
	}
	return song
}

// ToSongs converts a slice of tracks.
func ToSongs(tracks []Track) []Song {
	songs := make([]Song, 0, len(tracks))
	for _, t := range tracks {
		songs = append(songs, t.ToSong())
	}
	return songs
}
