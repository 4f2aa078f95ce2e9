package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"katalog/internal/katalog"
)

// mediaExtensions are the containers dhowden/tag can read metadata from.
var mediaExtensions = map[string]bool{
	".mp3": true, ".m4a": true, ".m4b": true, ".m4p": true, ".alac": true,
	".flac": true, ".ogg": true, ".dsf": true,
}

// MediaReader turns embedded audio metadata into catalog tags.
type MediaReader struct{}

var _ katalog.MediaTagReader = (*MediaReader)(nil)

func NewMediaReader() *MediaReader {
	return &MediaReader{}
}

// Supports reports whether name has an extension worth reading tags from.
func (r *MediaReader) Supports(name string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(name))]
}

// ReadTags returns artist, album, title, genre and year tags for the file
// at path. Empty fields are omitted; the album artist wins over the track
// artist when present.
func (r *MediaReader) ReadTags(path string) ([]katalog.Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("reading media tags from %s: %w", path, err)
	}

	artist := m.Artist()
	if albumArtist := m.AlbumArtist(); albumArtist != "" {
		artist = albumArtist
	}

	var tags []katalog.Tag
	add := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			tags = append(tags, katalog.Tag{Key: key, Value: value})
		}
	}
	add("artist", artist)
	add("album", m.Album())
	add("title", m.Title())
	add("genre", m.Genre())
	if year := m.Year(); year > 0 {
		add("year", strconv.Itoa(year))
	}
	return tags, nil
}
