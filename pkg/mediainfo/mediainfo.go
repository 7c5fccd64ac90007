package mediainfo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const DefaultOEmbedURL = "https://www.youtube.com/oembed"

var (
	ErrInvalidURL         = errors.New("invalid media url")
	ErrMediaNotFound      = errors.New("media not found")
	ErrMediaNotEmbeddable = errors.New("media is not embeddable")
	ErrUnexpectedStatus   = errors.New("unexpected status code")
)

type MediaData struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type Resolver struct {
	client    *http.Client
	oembedURL string
}

func NewResolver(client *http.Client, oembedURL string) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if oembedURL == "" {
		oembedURL = DefaultOEmbedURL
	}

	return &Resolver{client: client, oembedURL: oembedURL}
}

// Get resolves metadata for mediaURL through oEmbed, falling back to scraping
// the media page when the provider refuses to embed it.
func (r *Resolver) Get(ctx context.Context, mediaURL string) (*MediaData, error) {
	u, err := url.Parse(mediaURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, mediaURL)
	}

	data, err := r.getWithEmbed(ctx, mediaURL)
	if err != nil {
		if !errors.Is(err, ErrMediaNotEmbeddable) {
			return nil, fmt.Errorf("failed to get media data with embed: %w", err)
		}

		data, err = r.getFromPage(ctx, mediaURL)
		if err != nil {
			return nil, fmt.Errorf("failed to get media data from page: %w", err)
		}
	}

	return data, nil
}
