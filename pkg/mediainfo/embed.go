package mediainfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

func (r *Resolver) getWithEmbed(ctx context.Context, mediaURL string) (*MediaData, error) {
	q := url.Values{}
	q.Set("url", mediaURL)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.oembedURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusNotFound:
			return nil, ErrMediaNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, ErrMediaNotEmbeddable
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}
	}

	var result MediaData
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode oembed response: %w", err)
	}

	return &result, nil
}
