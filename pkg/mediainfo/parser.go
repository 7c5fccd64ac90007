package mediainfo

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

func (r *Resolver) getFromPage(ctx context.Context, mediaURL string) (*MediaData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	return &MediaData{
		Title:        strings.TrimSpace(getTitle(doc)),
		AuthorName:   getItemprop(doc, "name"),
		ThumbnailURL: getMetaProperty(doc, "og:image"),
	}, nil
}

func getTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return n.FirstChild.Data
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := getTitle(c); title != "" {
			return title
		}
	}
	return ""
}

func getItemprop(n *html.Node, prop string) string {
	if n.Type == html.ElementNode && n.Data == "link" && attr(n, "itemprop") == prop {
		return attr(n, "content")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if content := getItemprop(c, prop); content != "" {
			return content
		}
	}
	return ""
}

func getMetaProperty(n *html.Node, property string) string {
	if n.Type == html.ElementNode && n.Data == "meta" && attr(n, "property") == property {
		return attr(n, "content")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if content := getMetaProperty(c, property); content != "" {
			return content
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
