package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sharetube/roomsync/pkg/mediainfo"
)

// MediaLoadError is reported when the backend cannot resolve a media
// reference.
type MediaLoadError struct {
	URL string
	Err error
}

func (e *MediaLoadError) Error() string {
	return fmt.Sprintf("failed to load media %q: %v", e.URL, e.Err)
}

func (e *MediaLoadError) Unwrap() error {
	return e.Err
}

// Listener receives backend callbacks. Calls may arrive from any goroutine.
type Listener interface {
	OnReady(url string)
	OnError(url string, err error)
}

type iResolver interface {
	Get(ctx context.Context, mediaURL string) (*mediainfo.MediaData, error)
}

// Headless is a media player without output. It keeps a virtual playhead
// driven by the clock and resolves media metadata to decide whether a
// reference is playable.
type Headless struct {
	clock    clock.Clock
	resolver iResolver
	logger   *slog.Logger

	mu         sync.Mutex
	listener   Listener
	url        string
	media      *mediainfo.MediaData
	playing    bool
	position   time.Duration
	startedAt  time.Time
	cancelLoad context.CancelFunc
}

// NewHeadless creates a player. A nil resolver accepts every reference.
func NewHeadless(c clock.Clock, resolver iResolver, logger *slog.Logger) *Headless {
	if c == nil {
		c = clock.New()
	}
	return &Headless{clock: c, resolver: resolver, logger: logger}
}

func (p *Headless) SetListener(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
}

// Load replaces the current media. Readiness or failure is reported to the
// listener asynchronously; a pending load of a previous reference is
// abandoned.
func (p *Headless) Load(ctx context.Context, url string) {
	p.mu.Lock()
	if p.cancelLoad != nil {
		p.cancelLoad()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	p.cancelLoad = cancel
	p.url = url
	p.media = nil
	p.playing = false
	p.position = 0
	p.mu.Unlock()

	go p.resolve(loadCtx, url)
}

func (p *Headless) resolve(ctx context.Context, url string) {
	var (
		media *mediainfo.MediaData
		err   error
	)
	if p.resolver != nil {
		media, err = p.resolver.Get(ctx, url)
	} else {
		media = &mediainfo.MediaData{}
	}
	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	if p.url != url {
		p.mu.Unlock()
		return
	}
	if err == nil {
		p.media = media
	}
	l := p.listener
	p.mu.Unlock()

	if err != nil {
		p.logger.WarnContext(ctx, "media load failed", "url", url, "error", err)
		if l != nil {
			l.OnError(url, &MediaLoadError{URL: url, Err: err})
		}
		return
	}

	p.logger.InfoContext(ctx, "media loaded", "url", url, "title", media.Title, "author", media.AuthorName)
	if l != nil {
		l.OnReady(url)
	}
}

func (p *Headless) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		return
	}
	p.playing = true
	p.startedAt = p.clock.Now()
}

func (p *Headless) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing {
		return
	}
	p.position = p.positionLocked()
	p.playing = false
}

func (p *Headless) SeekTo(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pos < 0 {
		pos = 0
	}
	p.position = pos
	p.startedAt = p.clock.Now()
}

func (p *Headless) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *Headless) positionLocked() time.Duration {
	if !p.playing {
		return p.position
	}
	return p.position + p.clock.Since(p.startedAt)
}

// Media returns the metadata of the loaded reference, nil until ready.
func (p *Headless) Media() *mediainfo.MediaData {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.media
}

// Close abandons any pending load.
func (p *Headless) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelLoad != nil {
		p.cancelLoad()
		p.cancelLoad = nil
	}
}
