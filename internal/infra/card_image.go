package infra

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"commander_go/internal/domain"

	"github.com/disintegration/imaging"
)

const (
	ThumbnailWidth  = 146
	ThumbnailHeight = 204

	defaultImageURL = "https://api.scryfall.com/cards/named"
)

// CardImageDownloader handles downloading and caching card thumbnails
type CardImageDownloader struct {
	basePath string
	imageURL string
	client   HTTPDoer
}

// NewCardImageDownloader stores thumbnails under basePath
func NewCardImageDownloader(basePath string, opts ...func(*CardImageDownloader)) (*CardImageDownloader, error) {
	if err := EnsureDir(basePath); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	d := &CardImageDownloader{
		basePath: basePath,
		imageURL: defaultImageURL,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// WithImageEndpoint points the downloader at another card-image endpoint
func WithImageEndpoint(endpoint string, client HTTPDoer) func(*CardImageDownloader) {
	return func(d *CardImageDownloader) {
		d.imageURL = endpoint
		if client != nil {
			d.client = client
		}
	}
}

// Thumbnail downloads the card image once and returns the local file path.
// Images are resized to 146x204 pixels.
func (d *CardImageDownloader) Thumbnail(ctx context.Context, card string) (string, error) {
	// Security: Sanitize name to prevent path traversal
	fileName := sanitizeCardName(card)
	if fileName == "" {
		return "", fmt.Errorf("invalid card name: %q", card)
	}
	filePath := filepath.Join(d.basePath, fileName+".png")

	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Cache Hit
	}

	q := url.Values{}
	q.Set("exact", card)
	q.Set("format", "image")
	q.Set("version", "small")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.imageURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", AppName+"/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", domain.NewNetworkError("fetch image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Resize with high-quality Lanczos filter
	resizedImg := imaging.Resize(srcImg, ThumbnailWidth, ThumbnailHeight, imaging.Lanczos)

	if err := imaging.Save(resizedImg, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	slog.Debug("Card thumbnail saved", slog.String("card", card), slog.String("path", filePath))
	return filePath, nil
}

// sanitizeCardName keeps letters and digits, collapsing everything else to "_"
func sanitizeCardName(name string) string {
	var b strings.Builder
	lastSep := true
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSep = false
			continue
		}
		if !lastSep {
			b.WriteRune('_')
			lastSep = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}
