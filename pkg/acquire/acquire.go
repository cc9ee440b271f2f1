// Package acquire loads custom background images from local files, remote
// URLs and inline data URLs.
//
// Acquisition is the only I/O around a render. It completes before the
// compositor runs; a failed load is reported as a *LoadError and the caller
// renders without a custom background.
package acquire

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/xob0t/CoverCard/pkg/template"
)

const (
	// DefaultMaxBytes caps the encoded size of a source image.
	DefaultMaxBytes = 20 << 20
	// DefaultMaxPixels caps the decoded size of a source image (about a
	// 100 megapixel photo).
	DefaultMaxPixels = 100_000_000
)

var (
	// ErrTooLarge is wrapped by a LoadError when a source exceeds the size limit.
	ErrTooLarge = errors.New("image exceeds size limit")
	// ErrTooManyPixels is returned when an image header declares more pixels
	// than the decode limit allows.
	ErrTooManyPixels = errors.New("image dimensions exceed pixel limit")
	// ErrLocalSource is wrapped by a LoadError when a restricted fetch is
	// given a local path or a file:// URL.
	ErrLocalSource = errors.New("local files are not accepted")
	// ErrNotHTTP is wrapped by a LoadError when FetchRemote is given anything
	// but an http or https URL.
	ErrNotHTTP = errors.New("only http and https URLs are accepted")
)

// LoadError reports a failed fetch or decode.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load background %s: %v", shorten(e.Source), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Result is a decoded image with its pixel size and format name.
type Result struct {
	Image  image.Image
	Width  int
	Height int
	Format string
	Data   []byte // encoded source bytes
	Err    error  // set only on results delivered by LoadAsync
}

// Loader fetches and decodes images. The zero value is not usable; call New.
type Loader struct {
	client    *http.Client
	maxBytes  int64
	maxPixels int
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used for remote URLs.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.client = &http.Client{Timeout: d} }
}

// WithMaxBytes sets the size limit of a source image.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// WithMaxPixels sets the largest width*height an image may declare before
// it is decoded.
func WithMaxPixels(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxPixels = n
		}
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		client:    &http.Client{Timeout: 30 * time.Second},
		maxBytes:  DefaultMaxBytes,
		maxPixels: DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches src and decodes it. src is a data URL, an http(s) URL, a
// file:// URL or a local path. JPEG orientation tags are applied.
func (l *Loader) Load(ctx context.Context, src string) (*Result, error) {
	data, err := l.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	res, err := DecodeLimit(data, l.maxPixels)
	if err != nil {
		return nil, &LoadError{Source: src, Err: err}
	}
	return res, nil
}

// LoadPortable is Load restricted to sources that do not touch the local
// filesystem: data URLs and http(s) URLs.
func (l *Loader) LoadPortable(ctx context.Context, src string) (*Result, error) {
	if IsLocal(src) {
		return nil, &LoadError{Source: src, Err: ErrLocalSource}
	}
	return l.Load(ctx, src)
}

// LoadAsync runs Load in a goroutine. The channel receives exactly one
// result and is then closed. A caller that no longer wants the result can
// cancel ctx or simply ignore the channel.
func (l *Loader) LoadAsync(ctx context.Context, src string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		res, err := l.Load(ctx, src)
		if err != nil {
			ch <- Result{Err: err}
			return
		}
		ch <- *res
	}()
	return ch
}

// Fetch returns the raw bytes of src without decoding them.
func (l *Loader) Fetch(ctx context.Context, src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, &LoadError{Source: src, Err: errors.New("empty source")}
	}

	var (
		data []byte
		err  error
	)
	switch lower := strings.ToLower(src); {
	case strings.HasPrefix(lower, "data:"):
		data, _, err = ParseDataURL(src)
	case isHTTP(lower):
		data, err = l.fetchHTTP(ctx, src)
	case strings.HasPrefix(lower, "file://"):
		var u *url.URL
		if u, err = url.Parse(src); err == nil {
			data, err = l.readFile(u.Path)
		}
	default:
		data, err = l.readFile(src)
	}
	if err != nil {
		return nil, &LoadError{Source: src, Err: err}
	}
	if int64(len(data)) > l.maxBytes {
		return nil, &LoadError{Source: src, Err: ErrTooLarge}
	}
	return data, nil
}

// FetchPortable is Fetch restricted to data URLs and http(s) URLs.
func (l *Loader) FetchPortable(ctx context.Context, src string) ([]byte, error) {
	if IsLocal(src) {
		return nil, &LoadError{Source: src, Err: ErrLocalSource}
	}
	return l.Fetch(ctx, src)
}

// FetchRemote is Fetch restricted to http and https URLs.
func (l *Loader) FetchRemote(ctx context.Context, src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	if !isHTTP(src) {
		return nil, &LoadError{Source: src, Err: ErrNotHTTP}
	}
	return l.Fetch(ctx, src)
}

// FetchDataURL fetches src and returns it as a data URL, after checking that
// it decodes as an image.
func (l *Loader) FetchDataURL(ctx context.Context, src string) (string, error) {
	data, err := l.Fetch(ctx, src)
	if err != nil {
		return "", err
	}
	return l.toDataURL(src, data)
}

// FetchRemoteDataURL is FetchDataURL for http and https URLs only.
func (l *Loader) FetchRemoteDataURL(ctx context.Context, src string) (string, error) {
	data, err := l.FetchRemote(ctx, src)
	if err != nil {
		return "", err
	}
	return l.toDataURL(src, data)
}

func (l *Loader) toDataURL(src string, data []byte) (string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", &LoadError{Source: src, Err: err}
	}
	if err := checkPixels(cfg, l.maxPixels); err != nil {
		return "", &LoadError{Source: src, Err: err}
	}
	return "data:image/" + format + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// IsLocal reports whether src names a local file: a file:// URL or a bare
// path. Data URLs and http(s) URLs are not local.
func IsLocal(src string) bool {
	src = strings.TrimSpace(src)
	if src == "" {
		return false
	}
	lower := strings.ToLower(src)
	return !strings.HasPrefix(lower, "data:") && !isHTTP(lower)
}

func isHTTP(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func (l *Loader) fetchHTTP(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return readLimited(resp.Body, l.maxBytes)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f, l.maxBytes)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Decode decodes encoded image bytes in any registered format, refusing
// images larger than DefaultMaxPixels.
func Decode(data []byte) (*Result, error) {
	return DecodeLimit(data, DefaultMaxPixels)
}

// DecodeLimit is Decode with an explicit pixel limit. The limit is checked
// against the header before any pixel memory is allocated.
func DecodeLimit(data []byte, maxPixels int) (*Result, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if err := checkPixels(cfg, maxPixels); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("image has no pixels")
	}
	return &Result{
		Image:  img,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
		Data:   data,
	}, nil
}

// IsImageMIME reports whether m is an image/* media type. Parameters such
// as "; charset=..." are ignored.
func IsImageMIME(m string) bool {
	mt, _, err := mime.ParseMediaType(m)
	if err != nil {
		return false
	}
	sub, ok := strings.CutPrefix(mt, "image/")
	return ok && sub != ""
}

func checkPixels(cfg image.Config, maxPixels int) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.New("image has no pixels")
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	return nil
}

// ParseDataURL decodes a base64 "data:" URL and returns its bytes and media type.
func ParseDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		rest, ok = strings.CutPrefix(s, "DATA:")
	}
	if !ok {
		return nil, "", errors.New("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New("malformed data URL")
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", errors.New("only base64 data URLs are supported")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URL: %w", err)
	}
	return data, mime, nil
}

func shorten(src string) string {
	if strings.HasPrefix(strings.ToLower(src), "data:") && len(src) > 48 {
		return src[:48] + "..."
	}
	return src
}

// Attach loads src and sets it as cfg's custom background. An empty src is a
// no-op. On failure cfg is left unchanged and the *LoadError is returned so
// the caller can report it; the render should still go ahead.
func (l *Loader) Attach(ctx context.Context, cfg *template.StyleConfig, src string) error {
	if src == "" {
		return nil
	}
	res, err := l.Load(ctx, src)
	if err != nil {
		return err
	}
	cfg.CustomBackground = res.Image
	return nil
}
