package exchange

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/tartampluch/birthday-manager/internal/config"
)

// ErrTooLarge is returned when a remote export exceeds the download limit.
var ErrTooLarge = errors.New(config.ErrFetchTooLarge)

// Source is a remote contact export, e.g. a CardDAV collection URL or a
// CSV file published by another address book.
type Source struct {
	URL      string
	User     string
	Password string
}

// Download is a fetched export with its detected format.
type Download struct {
	Data   []byte
	Format string
}

// Fetcher retrieves remote contact exports.
type Fetcher interface {
	Fetch(ctx context.Context, src Source) (*Download, error)
}

// HTTPFetcher implements Fetcher over net/http.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
	Logger   *slog.Logger
}

func NewHTTPFetcher(logger *slog.Logger) *HTTPFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: config.HTTPTimeout},
		MaxBytes: config.MaxHTTPResponseSize,
		Logger:   logger,
	}
}

// Fetch downloads src completely. Only http and https are accepted, and a
// body larger than MaxBytes fails with ErrTooLarge instead of being cut.
func (f *HTTPFetcher) Fetch(ctx context.Context, src Source) (*Download, error) {
	u, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	// Query strings may carry tokens; keep them out of the logs.
	log := f.Logger.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, u.Scheme+"://"+u.Host+u.Path),
	)
	log.DebugContext(ctx, config.MsgFetchStart)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchRequest, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	req.Header.Set(config.HeaderAccept, config.AcceptContacts)
	if src.User != "" || src.Password != "" {
		req.SetBasicAuth(src.User, src.Password)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.WarnContext(ctx, config.MsgFetchBadStatus, slog.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, fmt.Errorf("%s: %s", config.ErrFetchStatus, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchNetwork, err)
	}
	if int64(len(data)) > f.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.MaxBytes)
	}

	format := DetectFormat(resp.Header.Get(config.HeaderContentType), u.Path, data)
	log.InfoContext(ctx, config.MsgFetchDone,
		slog.Int(config.LogKeySizeBytes, len(data)),
		slog.String(config.LogKeyFormat, format),
	)
	return &Download{Data: data, Format: format}, nil
}

// DetectFormat picks csv or vcard for a downloaded export. The media type
// wins, then the file extension, then the content itself.
func DetectFormat(contentType, name string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case config.MediaVCard, config.MediaXVCard:
			return config.FormatVCard
		case config.MediaCSV:
			return config.FormatCSV
		}
	}

	switch strings.ToLower(path.Ext(name)) {
	case config.ExtVCF, config.ExtVCard:
		return config.FormatVCard
	case config.ExtCSV:
		return config.FormatCSV
	}

	head := bytes.TrimLeft(bytes.TrimPrefix(data, []byte(config.CSVBOM)), " \t\r\n")
	if len(head) >= len(config.VCardBegin) && strings.EqualFold(string(head[:len(config.VCardBegin)]), config.VCardBegin) {
		return config.FormatVCard
	}
	return config.FormatCSV
}
