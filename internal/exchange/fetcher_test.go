package exchange_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/exchange"
)

const oneCard = "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Anna Muster\r\nBDAY:1990-03-15\r\nEND:VCARD\r\n"

func TestHTTPFetcher_Fetch(t *testing.T) {
	var gotUser, gotPass, gotAgent, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		gotAgent = r.Header.Get(config.HeaderUserAgent)
		gotQuery = r.URL.Query().Get("token")
		w.Header().Set(config.HeaderContentType, "text/vcard; charset=utf-8")
		_, _ = w.Write([]byte(oneCard))
	}))
	defer ts.Close()

	f := exchange.NewHTTPFetcher(nil)
	dl, err := f.Fetch(context.Background(), exchange.Source{URL: ts.URL + "/addressbook?token=s3cret", User: "anna", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, oneCard, string(dl.Data))
	assert.Equal(t, config.FormatVCard, dl.Format)
	assert.Equal(t, "anna", gotUser)
	assert.Equal(t, "pw", gotPass)
	assert.Equal(t, config.UserAgent, gotAgent)
	assert.Equal(t, "s3cret", gotQuery)
}

func TestHTTPFetcher_NoAuthWithoutCredentials(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)
		_, _ = w.Write([]byte("Vorname;Nachname\n"))
	}))
	defer ts.Close()

	dl, err := exchange.NewHTTPFetcher(nil).Fetch(context.Background(), exchange.Source{URL: ts.URL + "/export.csv"})
	require.NoError(t, err)
	assert.Equal(t, config.FormatCSV, dl.Format)
}

func TestHTTPFetcher_Errors(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusUnauthorized, http.StatusInternalServerError} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(code)
			}))
			defer ts.Close()

			dl, err := exchange.NewHTTPFetcher(nil).Fetch(context.Background(), exchange.Source{URL: ts.URL})
			assert.Nil(t, dl)
			assert.ErrorContains(t, err, config.ErrFetchStatus)
		})
	}

	t.Run("scheme", func(t *testing.T) {
		_, err := exchange.NewHTTPFetcher(nil).Fetch(context.Background(), exchange.Source{URL: "ftp://example.org/contacts.vcf"})
		assert.ErrorContains(t, err, config.ErrProtocol)
	})

	t.Run("malformed url", func(t *testing.T) {
		_, err := exchange.NewHTTPFetcher(nil).Fetch(context.Background(), exchange.Source{URL: string([]byte{0x7f})})
		assert.ErrorContains(t, err, config.ErrInvalidURL)
	})
}

func TestHTTPFetcher_TooLarge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(oneCard))
	}))
	defer ts.Close()

	f := exchange.NewHTTPFetcher(nil)
	f.MaxBytes = int64(len(oneCard)) - 1
	_, err := f.Fetch(context.Background(), exchange.Source{URL: ts.URL})
	assert.ErrorIs(t, err, exchange.ErrTooLarge)

	f.MaxBytes = int64(len(oneCard))
	_, err = f.Fetch(context.Background(), exchange.Source{URL: ts.URL})
	assert.NoError(t, err)
}

func TestHTTPFetcher_ContextDeadline(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := exchange.NewHTTPFetcher(nil).Fetch(ctx, exchange.Source{URL: ts.URL})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		path        string
		data        string
		want        string
	}{
		{"vcard media type", "text/vcard", "/x", "", config.FormatVCard},
		{"legacy vcard media type", "text/x-vcard; charset=utf-8", "/x", "", config.FormatVCard},
		{"csv media type beats extension", "text/csv", "/contacts.vcf", "", config.FormatCSV},
		{"extension", "application/octet-stream", "/Contacts.VCF", "", config.FormatVCard},
		{"csv extension", "", "/export.csv", oneCard, config.FormatCSV},
		{"sniffed card", "text/plain", "/dav/", "\uFEFF\r\n  begin:vcard\r\n", config.FormatVCard},
		{"default", "", "/dav/", "Vorname;Nachname\n", config.FormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exchange.DetectFormat(tt.contentType, tt.path, []byte(tt.data)))
		})
	}
}
