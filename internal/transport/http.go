package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/tanq16/rangefetch/internal/utils"
)

// HTTPTransport probes with HEAD and fetches with ranged GET requests.
type HTTPTransport struct {
	client *utils.HTTPClient
}

func NewHTTPTransport(cfg utils.HTTPClientConfig) *HTTPTransport {
	return &HTTPTransport{client: utils.NewHTTPClient(cfg)}
}

// Size returns the Content-Length reported for a HEAD request. Redirects
// are followed by the client.
func (t *HTTPTransport) Size(ctx context.Context, url string) (int64, error) {
	log := utils.GetLogger("http")
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("error creating request: %v", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("error checking URL: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return 0, errors.New("URL not found (404)")
	} else if resp.StatusCode >= 400 {
		return 0, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if resp.Header.Get("Accept-Ranges") != "bytes" {
		log.Warn().Str("url", url).Err(utils.ErrRangeRequestsNotSupported).Msg("Server does not advertise byte ranges, trying anyway")
	}
	contentLength := resp.Header.Get("Content-Length")
	if contentLength == "" {
		if resp.ContentLength >= 0 {
			return resp.ContentLength, nil
		}
		return 0, errors.New("server didn't provide Content-Length header")
	}
	size, err := strconv.ParseInt(contentLength, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid Content-Length %q: %v", contentLength, err)
	}
	if size < 0 {
		return 0, errors.New("invalid file size reported by server")
	}
	return size, nil
}

// FetchRange requests bytes=start-end and requires a 206 reply.
func (t *HTTPTransport) FetchRange(ctx context.Context, url string, start, end int64, w io.Writer) error {
	log := utils.GetLogger("http")
	rangeHeader := fmt.Sprintf("bytes=%d-%d", start, end)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating GET request: %v", err)
	}
	req.Header.Set("Range", rangeHeader)
	req.Header.Set("Connection", "keep-alive")
	log.Debug().Str("range", rangeHeader).Msg("Sending range request")
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("error executing GET request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if resp.Header.Get("Content-Range") == "" {
		return errors.New("missing Content-Range header")
	}
	return copyRange(resp.Body, w, start, end)
}
