package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
)

// ImageFetcher downloads a screenshot referenced by URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (data []byte, name string, err error)
}

// RemoteImageFetcher fetches http(s) images with a byte cap.
type RemoteImageFetcher struct {
	client   *resty.Client
	maxBytes int64
}

func NewRemoteImageFetcher(timeout time.Duration, maxBytes int64) *RemoteImageFetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	client := resty.New().
		SetHeader("User-Agent", "ui2code-backend/1.0").
		SetHeader("Accept", "image/*").
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	return &RemoteImageFetcher{client: client, maxBytes: maxBytes}
}

// Fetch returns the body of rawURL. Responses larger than the cap fail with
// domain.ErrSizeExceeded; unreachable or non-2xx URLs fail with domain.ErrValidation.
func (f *RemoteImageFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := ParseImageURL(rawURL)
	if err != nil {
		return nil, "", err
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(u.String())
	if err != nil {
		return nil, "", fmt.Errorf("%w: image url could not be fetched: %v", domain.ErrValidation, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, "", fmt.Errorf("%w: image url returned %s", domain.ErrValidation, resp.Status())
	}
	if resp.RawResponse != nil && resp.RawResponse.ContentLength > f.maxBytes {
		return nil, "", fmt.Errorf("%w: remote image is %d bytes, limit is %d", domain.ErrSizeExceeded, resp.RawResponse.ContentLength, f.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading image url: %v", domain.ErrValidation, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("%w: remote image exceeds %d bytes", domain.ErrSizeExceeded, f.maxBytes)
	}
	return data, path.Base(u.Path), nil
}

// ParseImageURL accepts absolute http and https URLs only.
func ParseImageURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: imageUrl must be an absolute http(s) URL", domain.ErrValidation)
	}
	return u, nil
}
