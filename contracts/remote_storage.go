package contracts

import (
	"io"
	"net/url"
)

type Downloader interface {
	// Download returns the response body and its length, or -1 when the
	// length is unknown.
	Download(address url.URL) (body io.ReadCloser, size int64, err error)
}
