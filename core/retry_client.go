package core

import (
	"errors"
	"io"
	"net/url"
	"time"

	"github.com/smartystreets/clock"
	"github.com/smartystreets/logging"

	"github.com/msfs-tools/sdkfetch/contracts"
)

// RetryClient retries downloads that fail for network reasons. Any other
// failure is returned at once.
type RetryClient struct {
	sleeper  *clock.Sleeper
	logger   *logging.Logger
	inner    contracts.Downloader
	maxRetry int
}

func NewRetryClient(inner contracts.Downloader, maxRetry int) *RetryClient {
	return &RetryClient{inner: inner, maxRetry: maxRetry}
}

func (this *RetryClient) Download(address url.URL) (body io.ReadCloser, size int64, err error) {
	for x := 0; x <= this.maxRetry; x++ {
		body, size, err = this.inner.Download(address)
		if err == nil {
			return body, size, nil
		}
		if !errors.Is(err, contracts.Network) {
			return nil, 0, err
		}
		if x < this.maxRetry {
			this.logger.Printf("[WARN] download of %s failed (%s), retry imminent.", address.String(), err)
			this.sleeper.Sleep(time.Second * 3)
		}
	}
	return nil, 0, err
}
