package shell

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/smartystreets/logging"

	"github.com/msfs-tools/sdkfetch/contracts"
)

const downloadStage = "download"

// HTTPDownloader fetches manifest and package payloads with plain GET requests.
type HTTPDownloader struct {
	logger *logging.Logger
	client *http.Client
}

func NewHTTPDownloader(client *http.Client) *HTTPDownloader {
	return &HTTPDownloader{client: client}
}

func (this *HTTPDownloader) Download(address url.URL) (io.ReadCloser, int64, error) {
	request, err := http.NewRequest(http.MethodGet, address.String(), nil)
	if err != nil {
		return nil, 0, contracts.NewError(contracts.Parse, downloadStage, err)
	}
	response, err := this.client.Do(request)
	if err != nil {
		return nil, 0, contracts.NewError(contracts.Network, downloadStage, err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		this.dump(request, response)
		_ = response.Body.Close()
		return nil, 0, contracts.NewError(contracts.Network, downloadStage,
			fmt.Errorf("unexpected status code from %s: %s", address.String(), response.Status))
	}
	return response.Body, response.ContentLength, nil
}

func (this *HTTPDownloader) dump(request *http.Request, response *http.Response) {
	requestDump, _ := httputil.DumpRequestOut(request, false)
	responseDump, _ := httputil.DumpResponse(response, false)
	this.logger.Printf("[WARN] unexpected status code: \nrequest: \n%s\nresponse:\n%s", requestDump, responseDump)
}
