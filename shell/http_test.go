package shell

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/smartystreets/assertions/should"
	"github.com/smartystreets/gunit"
	"github.com/smartystreets/logging"

	"github.com/msfs-tools/sdkfetch/contracts"
)

func TestHTTPDownloaderFixture(t *testing.T) {
	gunit.Run(new(HTTPDownloaderFixture), t)
}

type HTTPDownloaderFixture struct {
	*gunit.Fixture
	server     *httptest.Server
	downloader *HTTPDownloader
}

func (this *HTTPDownloaderFixture) Setup() {
	this.server = httptest.NewServer(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/files/sdk.json":
			_, _ = io.WriteString(response, `{"game_versions":[]}`)
		case "/files/streamed":
			response.(http.Flusher).Flush()
			_, _ = io.WriteString(response, "no length")
		default:
			http.NotFound(response, request)
		}
	}))
	this.downloader = NewHTTPDownloader(this.server.Client())
	this.downloader.logger = logging.Capture()
}

func (this *HTTPDownloaderFixture) Teardown() {
	this.server.Close()
}

func (this *HTTPDownloaderFixture) address(path string) url.URL {
	address, _ := url.Parse(this.server.URL + path)
	return *address
}

func (this *HTTPDownloaderFixture) TestDownloadReportsLength() {
	body, size, err := this.downloader.Download(this.address("/files/sdk.json"))

	this.So(err, should.BeNil)
	defer func() { _ = body.Close() }()
	raw, _ := io.ReadAll(body)
	this.So(string(raw), should.Equal, `{"game_versions":[]}`)
	this.So(size, should.Equal, int64(len(raw)))
}

func (this *HTTPDownloaderFixture) TestUnknownLength() {
	body, size, err := this.downloader.Download(this.address("/files/streamed"))

	this.So(err, should.BeNil)
	_ = body.Close()
	this.So(size, should.Equal, int64(-1))
}

func (this *HTTPDownloaderFixture) TestErrorStatusIsNetworkError() {
	body, _, err := this.downloader.Download(this.address("/files/missing.zip"))

	this.So(body, should.BeNil)
	this.So(errors.Is(err, contracts.Network), should.BeTrue)
	this.So(this.downloader.logger.Log.String(), should.ContainSubstring, "404")
}

func (this *HTTPDownloaderFixture) TestUnreachableServerIsNetworkError() {
	address := this.address("/files/sdk.json")
	this.server.Close()

	_, _, err := this.downloader.Download(address)

	this.So(errors.Is(err, contracts.Network), should.BeTrue)
}
