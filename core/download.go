package core

import (
	"io"
	"net/url"

	"github.com/msfs-tools/sdkfetch/contracts"
)

const (
	downloadStage     = "download"
	downloadChunkSize = 1024
)

// Download copies the payload at address into target one chunk at a time,
// reporting progress after every chunk. It returns the number of bytes copied.
func Download(downloader contracts.Downloader, address url.URL, target io.Writer, progress contracts.ProgressReporter) (int64, error) {
	body, total, err := downloader.Download(address)
	if err != nil {
		return 0, contracts.Classify(contracts.Network, downloadStage, err)
	}
	defer func() { _ = body.Close() }()
	if progress == nil {
		progress = contracts.ProgressFunc(func(int64, int64) {})
	}

	buffer := make([]byte, downloadChunkSize)
	var downloaded int64
	for {
		count, readErr := body.Read(buffer)
		if count > 0 {
			if _, err := target.Write(buffer[:count]); err != nil {
				return downloaded, contracts.NewError(contracts.Filesystem, downloadStage, err)
			}
			downloaded += int64(count)
			progress.OnProgress(downloaded, total)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return downloaded, contracts.NewError(contracts.Network, downloadStage, readErr)
		}
	}
	if total >= 0 && downloaded != total {
		return downloaded, contracts.Errorf(contracts.Network, downloadStage, "received %d of %d bytes", downloaded, total)
	}
	return downloaded, nil
}
