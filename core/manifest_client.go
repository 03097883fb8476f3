package core

import (
	"encoding/json"

	"github.com/smartystreets/logging"

	"github.com/msfs-tools/sdkfetch/contracts"
)

const manifestStage = "manifest"

// ManifestClient reads a product line's published SDK manifest.
type ManifestClient struct {
	logger     *logging.Logger
	downloader contracts.Downloader
}

func NewManifestClient(downloader contracts.Downloader) *ManifestClient {
	return &ManifestClient{downloader: downloader}
}

// LatestEntry returns the first (newest) release entry of the manifest.
func (this *ManifestClient) LatestEntry(line contracts.ProductLine) (entry contracts.ManifestEntry, err error) {
	address, err := line.ManifestAddress()
	if err != nil {
		return entry, err
	}
	this.logger.Printf("[INFO] Fetching %s manifest from %s", line.Title, address.String())

	body, _, err := this.downloader.Download(address)
	if err != nil {
		return entry, contracts.Classify(contracts.Network, manifestStage, err)
	}
	defer func() { _ = body.Close() }()

	var manifest contracts.SDKManifest
	if err := json.NewDecoder(body).Decode(&manifest); err != nil {
		return entry, contracts.Classify(contracts.Parse, manifestStage, err)
	}
	if len(manifest.GameVersions) == 0 {
		return entry, contracts.Errorf(contracts.NotFound, manifestStage, "%s manifest lists no releases", line.Title)
	}
	return manifest.GameVersions[0], nil
}

// LatestVersion returns the newest release identifier without resolving a download.
func (this *ManifestClient) LatestVersion(line contracts.ProductLine) (string, error) {
	entry, err := this.LatestEntry(line)
	if err != nil {
		return "", err
	}
	return line.LatestRelease(entry)
}

// LatestRelease returns the newest release identifier and the absolute
// address of its core installer download.
func (this *ManifestClient) LatestRelease(line contracts.ProductLine) (release contracts.Release, err error) {
	entry, err := this.LatestEntry(line)
	if err != nil {
		return release, err
	}
	version, err := line.LatestRelease(entry)
	if err != nil {
		return release, err
	}
	relative, err := entry.DownloadPath(contracts.CoreInstallerOption)
	if err != nil {
		return release, err
	}
	address, err := line.ResolveAddress(relative)
	if err != nil {
		return release, err
	}
	return contracts.Release{Line: line, Version: version, Address: address}, nil
}
