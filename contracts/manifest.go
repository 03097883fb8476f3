package contracts

import "net/url"

type SDKManifest struct {
	GameVersions []ManifestEntry `json:"game_versions"`
}

type ManifestEntry struct {
	DownloadsMenu map[string]DownloadOption `json:"downloads_menu"`
	ReleaseNotes  []string                  `json:"release_notes"`
}

type DownloadOption struct {
	Value *string `json:"value"`
}

// DownloadPath returns the relative download URL of the named option.
func (this ManifestEntry) DownloadPath(option string) (string, error) {
	selected, found := this.DownloadsMenu[option]
	if !found {
		return "", Errorf(NotFound, "manifest", "download option %q not listed", option)
	}
	if selected.Value == nil || *selected.Value == "" {
		return "", Errorf(NotFound, "manifest", "download option %q has no url", option)
	}
	return *selected.Value, nil
}

// Release is the newest download published for a product line.
type Release struct {
	Line    ProductLine
	Version string
	Address url.URL
}
