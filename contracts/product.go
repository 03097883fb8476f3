package contracts

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

const (
	ManifestFilename     = "sdk.json"
	CoreInstallerOption  = "SDK Installer (Core)"
	InstallRecordFile    = "version.txt"
	WASISysrootDirectory = "WASM/wasi-sysroot"
)

// ProductLine identifies one simulator edition whose SDK is published
// independently of the others.
type ProductLine struct {
	Name       string
	Title      string
	BaseURL    string
	FolderName string

	// Subtree is the slash separated package path whose contents are installed.
	Subtree string

	// NewestFirst records where the newest release identifier sits in a
	// manifest entry's release notes. The two editions disagree.
	NewestFirst bool
}

var (
	MSFS2020 = ProductLine{
		Name:        "msfs2020",
		Title:       "MSFS 2020 SDK",
		BaseURL:     "https://sdk.flightsimulator.com/files/",
		FolderName:  "msfs2020",
		Subtree:     "MSFS SDK",
		NewestFirst: false,
	}
	MSFS2024 = ProductLine{
		Name:        "msfs2024",
		Title:       "MSFS 2024 SDK",
		BaseURL:     "https://sdk.flightsimulator.com/msfs2024/files/",
		FolderName:  "msfs2024",
		Subtree:     "MSFS 2024 SDK",
		NewestFirst: true,
	}
)

func ProductLines() []ProductLine {
	return []ProductLine{MSFS2020, MSFS2024}
}

func ParseProductLine(name string) (ProductLine, error) {
	for _, line := range ProductLines() {
		if strings.EqualFold(line.Name, strings.TrimSpace(name)) {
			return line, nil
		}
	}
	return ProductLine{}, fmt.Errorf("unknown product line %q (expected one of: msfs2020, msfs2024)", name)
}

func (this ProductLine) ManifestAddress() (url.URL, error) {
	return this.ResolveAddress(ManifestFilename)
}

// ResolveAddress appends a manifest-relative download path to the base URL.
func (this ProductLine) ResolveAddress(relative string) (url.URL, error) {
	base, err := url.Parse(this.BaseURL)
	if err != nil {
		return url.URL{}, Errorf(Parse, "manifest", "malformed base url %q: %w", this.BaseURL, err)
	}
	reference, err := url.Parse(strings.TrimLeft(relative, "/"))
	if err != nil {
		return url.URL{}, Errorf(Parse, "manifest", "malformed download path %q: %w", relative, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path = path.Clean(base.Path) + "/"
	}
	return *base.ResolveReference(reference), nil
}

// LatestRelease picks the newest identifier out of an entry's release notes.
func (this ProductLine) LatestRelease(entry ManifestEntry) (string, error) {
	notes := entry.ReleaseNotes
	if len(notes) == 0 {
		return "", Errorf(NotFound, "manifest", "no release identifiers listed for %s", this.Title)
	}
	if this.NewestFirst {
		return notes[0], nil
	}
	return notes[len(notes)-1], nil
}

func (this ProductLine) String() string { return this.Name }
