package core

import (
	"github.com/smartystreets/logging"

	"github.com/msfs-tools/sdkfetch/contracts"
)

type Outcome int

const (
	Installed Outcome = iota + 1
	AlreadyInstalled
	Updated
	UpToDate
	NotInstalled
	Removed
)

func (this Outcome) String() string {
	switch this {
	case Installed:
		return "installed"
	case AlreadyInstalled:
		return "already installed"
	case Updated:
		return "updated"
	case UpToDate:
		return "up to date"
	case NotInstalled:
		return "not installed"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Status describes one product line's local installation next to the newest
// published release.
type Status struct {
	Installation contracts.Installation
	Installed    string
	IsInstalled  bool
	Latest       string
}

type releaseSource interface {
	LatestRelease(line contracts.ProductLine) (contracts.Release, error)
	LatestVersion(line contracts.ProductLine) (string, error)
}

type rootLocker interface {
	Acquire(root string) (release func(), err error)
}

// Installer runs the install, update and remove flows for one data directory.
type Installer struct {
	logger        *logging.Logger
	dataDirectory string
	releases      releaseSource
	downloader    contracts.Downloader
	files         contracts.FileSystem
	state         *InstallStateStore
	lock          rootLocker
	normalizer    *Normalizer
	extractor     *Extractor
	newSpool      func() (contracts.Spool, error)
	progress      contracts.ProgressReporter
}

func NewInstaller(
	dataDirectory string,
	downloader contracts.Downloader,
	files contracts.FileSystem,
	newSpool func() (contracts.Spool, error),
	progress contracts.ProgressReporter,
) *Installer {
	return &Installer{
		dataDirectory: dataDirectory,
		releases:      NewManifestClient(downloader),
		downloader:    downloader,
		files:         files,
		state:         NewInstallStateStore(files),
		lock:          NewInstallLock(),
		normalizer:    NewNormalizer(),
		extractor:     NewExtractor(files),
		newSpool:      newSpool,
		progress:      progress,
	}
}

func (this *Installer) Installation(line contracts.ProductLine) contracts.Installation {
	return contracts.NewInstallation(this.dataDirectory, line)
}

// Install deploys the newest release unless some release is already installed.
func (this *Installer) Install(line contracts.ProductLine) (outcome Outcome, err error) {
	installation := this.Installation(line)
	unlock, err := this.lock.Acquire(installation.Root)
	if err != nil {
		return 0, err
	}
	defer unlock()

	version, installed, err := this.state.Read(installation.Root)
	if err != nil {
		return 0, err
	}
	if installed {
		this.logger.Printf("[INFO] %s %s is already installed at %s", line.Title, version, installation.Root)
		return AlreadyInstalled, nil
	}
	release, err := this.releases.LatestRelease(line)
	if err != nil {
		return 0, err
	}
	if err := this.deploy(installation, release); err != nil {
		return 0, err
	}
	return Installed, nil
}

// Update replaces an existing installation when a newer release is published.
func (this *Installer) Update(line contracts.ProductLine) (outcome Outcome, err error) {
	installation := this.Installation(line)
	unlock, err := this.lock.Acquire(installation.Root)
	if err != nil {
		return 0, err
	}
	defer unlock()

	version, installed, err := this.state.Read(installation.Root)
	if err != nil {
		return 0, err
	}
	if !installed {
		return NotInstalled, nil
	}
	release, err := this.releases.LatestRelease(line)
	if err != nil {
		return 0, err
	}
	if NewVersionCheck(release.Version).Verify(version) == nil {
		this.logger.Printf("[INFO] %s %s is up to date", line.Title, version)
		return UpToDate, nil
	}
	this.logger.Printf("[INFO] Updating %s from %s to %s", line.Title, version, release.Version)
	if err := this.deploy(installation, release); err != nil {
		return 0, err
	}
	return Updated, nil
}

// Remove deletes the installation root and everything in it.
func (this *Installer) Remove(line contracts.ProductLine) (outcome Outcome, err error) {
	installation := this.Installation(line)
	unlock, err := this.lock.Acquire(installation.Root)
	if err != nil {
		return 0, err
	}
	defer unlock()

	exists, err := this.files.Exists(installation.Root)
	if err != nil {
		return 0, contracts.NewError(contracts.Filesystem, stateStage, err)
	}
	if !exists {
		return NotInstalled, nil
	}
	if err := this.state.Clear(installation.Root); err != nil {
		return 0, err
	}
	this.logger.Printf("[INFO] Removed %s from %s", line.Title, installation.Root)
	return Removed, nil
}

// Status reads the local record and asks the manifest for the newest release.
func (this *Installer) Status(line contracts.ProductLine) (status Status, err error) {
	status.Installation = this.Installation(line)
	status.Installed, status.IsInstalled, err = this.state.Read(status.Installation.Root)
	if err != nil {
		return status, err
	}
	status.Latest, err = this.releases.LatestVersion(line)
	return status, err
}

// deploy clears the root, then downloads, normalizes, resolves and extracts.
// The install record is written last so a failed run never looks installed.
func (this *Installer) deploy(installation contracts.Installation, release contracts.Release) error {
	if err := this.state.Clear(installation.Root); err != nil {
		return err
	}

	spool, err := this.newSpool()
	if err != nil {
		return contracts.NewError(contracts.Filesystem, downloadStage, err)
	}
	defer func() { _ = spool.Close() }()

	this.logger.Printf("[INFO] Downloading %s %s from %s", installation.Line.Title, release.Version, release.Address.String())
	size, err := Download(this.downloader, release.Address, spool, this.progress)
	if err != nil {
		return err
	}

	database, err := this.normalizer.Normalize(release.Address, spool, size)
	if err != nil {
		return err
	}
	files, err := NewPathResolver(database).Resolve()
	if err != nil {
		return err
	}
	written, err := this.extractor.Extract(database, files, installation.Line.Subtree, installation.Root)
	if err != nil {
		return err
	}
	if written == 0 {
		this.logger.Printf("[WARN] %s package held no files under %q", installation.Line.Title, installation.Line.Subtree)
	}
	this.logger.Printf("[INFO] Extracted %d files into %s", written, installation.Root)

	return this.state.Write(installation.Root, release.Version)
}
