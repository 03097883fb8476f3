package core

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/smartystreets/assertions/should"
	"github.com/smartystreets/gunit"
	"github.com/smartystreets/logging"

	"github.com/msfs-tools/sdkfetch/cabinet/cabtest"
	"github.com/msfs-tools/sdkfetch/contracts"
	"github.com/msfs-tools/sdkfetch/msi"
	"github.com/msfs-tools/sdkfetch/msi/msitest"
	"github.com/msfs-tools/sdkfetch/shell"
)

func TestInstallerFixture(t *testing.T) {
	gunit.Run(new(InstallerFixture), t)
}

type InstallerFixture struct {
	*gunit.Fixture
	files      *shell.InMemoryFileSystem
	downloader *FakeDownloader
	lock       *FakeLock
	installer  *Installer
	progress   int
	members    []cabtest.Entry
}

func (this *InstallerFixture) Setup() {
	this.files = shell.NewInMemoryFileSystem()
	this.downloader = NewFakeDownloader()
	this.lock = &FakeLock{}
	this.installer = NewInstaller("/data", this.downloader, this.files, this.newSpool, contracts.ProgressFunc(this.onProgress))
	this.installer.logger = logging.Capture()
	this.installer.releases.(*ManifestClient).logger = logging.Capture()
	this.installer.normalizer.logger = logging.Capture()
	this.installer.extractor.logger = logging.Capture()
	this.installer.normalizer.open = this.openPackage
	this.installer.lock = this.lock
	this.members = []cabtest.Entry{
		{Name: "fil001", Content: []byte("#pragma once\n")},
		{Name: "fil002", Content: []byte("not part of the sdk")},
	}
	this.publish("1.1.0")
}

func (this *InstallerFixture) newSpool() (contracts.Spool, error) {
	return shell.NewMemorySpool(), nil
}

func (this *InstallerFixture) onProgress(downloaded, total int64) {
	this.progress++
}

func (this *InstallerFixture) publish(version string) {
	this.downloader.serve("https://sdk.flightsimulator.com/files/sdk.json", fmt.Sprintf(`{"game_versions":[{
		"downloads_menu": {"SDK Installer (Core)": {"value": "installers/%[1]s/Core.msi"}},
		"release_notes": ["0.1.0", "%[1]s"]
	}]}`, version))
	this.downloader.serve("https://sdk.flightsimulator.com/files/installers/"+version+"/Core.msi", "MSI "+version)
}

// openPackage stands in for the compound file reader and returns a package
// holding the current cabinet members.
func (this *InstallerFixture) openPackage(reader io.ReaderAt) (*msi.Database, error) {
	return msi.FromStreams(msitest.Database{
		Tables: []msitest.Table{
			{
				Name: "Directory",
				Columns: []msitest.Column{
					{Name: "Directory", Kind: msitest.Text, Key: true},
					{Name: "Directory_Parent", Kind: msitest.Text, Nullable: true},
					{Name: "DefaultDir", Kind: msitest.Text},
				},
				Rows: [][]interface{}{
					{"TARGETDIR", nil, "SourceDir"},
					{"SDK", "TARGETDIR", "MSFSSDK|MSFS SDK"},
					{"WASM", "SDK", "WASM"},
					{"SYSROOT", "WASM", "WASI-S~1|wasi-sysroot"},
					{"INCLUDE", "SYSROOT", "include"},
					{"OTHER", "TARGETDIR", "Other"},
				},
			},
			{
				Name: "Component",
				Columns: []msitest.Column{
					{Name: "Component", Kind: msitest.Text, Key: true},
					{Name: "Directory_", Kind: msitest.Text},
				},
				Rows: [][]interface{}{{"include", "INCLUDE"}, {"other", "OTHER"}},
			},
			{
				Name: "File",
				Columns: []msitest.Column{
					{Name: "File", Kind: msitest.Text, Key: true},
					{Name: "Component_", Kind: msitest.Text},
					{Name: "FileName", Kind: msitest.Text},
				},
				Rows: [][]interface{}{
					{"fil001", "include", "STDIO~1.H|stdio.h"},
					{"fil002", "other", "notes.txt"},
				},
			},
		},
		Streams: map[string][]byte{
			"data1.cab": cabtest.Build(cabtest.Folder{Compression: cabtest.MSZIP, Entries: this.members}),
		},
	}.Build())
}

func (this *InstallerFixture) record() string {
	raw, err := this.files.ReadFile("/data/msfs2020/version.txt")
	if err != nil {
		return "<none>"
	}
	return string(raw)
}

func (this *InstallerFixture) TestInstallFresh() {
	outcome, err := this.installer.Install(contracts.MSFS2020)

	this.So(err, should.BeNil)
	this.So(outcome, should.Equal, Installed)
	this.So(this.files.Listing(), should.Resemble, []string{
		"/data/msfs2020/WASM/wasi-sysroot/include/stdio.h",
		"/data/msfs2020/version.txt",
	})
	this.So(this.record(), should.Equal, "1.1.0")
	this.So(this.progress, should.BeGreaterThan, 0)
	this.So(this.lock.acquired, should.Resemble, []string{"/data/msfs2020"})
	this.So(this.lock.held, should.BeFalse)
}

func (this *InstallerFixture) TestInstallWhenAlreadyInstalled() {
	_ = this.files.MkdirAll("/data/msfs2020")
	_ = this.files.WriteFile("/data/msfs2020/version.txt", []byte("1.0.0"))

	outcome, err := this.installer.Install(contracts.MSFS2020)

	this.So(err, should.BeNil)
	this.So(outcome, should.Equal, AlreadyInstalled)
	this.So(this.downloader.requests, should.BeEmpty)
	this.So(this.record(), should.Equal, "1.0.0")
}

func (this *InstallerFixture) TestUpdateWhenNotInstalled() {
	outcome, err := this.installer.Update(contracts.MSFS2020)

	this.So(err, should.BeNil)
	this.So(outcome, should.Equal, NotInstalled)
	this.So(this.downloader.requests, should.BeEmpty)
}

func (this *InstallerFixture) TestUpdateWhenUpToDate() {
	_, _ = this.installer.Install(contracts.MSFS2020)
	this.downloader.requests = nil

	outcome, err := this.installer.Update(contracts.MSFS2020)

	this.So(err, should.BeNil)
	this.So(outcome, should.Equal, UpToDate)
	this.So(this.downloader.requests, should.Resemble, []string{"https://sdk.flightsimulator.com/files/sdk.json"})
}

func (this *InstallerFixture) TestUpdateReplacesInstallation() {
	_, _ = this.installer.Install(contracts.MSFS2020)
	stale, _ := this.files.Create("/data/msfs2020/WASM/wasi-sysroot/include/removed.h")
	_ = stale.Close()
	this.publish("1.2.0")

	outcome, err := this.installer.Update(contracts.MSFS2020)

	this.So(err, should.BeNil)
	this.So(outcome, should.Equal, Updated)
	this.So(this.record(), should.Equal, "1.2.0")
	this.So(this.files.Listing(), should.Resemble, []string{
		"/data/msfs2020/WASM/wasi-sysroot/include/stdio.h",
		"/data/msfs2020/version.txt",
	})
}

func (this *InstallerFixture) TestFailedExtractionLeavesNoRecord() {
	this.members = append(this.members, cabtest.Entry{Name: "fil999", Content: []byte("orphan")})

	outcome, err := this.installer.Install(contracts.MSFS2020)

	this.So(outcome, should.Equal, Outcome(0))
	this.So(errors.Is(err, contracts.NotFound), should.BeTrue)
	this.So(this.record(), should.Equal, "<none>")
	this.So(this.lock.held, should.BeFalse)
}

func (this *InstallerFixture) TestDownloadFailureLeavesNoRecord() {
	this.downloader.content = map[string]string{"https://sdk.flightsimulator.com/files/sdk.json": this.downloader.content["https://sdk.flightsimulator.com/files/sdk.json"]}

	_, err := this.installer.Install(contracts.MSFS2020)

	this.So(errors.Is(err, contracts.Network), should.BeTrue)
	this.So(this.record(), should.Equal, "<none>")
}

func (this *InstallerFixture) TestLockFailureStopsBeforeAnyWork() {
	this.lock.err = contracts.Errorf(contracts.Filesystem, "lock", "busy")

	_, err := this.installer.Install(contracts.MSFS2020)

	this.So(err, should.Equal, this.lock.err)
	this.So(this.downloader.requests, should.BeEmpty)
}

func (this *InstallerFixture) TestRemoveWhenNotInstalled() {
	outcome, err := this.installer.Remove(contracts.MSFS2020)

	this.So(err, should.BeNil)
	this.So(outcome, should.Equal, NotInstalled)
}

func (this *InstallerFixture) TestRemoveInstalled() {
	_, _ = this.installer.Install(contracts.MSFS2020)

	outcome, err := this.installer.Remove(contracts.MSFS2020)

	this.So(err, should.BeNil)
	this.So(outcome, should.Equal, Removed)
	this.So(this.files.Listing(), should.BeEmpty)
}

func (this *InstallerFixture) TestStatus() {
	_ = this.files.MkdirAll("/data/msfs2020")
	_ = this.files.WriteFile("/data/msfs2020/version.txt", []byte("1.0.0"))

	status, err := this.installer.Status(contracts.MSFS2020)

	this.So(err, should.BeNil)
	this.So(status.Installation.Root, should.Equal, "/data/msfs2020")
	this.So(status.IsInstalled, should.BeTrue)
	this.So(status.Installed, should.Equal, "1.0.0")
	this.So(status.Latest, should.Equal, "1.1.0")
}

func (this *InstallerFixture) TestOutcomeNames() {
	this.So(Installed.String(), should.Equal, "installed")
	this.So(UpToDate.String(), should.Equal, "up to date")
	this.So(Outcome(0).String(), should.Equal, "unknown")
}

/////////////////////////////////////////////////////////////////////////////////

type FakeLock struct {
	acquired []string
	held     bool
	err      error
}

func (this *FakeLock) Acquire(root string) (func(), error) {
	if this.err != nil {
		return nil, this.err
	}
	this.acquired = append(this.acquired, root)
	this.held = true
	return func() { this.held = false }, nil
}
