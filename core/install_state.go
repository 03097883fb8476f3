package core

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/msfs-tools/sdkfetch/contracts"
)

const stateStage = "state"

// InstallStateStore keeps the installed release identifier inside the
// installation root.
type InstallStateStore struct {
	files contracts.FileSystem
}

func NewInstallStateStore(files contracts.FileSystem) *InstallStateStore {
	return &InstallStateStore{files: files}
}

// Read returns the recorded identifier. A missing or blank record means not installed.
func (this *InstallStateStore) Read(root string) (version string, installed bool, err error) {
	raw, err := this.files.ReadFile(recordPath(root))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, contracts.NewError(contracts.Filesystem, stateStage, err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return "", false, nil
	}
	return string(raw), true, nil
}

func (this *InstallStateStore) Write(root, version string) error {
	if err := this.files.MkdirAll(root); err != nil {
		return contracts.NewError(contracts.Filesystem, stateStage, err)
	}
	if err := this.files.WriteFile(recordPath(root), []byte(version)); err != nil {
		return contracts.NewError(contracts.Filesystem, stateStage, err)
	}
	return nil
}

// Clear removes the whole installation root. A missing root is fine.
func (this *InstallStateStore) Clear(root string) error {
	if err := this.files.RemoveAll(root); err != nil {
		return contracts.NewError(contracts.Filesystem, stateStage, err)
	}
	return nil
}

func recordPath(root string) string {
	return filepath.Join(root, contracts.InstallRecordFile)
}
