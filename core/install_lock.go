package core

import (
	"errors"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"time"

	"github.com/juju/clock"
	"github.com/juju/mutex/v2"

	"github.com/msfs-tools/sdkfetch/contracts"
)

const lockStage = "lock"

// InstallLock serializes installs against one installation root across
// processes. A second installer gives up after the timeout instead of waiting
// for the first to finish.
type InstallLock struct {
	clock   clock.Clock
	delay   time.Duration
	timeout time.Duration
}

func NewInstallLock() *InstallLock {
	return &InstallLock{clock: clock.WallClock, delay: 100 * time.Millisecond, timeout: 5 * time.Second}
}

// Acquire blocks until the root is locked or the timeout passes. Call the
// returned function to unlock.
func (this *InstallLock) Acquire(root string) (release func(), err error) {
	releaser, err := mutex.Acquire(mutex.Spec{
		Name:    lockName(root),
		Clock:   this.clock,
		Delay:   this.delay,
		Timeout: this.timeout,
	})
	if errors.Is(err, mutex.ErrTimeout) {
		return nil, contracts.Errorf(contracts.Filesystem, lockStage, "another install into %s is in progress", root)
	}
	if err != nil {
		return nil, contracts.NewError(contracts.Filesystem, lockStage, err)
	}
	return releaser.Release, nil
}

// lockName derives a mutex name (letters, digits and hyphens only) from the root.
func lockName(root string) string {
	absolute, err := filepath.Abs(root)
	if err != nil {
		absolute = root
	}
	hash := fnv.New64a()
	_, _ = hash.Write([]byte(filepath.Clean(absolute)))
	return fmt.Sprintf("sdkfetch-%016x", hash.Sum64())
}
