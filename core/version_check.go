package core

import "errors"

// VersionCheck compares an installed release identifier with the desired one.
// Identifiers are opaque, so any difference counts as a mismatch.
type VersionCheck struct {
	desiredVersion string
}

func NewVersionCheck(desiredVersion string) *VersionCheck {
	return &VersionCheck{desiredVersion: desiredVersion}
}

func (this *VersionCheck) Verify(installedVersion string) error {
	if installedVersion != this.desiredVersion {
		return errVersionMismatch
	}
	return nil
}

var errVersionMismatch = errors.New("version mismatch")
