package msi

import "github.com/msfs-tools/sdkfetch/contracts"

const stage = "msi"

func corruptf(format string, args ...interface{}) error {
	return contracts.Errorf(contracts.Corrupt, stage, format, args...)
}

func notFoundf(format string, args ...interface{}) error {
	return contracts.Errorf(contracts.NotFound, stage, format, args...)
}

func formatf(format string, args ...interface{}) error {
	return contracts.Errorf(contracts.ArchiveFormat, stage, format, args...)
}
