package contracts

import "io"

// Spool holds a downloaded payload so it can be read back at random offsets.
type Spool interface {
	io.Writer
	io.ReaderAt
	io.Closer
}
