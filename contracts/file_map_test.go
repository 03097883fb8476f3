package contracts

import (
	"testing"

	"github.com/smartystreets/assertions/should"
	"github.com/smartystreets/gunit"
)

func TestRelativeFixture(t *testing.T) {
	gunit.Run(new(RelativeFixture), t)
}

type RelativeFixture struct {
	*gunit.Fixture
}

func (this *RelativeFixture) TestPathBelowPrefix() {
	relative, ok := Relative("SDK Root/WASM/wasi-sysroot/include/stdio.h", "SDK Root/WASM/wasi-sysroot")

	this.So(ok, should.BeTrue)
	this.So(relative, should.Equal, "include/stdio.h")
}

func (this *RelativeFixture) TestPrefixMustEndOnSegmentBoundary() {
	_, ok := Relative("SDK Rooted/file.txt", "SDK Root")

	this.So(ok, should.BeFalse)
}

func (this *RelativeFixture) TestPathEqualToPrefixIsNotBelowIt() {
	_, ok := Relative("SDK Root", "SDK Root")

	this.So(ok, should.BeFalse)
}

func (this *RelativeFixture) TestTrailingSlashOnPrefixIgnored() {
	relative, ok := Relative("MSFS SDK/Samples/readme.txt", "MSFS SDK/")

	this.So(ok, should.BeTrue)
	this.So(relative, should.Equal, "Samples/readme.txt")
}
