package cabinet

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/smartystreets/assertions/should"
	"github.com/smartystreets/gunit"

	"github.com/msfs-tools/sdkfetch/cabinet/cabtest"
	"github.com/msfs-tools/sdkfetch/contracts"
)

func TestCabinetFixture(t *testing.T) {
	gunit.Run(new(CabinetFixture), t)
}

type CabinetFixture struct {
	*gunit.Fixture
	visited map[string]string
}

func (this *CabinetFixture) Setup() {
	this.visited = make(map[string]string)
}

func (this *CabinetFixture) open(raw []byte) *Cabinet {
	cabinet, err := Open(bytes.NewReader(raw), int64(len(raw)))
	this.So(err, should.BeNil)
	return cabinet
}

func (this *CabinetFixture) collect(file File, reader io.Reader) error {
	content, err := io.ReadAll(reader)
	this.visited[file.Name] = string(content)
	return err
}

func everything(File) bool { return true }

func (this *CabinetFixture) TestStoredFolder() {
	cabinet := this.open(cabtest.Build(cabtest.Folder{Compression: cabtest.Stored, Entries: []cabtest.Entry{
		{Name: "fil001", Content: []byte("#include <stddef.h>\n")},
		{Name: "fil002", Content: []byte("int main;")},
	}}))

	this.So(cabinet.Files(), should.Resemble, []File{
		{Name: "fil001", Size: 20, Folder: 0, Offset: 0},
		{Name: "fil002", Size: 9, Folder: 0, Offset: 20},
	})
	this.So(cabinet.Walk(everything, this.collect), should.BeNil)
	this.So(this.visited, should.Resemble, map[string]string{
		"fil001": "#include <stddef.h>\n",
		"fil002": "int main;",
	})
}

func (this *CabinetFixture) TestMSZIPAcrossManyBlocks() {
	first := randomText(100000)
	second := randomText(5000)
	cabinet := this.open(cabtest.Build(cabtest.Folder{Compression: cabtest.MSZIP, BlockSize: 4096, Entries: []cabtest.Entry{
		{Name: "big", Content: first},
		{Name: "small", Content: second},
	}}))

	this.So(cabinet.Walk(everything, this.collect), should.BeNil)
	this.So(this.visited["big"], should.Equal, string(first))
	this.So(this.visited["small"], should.Equal, string(second))
}

func (this *CabinetFixture) TestOnlyWantedFilesAreVisited() {
	cabinet := this.open(cabtest.Build(cabtest.Folder{Compression: cabtest.MSZIP, Entries: []cabtest.Entry{
		{Name: "skip-me", Content: []byte("unwanted")},
		{Name: "want-me", Content: []byte("wanted")},
	}}))

	err := cabinet.Walk(func(file File) bool { return file.Name == "want-me" }, this.collect)

	this.So(err, should.BeNil)
	this.So(this.visited, should.Resemble, map[string]string{"want-me": "wanted"})
}

func (this *CabinetFixture) TestUnreadContentIsSkipped() {
	cabinet := this.open(cabtest.Build(cabtest.Folder{Compression: cabtest.Stored, Entries: []cabtest.Entry{
		{Name: "a", Content: []byte("first file")},
		{Name: "b", Content: []byte("second file")},
	}}))
	var names []string

	err := cabinet.Walk(everything, func(file File, _ io.Reader) error {
		names = append(names, file.Name)
		return nil
	})

	this.So(err, should.BeNil)
	this.So(names, should.Resemble, []string{"a", "b"})
}

func (this *CabinetFixture) TestFolderWithUnsupportedCompressionIsLeftAloneUnlessWanted() {
	cabinet := this.open(cabtest.Build(
		cabtest.Folder{Compression: cabtest.Stored, Entries: []cabtest.Entry{{Name: "plain", Content: []byte("ok")}}},
		cabtest.Folder{Compression: cabtest.LZX, Entries: []cabtest.Entry{{Name: "packed", Content: []byte("??")}}},
	))

	err := cabinet.Walk(func(file File) bool { return file.Name == "plain" }, this.collect)
	this.So(err, should.BeNil)
	this.So(this.visited["plain"], should.Equal, "ok")

	err = cabinet.Walk(everything, this.collect)
	this.So(errors.Is(err, contracts.ArchiveFormat), should.BeTrue)
}

func (this *CabinetFixture) TestReserveAreasAreSkipped() {
	raw := cabtest.Cabinet{
		HeaderReserve: 6,
		FolderReserve: 3,
		DataReserve:   5,
		Folders: []cabtest.Folder{{Compression: cabtest.MSZIP, Entries: []cabtest.Entry{
			{Name: "fil001", Content: []byte("reserved")},
		}}},
	}.Build()

	this.So(this.open(raw).Walk(everything, this.collect), should.BeNil)
	this.So(this.visited["fil001"], should.Equal, "reserved")
}

func (this *CabinetFixture) TestVisitErrorStopsWalk() {
	cabinet := this.open(cabtest.Build(cabtest.Folder{Entries: []cabtest.Entry{
		{Name: "a", Content: []byte("1")},
		{Name: "b", Content: []byte("2")},
	}}))
	failure := errors.New("disk full")
	calls := 0

	err := cabinet.Walk(everything, func(File, io.Reader) error {
		calls++
		return failure
	})

	this.So(err, should.Equal, failure)
	this.So(calls, should.Equal, 1)
}

func (this *CabinetFixture) TestShortFolderDataIsCorrupt() {
	raw := cabtest.Build(cabtest.Folder{Entries: []cabtest.Entry{{Name: "a", Content: []byte("0123456789")}}})
	raw[len(raw)-10-4] = 4 // block claims fewer bytes than the file needs
	raw[len(raw)-10-2] = 4

	err := this.open(raw).Walk(everything, this.collect)

	this.So(errors.Is(err, contracts.Corrupt), should.BeTrue)
}

func (this *CabinetFixture) TestCabinetSetMembersAreListed() {
	cabinet := this.open(cabtest.Cabinet{
		PreviousCabinet: "data0.cab",
		NextCabinet:     "data2.cab",
		Folders: []cabtest.Folder{
			{Entries: []cabtest.Entry{{Name: "head", Content: []byte("tail of a split file"), Continued: true}}},
			{Entries: []cabtest.Entry{{Name: "middle", Content: []byte("whole")}}},
			{Entries: []cabtest.Entry{{Name: "last", Content: []byte("start of a split file")}}},
		},
	}.Build())

	this.So(cabinet.Files(), should.HaveLength, 3)
	this.So(cabinet.Files()[0].Folder, should.Equal, 0)
}

func (this *CabinetFixture) TestWholeFolderOfCabinetSetIsDecoded() {
	cabinet := this.open(cabtest.Cabinet{
		PreviousCabinet: "data0.cab",
		NextCabinet:     "data2.cab",
		Folders: []cabtest.Folder{
			{Entries: []cabtest.Entry{{Name: "head", Content: []byte("tail"), Continued: true}}},
			{Entries: []cabtest.Entry{{Name: "middle", Content: []byte("whole")}}},
			{Entries: []cabtest.Entry{{Name: "last", Content: []byte("start")}}},
		},
	}.Build())

	err := cabinet.Walk(func(file File) bool { return file.Name == "middle" }, this.collect)

	this.So(err, should.BeNil)
	this.So(this.visited, should.Resemble, map[string]string{"middle": "whole"})
}

func (this *CabinetFixture) TestFolderContinuedFromPreviousCabinetIsUnsupported() {
	cabinet := this.open(cabtest.Cabinet{
		PreviousCabinet: "data0.cab",
		Folders: []cabtest.Folder{
			{Entries: []cabtest.Entry{{Name: "head", Content: []byte("tail"), Continued: true}}},
		},
	}.Build())

	err := cabinet.Walk(everything, this.collect)

	this.So(errors.Is(err, contracts.ArchiveFormat), should.BeTrue)
	this.So(this.visited, should.BeEmpty)
}

func (this *CabinetFixture) TestFolderContinuedInNextCabinetIsUnsupported() {
	cabinet := this.open(cabtest.Cabinet{
		NextCabinet: "data2.cab",
		Folders: []cabtest.Folder{
			{Entries: []cabtest.Entry{{Name: "first", Content: []byte("whole")}}},
			{Entries: []cabtest.Entry{{Name: "last", Content: []byte("start")}}},
		},
	}.Build())

	err := cabinet.Walk(func(file File) bool { return file.Name == "last" }, this.collect)

	this.So(errors.Is(err, contracts.ArchiveFormat), should.BeTrue)
}

func (this *CabinetFixture) TestNotACabinet() {
	raw := []byte("this is plainly some other kind of stream content")

	_, err := Open(bytes.NewReader(raw), int64(len(raw)))

	this.So(err, should.Equal, ErrNotCabinet)
}

func (this *CabinetFixture) TestTinyStreamIsNotACabinet() {
	_, err := Open(bytes.NewReader([]byte("MSCF")), 4)

	this.So(err, should.Equal, ErrNotCabinet)
}

func (this *CabinetFixture) TestTruncatedCabinetIsCorrupt() {
	raw := cabtest.Build(cabtest.Folder{Entries: []cabtest.Entry{{Name: "a", Content: []byte("content")}}})
	raw = raw[:len(raw)-3]

	_, err := Open(bytes.NewReader(raw), int64(len(raw)))

	this.So(errors.Is(err, contracts.Corrupt), should.BeTrue)
}

func (this *CabinetFixture) TestDamagedBlockIsCorrupt() {
	raw := cabtest.Build(cabtest.Folder{Compression: cabtest.MSZIP, Entries: []cabtest.Entry{
		{Name: "a", Content: randomText(2000)},
	}})
	raw[bytes.Index(raw, []byte("CK"))] = 'X'

	err := this.open(raw).Walk(everything, this.collect)

	this.So(errors.Is(err, contracts.Corrupt), should.BeTrue)
}

func randomText(length int) []byte {
	random := rand.New(rand.NewSource(int64(length)))
	words := []string{"alpha ", "bravo ", "charlie ", "delta ", "echo\n", "\x00\x01"}
	var buffer bytes.Buffer
	for buffer.Len() < length {
		buffer.WriteString(words[random.Intn(len(words))])
	}
	return buffer.Bytes()[:length]
}
