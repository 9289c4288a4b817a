package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/odvcencio/mgit/pkg/object"
)

// entryPrefixSize is the fixed part of an entry record: ten 32-bit stat
// fields, the 20-byte hash and the 16-bit name length.
const entryPrefixSize = 10*4 + object.HashSize + 2

// Timestamp is a stat time split the way the index stores it.
type Timestamp struct {
	Sec  uint32
	Nsec uint32
}

// TimestampOf converts t, truncating seconds to 32 bits.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Sec: uint32(t.Unix()), Nsec: uint32(t.Nanosecond())}
}

// Time returns the timestamp as a time.Time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(int64(ts.Sec), int64(ts.Nsec))
}

// Entry is one staged file: the blob it points at plus the filesystem
// metadata cached when it was staged.
type Entry struct {
	CTime Timestamp
	MTime Timestamp
	Dev   uint32
	Inode uint32
	Mode  object.FileMode
	UID   uint32
	GID   uint32
	Size  uint32
	Hash  object.Hash
	Name  string
}

// NewEntry builds an entry from portable file metadata. Fields the
// os.FileInfo interface does not expose (ctime, device, inode, owner) are
// left zero; use Stat to fill them on platforms that have them.
func NewEntry(name string, info os.FileInfo, h object.Hash) Entry {
	mtime := TimestampOf(info.ModTime())
	return Entry{
		CTime: mtime,
		MTime: mtime,
		Mode:  ModeOf(info),
		Size:  uint32(info.Size()),
		Hash:  h,
		Name:  name,
	}
}

// ModeOf maps a file's type and permission bits to the tree mode recorded in
// the index.
func ModeOf(info os.FileInfo) object.FileMode {
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return object.ModeSymlink
	case info.Mode()&0o111 != 0:
		return object.ModeExecutable
	default:
		return object.ModeFile
	}
}

// recordLen is the on-disk length of an entry whose name is nameLen bytes.
// Padding is always between 1 and 8 NUL bytes, so an already aligned record
// still gets a full 8 bytes of padding.
func recordLen(nameLen int) int {
	n := entryPrefixSize + nameLen
	return n + 8 - n%8
}

func (e *Entry) appendTo(buf []byte) ([]byte, error) {
	if len(e.Name) == 0 {
		return nil, fmt.Errorf("%w: entry: empty name", ErrInvalidFormat)
	}
	if len(e.Name) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: entry %q: name too long", ErrInvalidFormat, e.Name[:64])
	}
	if strings.IndexByte(e.Name, 0) >= 0 {
		return nil, fmt.Errorf("%w: entry %q: name contains NUL", ErrInvalidFormat, e.Name)
	}

	var prefix [entryPrefixSize]byte
	be := binary.BigEndian
	for i, v := range []uint32{
		e.CTime.Sec, e.CTime.Nsec,
		e.MTime.Sec, e.MTime.Nsec,
		e.Dev, e.Inode, uint32(e.Mode),
		e.UID, e.GID, e.Size,
	} {
		be.PutUint32(prefix[i*4:], v)
	}
	copy(prefix[40:], e.Hash[:])
	be.PutUint16(prefix[60:], uint16(len(e.Name)))

	start := len(buf)
	buf = append(buf, prefix[:]...)
	buf = append(buf, e.Name...)
	for len(buf)-start < recordLen(len(e.Name)) {
		buf = append(buf, 0)
	}
	return buf, nil
}

// decodeEntry parses one entry record from the start of data and returns the
// number of bytes it occupies.
func decodeEntry(data []byte) (Entry, int, error) {
	if len(data) < entryPrefixSize {
		return Entry{}, 0, fmt.Errorf("%w: truncated entry", ErrInvalidFormat)
	}
	be := binary.BigEndian
	u := func(i int) uint32 { return be.Uint32(data[i*4:]) }

	e := Entry{
		CTime: Timestamp{Sec: u(0), Nsec: u(1)},
		MTime: Timestamp{Sec: u(2), Nsec: u(3)},
		Dev:   u(4),
		Inode: u(5),
		Mode:  object.FileMode(u(6)),
		UID:   u(7),
		GID:   u(8),
		Size:  u(9),
	}
	h, err := object.HashFromBytes(data[40:60])
	if err != nil {
		return Entry{}, 0, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	e.Hash = h

	nameLen := int(be.Uint16(data[60:62]))
	if nameLen == 0 {
		return Entry{}, 0, fmt.Errorf("%w: entry with empty name", ErrInvalidFormat)
	}
	n := recordLen(nameLen)
	if len(data) < n {
		return Entry{}, 0, fmt.Errorf("%w: truncated entry name", ErrInvalidFormat)
	}
	name := data[entryPrefixSize : entryPrefixSize+nameLen]
	if bytes.IndexByte(name, 0) >= 0 {
		return Entry{}, 0, fmt.Errorf("%w: entry name contains NUL", ErrInvalidFormat)
	}
	for _, b := range data[entryPrefixSize+nameLen : n] {
		if b != 0 {
			return Entry{}, 0, fmt.Errorf("%w: entry %q: non-NUL padding", ErrInvalidFormat, name)
		}
	}
	e.Name = string(name)
	return e, n, nil
}
