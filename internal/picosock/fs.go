package picosock

import (
	"errors"
	"io"
	"io/fs"
	"strconv"
	"time"

	"github.com/ivxnet/picosock/internal/runtime/vfs"
)

var (
	_ vfs.File       = (*sockFile)(nil)
	_ vfs.FileSystem = (*SocketFS)(nil)
)

// ErrTimeout and ErrAborted adapt the Read/Write sentinel return codes to
// ordinary Go errors for callers going through the vfs.File facade.
var (
	ErrTimeout = errors.New("picosock: operation timed out")
	ErrAborted = errors.New("picosock: connection aborted by peer")
)

// sockFile adapts a *Socket to the vfs.File interface (io.Reader, io.Writer,
// io.Seeker, io.ReaderAt, io.WriterAt, io.Closer, Stat, Sync) the way the
// runtime's vfs package expects a mounted file to behave. A socket has no
// offset-addressable storage, so Seek/ReadAt/WriteAt report
// fs.ErrInvalid, the same answer a real filesystem gives for a non-seekable
// special file such as a pipe.
type sockFile struct {
	sock *Socket
	name string
}

// NewSockFile wraps sock as a vfs.File mounted under /socket.
func NewSockFile(sock *Socket, name string) *sockFile {
	return &sockFile{sock: sock, name: name}
}

func (f *sockFile) Read(p []byte) (int, error) {
	n := f.sock.Read(p)
	return sentinelToError(n, len(p))
}

func (f *sockFile) Write(p []byte) (int, error) {
	n := f.sock.Write(p)
	return sentinelToError(n, len(p))
}

func sentinelToError(n, requested int) (int, error) {
	switch n {
	case EOF:
		return 0, io.EOF
	case Timeout:
		return 0, ErrTimeout
	case Abort:
		return 0, ErrAborted
	default:
		if n < 0 {
			return 0, errors.New("picosock: unknown result")
		}
		if n < requested {
			return n, io.ErrShortWrite
		}
		return n, nil
	}
}

func (f *sockFile) Seek(offset int64, whence int) (int64, error) {
	return 0, fs.ErrInvalid
}

func (f *sockFile) ReadAt(p []byte, off int64) (int, error) {
	return 0, fs.ErrInvalid
}

func (f *sockFile) WriteAt(p []byte, off int64) (int, error) {
	return 0, fs.ErrInvalid
}

func (f *sockFile) Close() error { return f.sock.Close() }

func (f *sockFile) Sync() error { return nil }

func (f *sockFile) Stat() (fs.FileInfo, error) {
	return sockFileInfo{name: f.name, port: f.sock.LocalPort()}, nil
}

type sockFileInfo struct {
	name string
	port uint16
}

func (i sockFileInfo) Name() string       { return i.name }
func (i sockFileInfo) Size() int64        { return 0 }
func (i sockFileInfo) Mode() fs.FileMode  { return fs.ModeSocket | 0o600 }
func (i sockFileInfo) ModTime() time.Time { return time.Time{} }
func (i sockFileInfo) IsDir() bool        { return false }
func (i sockFileInfo) Sys() any           { return i.port }

// SocketFS mounts a Stack's sockets as files under /socket/<slot>, the way
// the original's sockets appeared as entries in a generic VFS. Open, Stat,
// ReadDir and Walk are meaningful; Create and the directory mutation methods report fs.ErrInvalid
// since sockets are created through the Stack API, not by creating files.
type SocketFS struct {
	stack *Stack
}

// NewSocketFS returns a FileSystem view of stack's sockets.
func NewSocketFS(stack *Stack) *SocketFS { return &SocketFS{stack: stack} }

func (s *SocketFS) Open(name string) (vfs.File, error) {
	slot, err := slotFromName(name)
	if err != nil {
		return nil, err
	}
	for _, r := range s.stack.table.Records() {
		if r.slot == slot {
			return &sockFile{sock: &Socket{stack: s.stack, rec: r}, name: name}, nil
		}
	}
	return nil, fs.ErrNotExist
}

func (s *SocketFS) Create(name string) (vfs.File, error) {
	return nil, fs.ErrInvalid
}

func (s *SocketFS) Mkdir(name string, perm fs.FileMode) error    { return fs.ErrInvalid }
func (s *SocketFS) MkdirAll(name string, perm fs.FileMode) error { return fs.ErrInvalid }
func (s *SocketFS) Remove(name string) error                     { return fs.ErrInvalid }
func (s *SocketFS) RemoveAll(name string) error                  { return fs.ErrInvalid }

func (s *SocketFS) Stat(name string) (fs.FileInfo, error) {
	f, err := s.Open(name)
	if err != nil {
		return nil, err
	}
	return f.Stat()
}

func (s *SocketFS) ReadDir(name string) ([]fs.DirEntry, error) {
	var out []fs.DirEntry
	for _, r := range s.stack.table.Records() {
		out = append(out, sockDirEntry{slot: r.slot})
	}
	return out, nil
}

func (s *SocketFS) Walk(root string, fn func(fullPath string, d fs.DirEntry, err error) error) error {
	entries, err := s.ReadDir(root)
	if err != nil {
		return fn(root, nil, err)
	}
	for _, e := range entries {
		if err := fn(root+"/"+e.Name(), e, nil); err != nil {
			return err
		}
	}
	return nil
}

type sockDirEntry struct{ slot int }

func (e sockDirEntry) Name() string               { return strconv.Itoa(e.slot) }
func (e sockDirEntry) IsDir() bool                 { return false }
func (e sockDirEntry) Type() fs.FileMode           { return fs.ModeSocket }
func (e sockDirEntry) Info() (fs.FileInfo, error)  { return sockFileInfo{name: e.Name()}, nil }

func slotFromName(name string) (int, error) {
	trimmed := name
	for len(trimmed) > 0 && trimmed[0] == '/' {
		trimmed = trimmed[1:]
	}
	const prefix = "socket/"
	if len(trimmed) > len(prefix) && trimmed[:len(prefix)] == prefix {
		trimmed = trimmed[len(prefix):]
	}
	return strconv.Atoi(trimmed)
}
