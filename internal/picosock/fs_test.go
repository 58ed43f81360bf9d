package picosock

import (
	"errors"
	"io"
	"io/fs"
	"testing"
)

func TestSentinelToError(t *testing.T) {
	cases := []struct {
		name      string
		n         int
		requested int
		wantN     int
		wantErr   error
	}{
		{"eof", EOF, 10, 0, io.EOF},
		{"timeout", Timeout, 10, 0, ErrTimeout},
		{"abort", Abort, 10, 0, ErrAborted},
		{"full", 10, 10, 10, nil},
		{"short", 4, 10, 4, io.ErrShortWrite},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			n, err := sentinelToError(c.n, c.requested)
			if n != c.wantN {
				t.Fatalf("n = %d, want %d", n, c.wantN)
			}
			if !errors.Is(err, c.wantErr) && err != c.wantErr {
				t.Fatalf("err = %v, want %v", err, c.wantErr)
			}
		})
	}
}

func TestSlotFromName(t *testing.T) {
	cases := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"/socket/3", 3, false},
		{"socket/3", 3, false},
		{"/socket/notanumber", 0, true},
	}
	for _, c := range cases {
		got, err := slotFromName(c.name)
		if c.wantErr {
			if err == nil {
				t.Fatalf("slotFromName(%q): expected an error", c.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("slotFromName(%q): %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("slotFromName(%q) = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestSocketFSOpenMissing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeviceAddr = "127.0.0.1:0"
	stack, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sfs := NewSocketFS(stack)
	if _, err := sfs.Open("/socket/0"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Open on an empty table: err = %v, want fs.ErrNotExist", err)
	}
}

func TestSocketFSOpenExisting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeviceAddr = "127.0.0.1:0"
	stack, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sock, err := stack.NewTCPSocket()
	if err != nil {
		t.Fatalf("NewTCPSocket: %v", err)
	}
	sfs := NewSocketFS(stack)
	name := "/socket/" + itoaSlot(sock.rec.slot)
	f, err := sfs.Open(name)
	if err != nil {
		t.Fatalf("Open(%q): %v", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode()&fs.ModeSocket == 0 {
		t.Fatal("Stat().Mode() should report ModeSocket")
	}
}

func itoaSlot(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
