package vfs

import (
	"testing"

	"zenithos/ustr"
)

func newTestFS(t *testing.T) *FS_t {
	t.Helper()
	image := EncodeImage(map[string][]byte{
		"motd":        []byte("hello\n"),
		"bin/ls":      []byte{0x7f, 'E', 'L', 'F'},
		"bin/cat":     []byte{0x7f, 'E', 'L', 'F', 0x02},
		"etc/network": []byte("0.0.0.0\n"),
	})
	f := &FS_t{}
	if err := f.Init(image, 8, 4096); err != 0 {
		t.Fatalf("Init failed: %v", err)
	}
	return f
}

func TestOpenReadExistingFile(t *testing.T) {
	f := newTestFS(t)
	h, err := f.Open(ustr.Ustr("0:/motd"))
	if err != 0 {
		t.Fatalf("Open failed: %v", err)
	}
	size, err := f.GetSize(h)
	if err != 0 || size != 6 {
		t.Fatalf("expected size 6, got %d err %v", size, err)
	}
	buf := make([]byte, 64)
	n, err := f.Read(h, buf, 0, len(buf))
	if err != 0 || string(buf[:n]) != "hello\n" {
		t.Fatalf("unexpected read: %q err %v", buf[:n], err)
	}
}

func TestOpenMissingFileReturnsENOENT(t *testing.T) {
	f := newTestFS(t)
	if _, err := f.Open(ustr.Ustr("0:/nope")); err != -6 {
		t.Fatalf("expected ENOENT(-6), got %v", err)
	}
}

func TestOpenRejectsNonDriveQualifiedPath(t *testing.T) {
	f := newTestFS(t)
	if _, err := f.Open(ustr.Ustr("motd")); err == 0 {
		t.Fatalf("expected an error for a non-drive-qualified path")
	}
}

func TestReadOnlyEntryRejectsWrite(t *testing.T) {
	f := newTestFS(t)
	h, _ := f.Open(ustr.Ustr("0:/motd"))
	if _, err := f.Write(h, []byte("x"), 0, 1); err != -9 {
		t.Fatalf("expected EPERM(-9) writing a read-only entry, got %v", err)
	}
}

func TestCreateThenWriteThenRead(t *testing.T) {
	f := newTestFS(t)
	if err := f.Create(ustr.Ustr("0:/scratch")); err != 0 {
		t.Fatalf("Create failed: %v", err)
	}
	h, err := f.Open(ustr.Ustr("0:/scratch"))
	if err != 0 {
		t.Fatalf("Open of created file failed: %v", err)
	}
	n, err := f.Write(h, []byte("abc"), 0, 3)
	if err != 0 || n != 3 {
		t.Fatalf("Write failed: n=%d err=%v", n, err)
	}
	buf := make([]byte, 3)
	n, err = f.Read(h, buf, 0, 3)
	if err != 0 || string(buf[:n]) != "abc" {
		t.Fatalf("Read after write mismatch: %q err %v", buf[:n], err)
	}
}

func TestCreateDuplicateFails(t *testing.T) {
	f := newTestFS(t)
	if err := f.Create(ustr.Ustr("0:/motd")); err != -7 {
		t.Fatalf("expected EEXIST(-7) creating a duplicate, got %v", err)
	}
}

func TestWriteRespectsWritableBudget(t *testing.T) {
	f := newTestFS(t)
	f.writableBudget = 4
	f.Create(ustr.Ustr("0:/tiny"))
	h, _ := f.Open(ustr.Ustr("0:/tiny"))
	if _, err := f.Write(h, []byte("12345"), 0, 5); err != -13 {
		t.Fatalf("expected ENOSPC(-13) exceeding writable budget, got %v", err)
	}
}

func TestCloseInvalidatesHandle(t *testing.T) {
	f := newTestFS(t)
	h, _ := f.Open(ustr.Ustr("0:/motd"))
	if err := f.Close(h); err != 0 {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := f.GetSize(h); err != -8 {
		t.Fatalf("expected EBADF(-8) after close, got %v", err)
	}
}

func TestHandleTableExhaustion(t *testing.T) {
	f := newTestFS(t)
	f.handles = make([]openFile_t, 1)
	if _, err := f.Open(ustr.Ustr("0:/motd")); err != 0 {
		t.Fatalf("first Open should succeed, got %v", err)
	}
	if _, err := f.Open(ustr.Ustr("0:/bin/ls")); err != -1 {
		t.Fatalf("expected ENOMEM(-1) when the handle table is full, got %v", err)
	}
}

func TestReaddirListsImmediateChildrenOnly(t *testing.T) {
	f := newTestFS(t)
	names := make([]ustr.Ustr, 8)
	count, err := f.Readdir(ustr.Ustr("0:/"), names, len(names))
	if err != 0 {
		t.Fatalf("Readdir failed: %v", err)
	}
	want := map[string]bool{"motd": true, "bin": true, "etc": true}
	if count != len(want) {
		t.Fatalf("expected %d entries, got %d (%v)", len(want), count, names[:count])
	}
	for i := 0; i < count; i++ {
		if !want[names[i].String()] {
			t.Fatalf("unexpected readdir entry %q", names[i])
		}
	}
}

func TestReaddirSubdirectory(t *testing.T) {
	f := newTestFS(t)
	names := make([]ustr.Ustr, 8)
	count, err := f.Readdir(ustr.Ustr("0:/bin/"), names, len(names))
	if err != 0 {
		t.Fatalf("Readdir failed: %v", err)
	}
	want := map[string]bool{"ls": true, "cat": true}
	if count != len(want) {
		t.Fatalf("expected %d entries, got %d (%v)", len(want), count, names[:count])
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	image := EncodeImage(map[string][]byte{"a": {1, 2, 3}})
	entries, ok := decodeImage(image)
	if !ok || len(entries) != 1 {
		t.Fatalf("decode failed: ok=%v entries=%d", ok, len(entries))
	}
	if entries[0].name.String() != "a" || len(entries[0].data) != 3 {
		t.Fatalf("unexpected decoded entry: %+v", entries[0])
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	if _, ok := decodeImage([]byte("not-an-image-at-all")); ok {
		t.Fatalf("expected decode to reject a bad magic")
	}
}
