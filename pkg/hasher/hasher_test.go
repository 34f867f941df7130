package hasher

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/nethoundsh/rmfile/pkg/gcid"
)

func TestIsHexDigest(t *testing.T) {
	const emptySHA1 = "da39a3ee5e6b4b0d3255bfef95601890afd80709"
	const emptySHA1Upper = "DA39A3EE5E6B4B0D3255BFEF95601890AFD80709"

	tests := []struct {
		name string
		in   string
		algo Algo
		want bool
	}{
		{name: "valid sha1", in: emptySHA1, algo: SHA1, want: true},
		{name: "valid uppercase sha1", in: emptySHA1Upper, algo: SHA1, want: true},
		{name: "gcid has sha1 length", in: emptySHA1, algo: GCID, want: true},
		{name: "too short", in: "abc123", algo: SHA1, want: false},
		{name: "too long", in: emptySHA1 + "00", algo: SHA1, want: false},
		{name: "non-hex characters", in: "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", algo: SHA1, want: false},
		{name: "empty string", in: "", algo: SHA1, want: false},
		{name: "unknown algo", in: emptySHA1, algo: "md5", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHexDigest(tt.in, tt.algo); got != tt.want {
				t.Fatalf("IsHexDigest(%q, %s) = %v, want %v", tt.in, tt.algo, got, tt.want)
			}
		})
	}
}

func TestFile(t *testing.T) {
	content := []byte("rmfile test content")

	writeTemp := func(t *testing.T, data []byte) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "testfile")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("writing temp file: %v", err)
		}
		return path
	}

	t.Run("all digests", func(t *testing.T) {
		path := writeTemp(t, content)
		sum1 := sha1.Sum(content)
		g := gcid.New(int64(len(content)))
		g.Write(content)

		got, err := File(path, SHA1, GCID)
		if err != nil {
			t.Fatalf("File() error: %v", err)
		}
		if want := hex.EncodeToString(sum1[:]); got.SHA1 != want {
			t.Fatalf("SHA1 = %q, want %q", got.SHA1, want)
		}
		if want := hex.EncodeToString(g.Sum(nil)); got.GCID != want {
			t.Fatalf("GCID = %q, want %q", got.GCID, want)
		}
		if got.ForAlgo(SHA1) != got.SHA1 || got.ForAlgo(GCID) != got.GCID {
			t.Fatalf("ForAlgo mismatch: %+v", got)
		}
	})

	t.Run("only requested digests", func(t *testing.T) {
		path := writeTemp(t, content)
		got, err := File(path, SHA1)
		if err != nil {
			t.Fatalf("File() error: %v", err)
		}
		if got.SHA1 == "" {
			t.Fatal("SHA1 should be set")
		}
		if got.GCID != "" {
			t.Fatalf("GCID = %q, want empty when not requested", got.GCID)
		}
	})

	t.Run("larger than read buffer", func(t *testing.T) {
		data := make([]byte, 100*1024+7)
		for i := range data {
			data[i] = byte(i % 251)
		}
		path := writeTemp(t, data)
		sum1 := sha1.Sum(data)
		got, err := File(path, SHA1)
		if err != nil {
			t.Fatalf("File() error: %v", err)
		}
		if want := hex.EncodeToString(sum1[:]); got.SHA1 != want {
			t.Fatalf("SHA1 = %q, want %q", got.SHA1, want)
		}
	})

	t.Run("gcid spanning several pieces", func(t *testing.T) {
		data := make([]byte, 600*1024+13)
		for i := range data {
			data[i] = byte((i * 7) % 253)
		}
		path := writeTemp(t, data)

		piece := gcid.PieceSize(int64(len(data)))
		if piece != 256*1024 {
			t.Fatalf("PieceSize = %d, want 256 KiB", piece)
		}
		var pieces []byte
		for off := 0; off < len(data); off += piece {
			end := min(off+piece, len(data))
			sum := sha1.Sum(data[off:end])
			pieces = append(pieces, sum[:]...)
		}
		outer := sha1.Sum(pieces)
		want := hex.EncodeToString(outer[:])

		got, err := File(path, GCID)
		if err != nil {
			t.Fatalf("File() error: %v", err)
		}
		if got.GCID != want {
			t.Fatalf("GCID = %q, want %q", got.GCID, want)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeTemp(t, nil)
		got, err := File(path, SHA1, GCID)
		if err != nil {
			t.Fatalf("File() error: %v", err)
		}
		const empty = "da39a3ee5e6b4b0d3255bfef95601890afd80709"
		if got.SHA1 != empty || got.GCID != empty {
			t.Fatalf("empty file digests = %+v, want both %s", got, empty)
		}
	})

	t.Run("no algos does not open the file", func(t *testing.T) {
		got, err := File(filepath.Join(t.TempDir(), "does-not-exist"))
		if err != nil {
			t.Fatalf("File() with no algos should not touch the file: %v", err)
		}
		if got != (Result{}) {
			t.Fatalf("File() = %+v, want zero Result", got)
		}
	})

	t.Run("nonexistent file", func(t *testing.T) {
		_, err := File(filepath.Join(t.TempDir(), "does-not-exist"), SHA1)
		if err == nil {
			t.Fatal("File() should return error for nonexistent file")
		}
	})

	t.Run("unsupported algo", func(t *testing.T) {
		path := writeTemp(t, content)
		if _, err := File(path, "md5"); err == nil {
			t.Fatal("File() should reject unsupported algorithms")
		}
	})
}
