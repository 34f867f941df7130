package hasher

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/nethoundsh/rmfile/pkg/gcid"
)

// Algo names a content digest.
type Algo string

const (
	SHA1 Algo = "sha1"
	GCID Algo = "gcid"
)

// newHash returns a fresh digest for a file of the given size.
func (a Algo) newHash(size int64) (hash.Hash, error) {
	switch a {
	case SHA1:
		return sha1.New(), nil
	case GCID:
		return gcid.New(size), nil
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", a)
	}
}

// Result holds the digests computed from a single file read. Digests that
// were not requested stay empty.
type Result struct {
	SHA1 string
	GCID string
}

// ForAlgo returns the digest for the given algorithm.
func (r Result) ForAlgo(algo Algo) string {
	switch algo {
	case SHA1:
		return r.SHA1
	case GCID:
		return r.GCID
	default:
		return ""
	}
}

func (r *Result) set(algo Algo, value string) {
	switch algo {
	case SHA1:
		r.SHA1 = value
	case GCID:
		r.GCID = value
	}
}

// IsHexDigest reports whether s looks like a hex digest of the given algorithm.
func IsHexDigest(s string, algo Algo) bool {
	b, err := hex.DecodeString(s)
	if err != nil {
		return false
	}
	switch algo {
	case SHA1:
		return len(b) == sha1.Size
	case GCID:
		return len(b) == gcid.Size
	default:
		return false
	}
}

// File computes the requested digests of filePath in a single pass.
// With no algos the file is not opened at all.
func File(filePath string, algos ...Algo) (_ Result, err error) {
	if len(algos) == 0 {
		return Result{}, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("hashing: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("hashing %s: %w", filePath, closeErr)
		}
	}()

	fi, err := file.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("hashing %s: %w", filePath, err)
	}

	hashes := make([]hash.Hash, len(algos))
	for i, algo := range algos {
		if hashes[i], err = algo.newHash(fi.Size()); err != nil {
			return Result{}, err
		}
	}

	buf := make([]byte, 32*1024)
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			for _, h := range hashes {
				h.Write(buf[:n])
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return Result{}, fmt.Errorf("hashing %s: %w", filePath, readErr)
		}
	}

	var res Result
	for i, algo := range algos {
		res.set(algo, hex.EncodeToString(hashes[i].Sum(nil)))
	}
	return res, nil
}
