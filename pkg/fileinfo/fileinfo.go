package fileinfo

import (
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

// Meta describes a file that was matched, captured before it is removed.
type Meta struct {
	Size        int64
	SizeHuman   string
	Modified    time.Time
	Permissions string
}

type JSONMeta struct {
	Size        int64  `json:"size"`
	SizeHuman   string `json:"size_human"`
	Modified    string `json:"modified"`
	Permissions string `json:"permissions"`
}

func New(fi os.FileInfo) *Meta {
	return &Meta{
		Size:        fi.Size(),
		SizeHuman:   humanize.Bytes(uint64(fi.Size())),
		Modified:    fi.ModTime().UTC(),
		Permissions: fi.Mode().String(),
	}
}

// Stat is New for a path that has not been stat'ed yet.
func Stat(path string) (*Meta, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	return New(fi), nil
}

func ToJSON(meta *Meta) *JSONMeta {
	if meta == nil {
		return nil
	}
	return &JSONMeta{
		Size:        meta.Size,
		SizeHuman:   meta.SizeHuman,
		Modified:    meta.Modified.Format(time.RFC3339),
		Permissions: meta.Permissions,
	}
}
