package archive

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	blockSize = 512

	nameOffset = 0
	nameLen    = 100
	sizeOffset = 124
	sizeLen    = 12
	typeOffset = 156

	typeDirectory = '5'
)

// Parse decodes an uncompressed tar stream into a path map.
//
// Scanning stops at the first all-zero header block or when fewer than 512
// bytes remain. Entries whose path normalizes to the empty string are
// skipped but still consume their data blocks. Missing ancestor
// directories are synthesized for every recorded path.
func Parse(buf []byte) (Files, error) {
	files := make(Files)

	offset := 0
	for offset+blockSize <= len(buf) {
		header := buf[offset : offset+blockSize]
		if isZeroBlock(header) {
			break
		}
		if header[sizeOffset]&0x80 != 0 {
			return nil, fmt.Errorf("%w: binary size field at offset %d", ErrParse, offset)
		}

		name := readString(header[nameOffset : nameOffset+nameLen])
		size := readOctal(header[sizeOffset : sizeOffset+sizeLen])
		isDir := header[typeOffset] == typeDirectory

		if path := normalizePath(name, isDir); path != "" {
			if isDir {
				files[path] = Entry{Type: Directory}
			} else {
				start := offset + blockSize
				end := min(start+size, len(buf))
				files[path] = Entry{Type: File, Content: decodeText(buf[start:end])}
			}
		}

		blocks := (size + blockSize - 1) / blockSize
		offset += blockSize + blocks*blockSize
	}

	addParents(files)
	return files, nil
}

func isZeroBlock(block []byte) bool {
	for _, b := range block {
		if b != 0 {
			return false
		}
	}
	return true
}

// readString returns the field up to its first NUL, trimmed.
func readString(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return strings.TrimSpace(decodeText(field))
}

// readOctal parses the leading octal digits of a size field. A field
// without digits yields zero.
func readOctal(field []byte) int {
	n := 0
	for _, c := range readString(field) {
		if c < '0' || c > '7' {
			break
		}
		n = n*8 + int(c-'0')
	}
	return n
}

func decodeText(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
