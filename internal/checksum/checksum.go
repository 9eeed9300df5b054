// Package checksum recomputes the schema-history checksum of SQL migration
// scripts: a CRC-32 (IEEE) over the script's lines, without line
// terminators and with a leading UTF-8 BOM removed from every line, reported
// as a signed 32-bit integer.
package checksum

import (
	"bufio"
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"path"
)

// maxLineSize bounds a single script line.
const maxLineSize = 16 << 20

var bom = []byte{0xEF, 0xBB, 0xBF}

// ReadError reports a script that could not be read. No partial checksum is
// produced when it is returned.
type ReadError struct {
	Script string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("unable to calculate checksum of %s: %v", e.Script, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// MismatchError is returned by Verify when the recorded checksum differs from
// the recomputed one.
type MismatchError struct {
	Script   string
	Expected int32
	Computed int32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("checksum did not match for '%s': recorded %d, computed %d", e.Script, e.Expected, e.Computed)
}

// Compute reads r line by line and returns the checksum. name is only used in
// errors.
func Compute(name string, r io.Reader) (int32, error) {
	crc := crc32.NewIEEE()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), maxLineSize)
	scanner.Split(scanLines)

	for scanner.Scan() {
		line := bytes.TrimPrefix(scanner.Bytes(), bom)
		// hash.Hash never returns an error from Write.
		_, _ = crc.Write(line)
	}
	if err := scanner.Err(); err != nil {
		return 0, &ReadError{Script: name, Err: err}
	}

	return int32(crc.Sum32()), nil
}

// ComputeFile opens p in fsys and computes its checksum. Errors name the
// file by its base name, the same key the schema history uses.
func ComputeFile(fsys fs.FS, p string) (int32, error) {
	name := path.Base(p)

	f, err := fsys.Open(p)
	if err != nil {
		return 0, &ReadError{Script: name, Err: err}
	}
	defer f.Close()

	return Compute(name, f)
}

// Verify compares a recomputed checksum with the recorded one.
func Verify(script string, computed, recorded int32) error {
	if computed != recorded {
		return &MismatchError{Script: script, Expected: recorded, Computed: computed}
	}
	return nil
}

// scanLines splits on "\n", "\r" and "\r\n" and drops the terminator. A
// trailing terminator does not yield an empty final line.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	for i, b := range data {
		switch b {
		case '\n':
			return i + 1, data[:i], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if !atEOF {
				// a '\n' may follow in the next read
				return 0, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
