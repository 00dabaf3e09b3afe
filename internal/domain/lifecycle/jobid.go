package lifecycle

import (
	"fmt"
	"io"
	"strings"
)

const (
	// JobIDPrefix starts every job code.
	JobIDPrefix = "Job-"

	jobIDAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	jobIDSuffixLen = 6
	// largest multiple of len(alphabet) that fits in a byte; bytes at or above it are rejected to keep the draw uniform
	jobIDRejectAt = 252
)

// NewJobID draws a job code of the form Job-XXXXXX with X in [A-Z0-9] from r,
// normally crypto/rand.Reader.
func NewJobID(r io.Reader) (string, error) {
	var b strings.Builder
	b.Grow(len(JobIDPrefix) + jobIDSuffixLen)
	b.WriteString(JobIDPrefix)

	buf := make([]byte, 16)
	for n := 0; n < jobIDSuffixLen; {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, c := range buf {
			if c >= jobIDRejectAt {
				continue
			}
			b.WriteByte(jobIDAlphabet[int(c)%len(jobIDAlphabet)])
			n++
			if n == jobIDSuffixLen {
				break
			}
		}
	}
	return b.String(), nil
}

// IsJobID reports whether s is a well-formed job code.
func IsJobID(s string) bool {
	suffix, ok := strings.CutPrefix(s, JobIDPrefix)
	if !ok || len(suffix) != jobIDSuffixLen {
		return false
	}
	for i := 0; i < len(suffix); i++ {
		if strings.IndexByte(jobIDAlphabet, suffix[i]) < 0 {
			return false
		}
	}
	return true
}
