package utils

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// Die is the unified exit strategy for the CLI.
// It prints a formatted error box and exits with status 1.
func Die(context string, err error) {
	PrintError(os.Stderr, context, err)
	os.Exit(1)
}

// PrintError writes the error box used by Die.
func PrintError(w io.Writer, context string, err error) {
	fmt.Fprintf(w, "\n---------------------------------------------------------\n")
	fmt.Fprintf(w, "🚨 FACECROP ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(w, "DETAILS: %v\n", err)
	}
	fmt.Fprintf(w, "---------------------------------------------------------\n")
}

// RandomID returns 64 random bits as a signed BIGINT-compatible value.
// Uniqueness relies on the improbability of collision only.
func RandomID() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand only fails if the OS entropy source is unusable
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return int64(binary.BigEndian.Uint64(b[:]))
}

// Truncate shortens s to at most n runes for log and table output.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
