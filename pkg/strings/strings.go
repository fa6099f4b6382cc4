// Package strings provides pooled string building and the text normalization
// helpers used by the transform stage.
package strings

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Builder is a reusable byte-backed string builder. Unlike strings.Builder it
// can be reset and returned to a pool.
type Builder struct {
	buf []byte
}

// NewBuilder creates a builder with the given initial capacity.
func NewBuilder(capacity int) *Builder {
	return &Builder{buf: make([]byte, 0, capacity)}
}

// WriteString appends a string to the builder.
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends a single byte.
func (b *Builder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// WriteRune appends a single rune.
func (b *Builder) WriteRune(r rune) {
	b.buf = utf8.AppendRune(b.buf, r)
}

// Write implements io.Writer.
func (b *Builder) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// String returns the built string.
func (b *Builder) String() string {
	return string(b.buf)
}

// Len returns the current length in bytes.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Reset clears the builder for reuse.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// BuilderSize selects the backing pool for a builder.
type BuilderSize int

const (
	Small  BuilderSize = iota // < 1KB, field values and error messages
	Medium                    // 1KB - 16KB, rows and file chunks
)

var (
	smallBuilderPool = &sync.Pool{
		New: func() interface{} { return NewBuilder(256) },
	}
	mediumBuilderPool = &sync.Pool{
		New: func() interface{} { return NewBuilder(4096) },
	}
)

// GetBuilder fetches a reset builder from the pool for the given size class.
func GetBuilder(size BuilderSize) *Builder {
	pool := smallBuilderPool
	if size == Medium {
		pool = mediumBuilderPool
	}
	builder := pool.Get().(*Builder)
	builder.Reset()
	return builder
}

// PutBuilder returns a builder to its pool.
func PutBuilder(builder *Builder, size BuilderSize) {
	if builder == nil {
		return
	}
	if size == Medium {
		mediumBuilderPool.Put(builder)
		return
	}
	smallBuilderPool.Put(builder)
}

// Sprintf formats using a pooled builder instead of allocating a fresh
// buffer per call.
func Sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}

	size := Small
	if len(format)+len(args)*16 > 1024 {
		size = Medium
	}

	builder := GetBuilder(size)
	defer PutBuilder(builder, size)

	fmt.Fprintf(builder, format, args...)
	return builder.String()
}

// TitleCase trims surrounding whitespace and capitalizes the first letter of
// each whitespace-separated token, lowercasing the rest. Inner whitespace is
// preserved as-is.
func TitleCase(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}

	builder := GetBuilder(Small)
	defer PutBuilder(builder, Small)

	startOfWord := true
	for _, r := range trimmed {
		switch {
		case unicode.IsSpace(r):
			builder.WriteRune(r)
			startOfWord = true
		case startOfWord:
			builder.WriteRune(unicode.ToUpper(r))
			startOfWord = false
		default:
			builder.WriteRune(unicode.ToLower(r))
		}
	}
	return builder.String()
}
