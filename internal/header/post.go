// Package header builds the request head posted in front of every batch.
package header

import (
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Field names managed by Post itself.
const (
	FieldDeviceID      = "X-Device-Id"
	FieldBatchID       = "X-Batch-Id"
	FieldHostname      = "X-Agent-Hostname"
	FieldOSArch        = "X-Agent-OSArch"
	FieldContentLength = "Content-Length"
)

// Field names the engine sets itself per connection or per batch.
const (
	FieldHost            = "Host"
	FieldContentEncoding = "Content-Encoding"
)

type field struct {
	name  string
	value string
}

// Post implements ports.HeaderGenerator with a plain HTTP/1.1 head.
//
// Fields keep the order in which they were first set. Every generated head
// carries a fresh X-Batch-Id and ends with Content-Length. Post is safe for
// concurrent use so that plugins may update fields while the engine runs.
type Post struct {
	mu      sync.Mutex
	method  string
	uri     string
	version string
	fields  []field
	newID   func() string
}

// Option configures a Post.
type Option func(*Post)

// WithDeviceID sets the X-Device-Id field.
func WithDeviceID(id string) Option {
	return func(p *Post) { p.set(FieldDeviceID, id) }
}

// WithHostname sets the X-Agent-Hostname field.
func WithHostname(name string) Option {
	return func(p *Post) { p.set(FieldHostname, name) }
}

// WithOSArch sets the X-Agent-OSArch field.
func WithOSArch(osarch string) Option {
	return func(p *Post) { p.set(FieldOSArch, osarch) }
}

// WithFields sets extra fields in name order. Engine fields are skipped.
func WithFields(fields map[string]string) Option {
	return func(p *Post) {
		for _, name := range sortedNames(fields) {
			if EngineField(name) {
				continue
			}
			p.set(name, fields[name])
		}
	}
}

// WithIDFunc replaces the batch id generator.
func WithIDFunc(fn func() string) Option {
	return func(p *Post) { p.newID = fn }
}

// NewPost returns a generator for "POST / HTTP/1.1" with Accept: */*.
func NewPost(opts ...Option) *Post {
	p := &Post{
		method:  "POST",
		uri:     "/",
		version: "HTTP/1.1",
		newID:   uuid.NewString,
	}
	p.set("Accept", "*/*")
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetRequest sets the request line.
func (p *Post) SetRequest(method, uri, version string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.method, p.uri, p.version = method, uri, version
}

// SetField sets a header field. An empty value removes it. Content-Length
// and X-Batch-Id are generated and cannot be set. Names that are not HTTP
// tokens are ignored.
func (p *Post) SetField(name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set(name, value)
}

// Field returns the value of a field, or "" when unset.
func (p *Post) Field(name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i := p.index(name); i >= 0 {
		return p.fields[i].value
	}
	return ""
}

// Generate returns the head for a body of bodySize bytes.
func (p *Post) Generate(bodySize int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	b.WriteString(p.method)
	b.WriteByte(' ')
	b.WriteString(p.uri)
	b.WriteByte(' ')
	b.WriteString(p.version)
	b.WriteString("\r\n")
	for _, f := range p.fields {
		writeField(&b, f.name, f.value)
	}
	writeField(&b, FieldBatchID, p.newID())
	writeField(&b, FieldContentLength, strconv.Itoa(bodySize))
	b.WriteString("\r\n")
	return []byte(b.String())
}

func (p *Post) set(name, value string) {
	name = strings.TrimSpace(name)
	value = sanitize(value)
	if !ValidFieldName(name) || reserved(name) {
		return
	}

	i := p.index(name)
	switch {
	case value == "" && i >= 0:
		p.fields = append(p.fields[:i], p.fields[i+1:]...)
	case value == "":
	case i >= 0:
		p.fields[i].value = value
	default:
		p.fields = append(p.fields, field{name: name, value: value})
	}
}

func (p *Post) index(name string) int {
	for i, f := range p.fields {
		if strings.EqualFold(f.name, name) {
			return i
		}
	}
	return -1
}

func reserved(name string) bool {
	return strings.EqualFold(name, FieldContentLength) || strings.EqualFold(name, FieldBatchID)
}

// EngineField reports whether name is set by Post or the engine and so
// cannot come from user configuration.
func EngineField(name string) bool {
	return reserved(name) ||
		strings.EqualFold(name, FieldHost) ||
		strings.EqualFold(name, FieldContentEncoding)
}

// ValidFieldName reports whether name is a non-empty RFC 9110 token.
func ValidFieldName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isTokenChar(name[i]) {
			return false
		}
	}
	return true
}

func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0
}

// sanitize keeps a value on one line.
func sanitize(value string) string {
	value = strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, value)
	return strings.TrimSpace(value)
}

func writeField(b *strings.Builder, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}
