package header

import (
	"github.com/bft-labs/pipeship/internal/header"
	"github.com/bft-labs/pipeship/internal/ports"
)

// Generator builds the request head written in front of every batch.
// Implementations used together with plugins must be safe for concurrent use.
type Generator = ports.HeaderGenerator

// Post is the default Generator: a plain HTTP/1.1 head with a device id,
// extra fields, a per-batch X-Batch-Id and Content-Length.
type Post = header.Post

// Option configures a Post.
type Option = header.Option

// Field names managed by Post.
const (
	FieldDeviceID      = header.FieldDeviceID
	FieldBatchID       = header.FieldBatchID
	FieldHostname      = header.FieldHostname
	FieldOSArch        = header.FieldOSArch
	FieldContentLength = header.FieldContentLength
)

// Field names set by the engine.
const (
	FieldHost            = header.FieldHost
	FieldContentEncoding = header.FieldContentEncoding
)

// NewPost returns a Post for "POST / HTTP/1.1". The engine replaces the
// request URI and sets Host when it binds the generator.
func NewPost(opts ...Option) *Post { return header.NewPost(opts...) }

// WithDeviceID sets the X-Device-Id field.
func WithDeviceID(id string) Option { return header.WithDeviceID(id) }

// WithHostname sets the X-Agent-Hostname field.
func WithHostname(name string) Option { return header.WithHostname(name) }

// WithOSArch sets the X-Agent-OSArch field.
func WithOSArch(osarch string) Option { return header.WithOSArch(osarch) }

// WithFields sets extra fields in name order.
func WithFields(fields map[string]string) Option { return header.WithFields(fields) }

// LoadFields reads extra fields from a flat TOML or YAML file.
func LoadFields(path string) (map[string]string, error) { return header.LoadFields(path) }
