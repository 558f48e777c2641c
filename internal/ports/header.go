package ports

// HeaderGenerator builds the request head written in front of every batch.
// Vendor-specific field sets are separate implementations behind this port.
//
// The engine calls SetRequest once when it binds the generator, SetField any
// number of times, and Generate exactly once per batch. The returned head is
// cached by the engine and resent verbatim on every retry of that batch.
type HeaderGenerator interface {
	// SetRequest sets the request line.
	SetRequest(method, uri, version string)

	// SetField sets a header field. An empty value removes the field.
	SetField(name, value string)

	// Generate returns the complete head, terminated by an empty line,
	// announcing bodySize bytes of content. The engine copies the result.
	Generate(bodySize int) []byte
}
