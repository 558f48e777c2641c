// Package header provides the request head generators used by pipeship.
//
// Every batch is posted with a head built by a [Generator]. The default
// [Post] generator writes the request line, Host, Accept, the device id,
// any extra fields, a fresh X-Batch-Id and Content-Length:
//
//	gen := header.NewPost(
//	    header.WithDeviceID("001a2b3c4d5e"),
//	    header.WithFields(map[string]string{"X-Tenant": "acme"}),
//	)
//
// A head is generated once per batch and resent verbatim on every retry,
// so receivers can drop duplicates by X-Batch-Id. Host, Content-Encoding,
// Content-Length and X-Batch-Id are owned by the engine and cannot be set
// through WithFields.
package header
