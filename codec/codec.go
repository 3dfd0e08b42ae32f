// Package codec defines value (de)serialization for the persistent stores.
//
// The disk and redis backends store exactly the bytes a codec produces, so
// any two backends configured with the same codec are format-compatible at
// the value layer. Changing codecs over existing data is a breaking change:
// previously written entries surface as decode errors, never as silent
// misreads.
package codec

// Codec encodes and decodes values V to and from []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
