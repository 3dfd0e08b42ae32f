package codec

// Bytes is the identity codec for []byte values: Encode and Decode return
// the input unchanged. Use it when the caller already holds serialized bytes
// and only needs the store's keying and TTL machinery.
type Bytes struct{}

var _ Codec[[]byte] = Bytes{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String converts string values to and from their UTF-8 bytes with no
// validation.
type String struct{}

var _ Codec[string] = String{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
