package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack serializes values with vmihailenco/msgpack/v5. It is the default
// codec of the persistent stores: compact binary output, fast, and it round
// trips ordinary Go structs without ceremony. The zero value is ready to use.
//
// Field naming follows `msgpack:"..."` struct tags, which differ from JSON
// tags - set them explicitly if the byte layout matters to you.
type Msgpack[V any] struct{}

var _ Codec[struct{}] = Msgpack[struct{}]{}

func (Msgpack[V]) Encode(v V) ([]byte, error) { return msgpack.Marshal(v) }

func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}
