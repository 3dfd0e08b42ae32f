package codec

import "encoding/json"

// JSON serializes values with encoding/json. Larger and slower than the
// binary codecs; mainly useful when cached rows must stay human-inspectable.
type JSON[V any] struct{}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
