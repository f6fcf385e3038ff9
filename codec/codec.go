package codec

// Codec encodes/decodes values V to []byte for storage. The proxy caches row
// sets, so V is typically a slice type ([]Product, []Row, ...).
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
