package protocol

// CompressionKind selects the outer packet's body codec (§4.1).
type CompressionKind uint8

const (
	CompressionNone  CompressionKind = 0
	CompressionOodle CompressionKind = 1
)

// Compressor abstracts the inherited Oodle Network-TCP stream codec. Oodle
// itself is proprietary and out of scope (§1 "treated as external
// collaborators"); this interface is the seam a real Oodle binding plugs
// into. A connection's Oodle state is seeded once and advances monotonically
// for the life of the connection, so the interface is stateful per side.
type Compressor interface {
	// Compress encodes plaintext into the connection's Oodle stream state.
	Compress(plaintext []byte) (compressed []byte, err error)
	// Decompress advances the connection's Oodle stream state and returns
	// decompressedSize bytes of plaintext.
	Decompress(compressed []byte, decompressedSize int) (plaintext []byte, err error)
}

// noopCompressor implements Compressor for CompressionNone: the identity
// transform. It is always available so a connection that never negotiates
// Oodle still satisfies the Compressor seam uniformly.
type noopCompressor struct{}

func (noopCompressor) Compress(p []byte) ([]byte, error) { return p, nil }
func (noopCompressor) Decompress(p []byte, _ int) ([]byte, error) { return p, nil }

// NewNoopCompressor returns the identity Compressor used when compression
// is disabled or not yet negotiated.
func NewNoopCompressor() Compressor { return noopCompressor{} }
