package mutator

// ByteFlipMutator is an example Mutator, used by the test suite to exercise
// the Advance-once-per-connection contract. It inverts every bit of byte 0
// of the payload (XOR 0xFF) on each Advance, and is not a production fuzzing policy —
// real byte-fuzzing rules are an external collaborator to the core driver.
type ByteFlipMutator struct {
	seed *Seed
	body []byte
}

// NewByteFlipMutator returns a Mutator that flips byte 0 of the payload
// each time Advance is called.
func NewByteFlipMutator(seed *Seed) *ByteFlipMutator {
	body := make([]byte, len(seed.body))
	copy(body, seed.body)
	return &ByteFlipMutator{seed: seed, body: body}
}

func (m *ByteFlipMutator) CurrentBytes() []byte {
	return m.body
}

func (m *ByteFlipMutator) Advance() {
	if len(m.body) == 0 {
		return
	}
	m.body[0] ^= 0xFF
}

func (m *ByteFlipMutator) Clone() Mutator {
	return NewByteFlipMutator(m.seed)
}

var _ Mutator = (*ByteFlipMutator)(nil) // type check
