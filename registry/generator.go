package registry

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Trait table sizes. Indices produced by the generator stay below these
// bounds.
const (
	bodyCount    = 20
	hatCount     = 16
	clothesCount = 16
	glassesCount = 8
)

// contentSize is the fixed length of a minted payload.
const contentSize = 128

// HashGenerator derives item content and traits from a SHA-256 stream
// over (epoch, identity). It is deterministic by construction: the same
// inputs always mint the same item.
type HashGenerator struct{}

func (HashGenerator) Generate(epoch uint64, identity string) ([]byte, TraitIndices, error) {
	if identity == "" {
		return nil, TraitIndices{}, fmt.Errorf("empty identity")
	}

	seed := make([]byte, 8+len(identity))
	binary.BigEndian.PutUint64(seed, epoch)
	copy(seed[8:], identity)

	digest := sha256.Sum256(seed)
	traits := TraitIndices{
		Body:    digest[0] % bodyCount,
		Hat:     digest[1] % hatCount,
		Clothes: digest[2] % clothesCount,
		Glasses: digest[3] % glassesCount,
	}

	// Expand the digest into the fixed-size payload by chaining.
	content := make([]byte, 0, contentSize)
	block := digest
	for len(content) < contentSize {
		content = append(content, block[:]...)
		block = sha256.Sum256(block[:])
	}

	return content[:contentSize], traits, nil
}
