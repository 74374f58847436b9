package security

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
)

// RandomCodeGenerator draws table codes uniformly from domain.TableCodeAlphabet.
// Uniqueness is enforced by the store; callers retry on conflict.
type RandomCodeGenerator struct{}

func NewRandomCodeGenerator() RandomCodeGenerator { return RandomCodeGenerator{} }

func (RandomCodeGenerator) Generate(length int) (string, error) {
	if length < 4 || length > 16 {
		return "", fmt.Errorf("table code length %d out of range", length)
	}
	alphabet := domain.TableCodeAlphabet
	size := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
