package checker_test

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lincheck/internal/checker"
	"lincheck/internal/histgen"
	"lincheck/internal/history"
)

const idOffset = 1000

func TestCheck_IndependentOfOperationOrder(t *testing.T) {
	t.Parallel()

	for _, kind := range checker.Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			for seed := range uint64(50) {
				h, err := histgen.Generate(histgen.Config{
					Kind:            kind,
					Ops:             30,
					Seed:            seed,
					MaxRadius:       8,
					MaxSize:         6,
					NonLinearizable: seed%5 == 0,
				})
				require.NoError(t, err)

				want := checker.Linearizable(kind, h)

				rng := rand.New(rand.NewPCG(seed, 7))

				shuffled := slices.Clone(h.Ops)
				rng.Shuffle(len(shuffled), func(i, j int) {
					shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
				})
				assert.Equal(t, want, checker.Linearizable(kind, history.New(shuffled...)), "seed %d shuffled", seed)

				reversed := slices.Clone(h.Ops)
				slices.Reverse(reversed)
				assert.Equal(t, want, checker.Linearizable(kind, history.New(reversed...)), "seed %d reversed", seed)

				offset := slices.Clone(shuffled)
				for i := range offset {
					offset[i].ID += idOffset
				}
				assert.Equal(t, want, checker.Linearizable(kind, history.New(offset...)), "seed %d offset", seed)
			}
		})
	}
}
