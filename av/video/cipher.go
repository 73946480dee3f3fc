package video

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/avscramble/key"
)

// Cipher computes the keyed row permutation for frames of any height.
//
// Permutations are cached per block size and whole-frame plans per height,
// so a stream of equally sized frames pays the setup cost once. A Cipher is
// safe for concurrent use.
type Cipher struct {
	key key.Key

	mu    sync.Mutex
	perms map[int]*Permutation
	plans map[int]*Plan
}

// NewCipher creates a cipher bound to one session key.
func NewCipher(k key.Key) *Cipher {
	logrus.WithFields(logrus.Fields{
		"function": "NewCipher",
		"offset":   k.Offset,
		"step":     k.Step,
	}).Debug("Creating row permutation cipher")

	return &Cipher{
		key:   k,
		perms: make(map[int]*Permutation),
		plans: make(map[int]*Plan),
	}
}

// Key returns the key the cipher was created with.
func (c *Cipher) Key() key.Key {
	return c.key
}

// Plan returns the row mapping for frames of the given height.
func (c *Cipher) Plan(height int) *Plan {
	c.mu.Lock()
	defer c.mu.Unlock()

	if plan, ok := c.plans[height]; ok {
		return plan
	}

	blocks := Decompose(height)
	plan := &Plan{
		Height:  height,
		Blocks:  blocks,
		forward: make([]int, max(height, 0)),
		inverse: make([]int, max(height, 0)),
	}
	for _, b := range blocks {
		perm := c.permutationLocked(b.Size)
		for r := 0; r < b.Size; r++ {
			plan.forward[b.Start+r] = b.Start + perm.Forward(r)
			plan.inverse[b.Start+r] = b.Start + perm.Inverse(r)
		}
	}
	c.plans[height] = plan

	logrus.WithFields(logrus.Fields{
		"function":     "Cipher.Plan",
		"height":       height,
		"block_count":  len(blocks),
		"cached_sizes": len(c.perms),
	}).Debug("Row permutation plan computed")

	return plan
}

// Forward returns the destination row of row i in a frame of the given
// height.
func (c *Cipher) Forward(height, i int) int {
	return c.Plan(height).Forward(i)
}

// Inverse returns the row that Forward maps onto row i.
func (c *Cipher) Inverse(height, i int) int {
	return c.Plan(height).Inverse(i)
}

func (c *Cipher) permutationLocked(size int) *Permutation {
	if perm, ok := c.perms[size]; ok {
		return perm
	}
	// Decompose only yields powers of two, so this cannot fail.
	perm, _ := NewPermutation(size, c.key)
	c.perms[size] = perm
	return perm
}

// Plan is the precomputed forward and inverse row mapping for one height.
type Plan struct {
	Height int
	Blocks []Block

	forward []int
	inverse []int
}

// Forward returns the destination of row i.
func (p *Plan) Forward(i int) int {
	return p.forward[i]
}

// Inverse returns j such that Forward(j) == i.
func (p *Plan) Inverse(i int) int {
	return p.inverse[i]
}
