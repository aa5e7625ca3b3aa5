// Package mt implements the MT19937 generator exactly as PHP's mt_rand()
// uses it from PHP 7.1.0 onward.
package mt

const (
	// N is the number of words in the generator table.
	N = 624
	// M is the twist offset.
	M = 397

	multiplier  = 1812433253
	upperMask   = 0x80000000
	lowerMask   = 0x7fffffff
	matrixA     = 0x9908b0df
	temperMaskB = 0x9d2c5680
	temperMaskC = 0xefc60000
)

// State is one generator instance. The zero value is not seeded; call
// Reseed before Next.
type State struct {
	index uint32
	table [N]uint32
}

// New returns a generator seeded with seed.
func New(seed uint32) *State {
	var s State
	s.Reseed(seed)
	return &s
}

// Reseed initialises the table from seed, matching mt_srand(seed).
// The first Next call refills the table.
func (s *State) Reseed(seed uint32) {
	s.table[0] = seed
	for i := uint32(1); i < N; i++ {
		s.table[i] = InitWord(s.table[i-1], i)
	}
	s.index = N
}

// InitWord derives table word i from word i-1 during seeding.
func InitWord(prev, i uint32) uint32 {
	return multiplier*(prev^(prev>>30)) + i
}

// Next returns the next tempered 32-bit output.
func (s *State) Next() uint32 {
	if s.index >= N {
		s.twist()
	}
	y := s.table[s.index]
	s.index++
	return Temper(y)
}

// Rand returns the next value of PHP's mt_rand() with no arguments.
func (s *State) Rand() uint32 {
	return s.Next() >> 1
}

// RandRange returns the next value of PHP's mt_rand(lo, hi). The rejection
// loop PHP runs for non power-of-two widths is not modelled; it triggers
// with probability below 2^-31 for the widths accepted here.
func (s *State) RandRange(lo, hi uint32) uint32 {
	return s.Next()%(hi-lo+1) + lo
}

func (s *State) twist() {
	for i := 0; i < N; i++ {
		s.table[i] = Twist(s.table[(i+M)%N], s.table[i], s.table[(i+1)%N])
	}
	s.index = 0
}

// Twist derives a refilled word from the word M positions ahead (far), the
// word itself (cur) and its successor (next).
func Twist(far, cur, next uint32) uint32 {
	y := (cur & upperMask) | (next & lowerMask)
	y = far ^ (y >> 1)
	if next&1 == 1 {
		y ^= matrixA
	}
	return y
}

// Temper applies the MT19937 output transform. The steps do not commute.
func Temper(y uint32) uint32 {
	y ^= y >> 11
	y ^= (y << 7) & temperMaskB
	y ^= (y << 15) & temperMaskC
	y ^= y >> 18
	return y
}
