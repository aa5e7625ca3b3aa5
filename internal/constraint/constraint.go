// Package constraint describes the observed mt_rand() outputs a seed must
// reproduce and the predicate that tests one output against them.
package constraint

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/phpmtseed/phpmtseed/internal/mt"
)

const (
	// MaxConstraints is the number of successive outputs a search can pin.
	MaxConstraints = 8
	// DefaultRangeMax is the upper bound of mt_rand() called without a range.
	DefaultRangeMax = 0x7fffffff
)

// ErrInvalidConstraint reports malformed or contradictory constraint input.
var ErrInvalidConstraint = errors.New("invalid constraint")

// Constraint bounds one mt_rand() output. When RangeMin/RangeMax differ from
// the default range the output is first scaled into that range, the way
// mt_rand(RangeMin, RangeMax) does.
type Constraint struct {
	MatchMin uint32 `yaml:"match_min"`
	MatchMax uint32 `yaml:"match_max"`
	RangeMin uint32 `yaml:"range_min"`
	RangeMax uint32 `yaml:"range_max"`
}

// Exact returns a constraint matching the single unscaled value v.
func Exact(v uint32) Constraint {
	return Constraint{MatchMin: v, MatchMax: v, RangeMax: DefaultRangeMax}
}

// Scaled reports whether outputs are reduced into [RangeMin, RangeMax]
// instead of taking PHP's shifted fast path.
func (c Constraint) Scaled() bool {
	return !(c.RangeMin == 0 && c.RangeMax == DefaultRangeMax)
}

// Project maps a raw generator output to the value PHP would return.
// Validate must have accepted c.
func (c Constraint) Project(v uint32) uint32 {
	if !c.Scaled() {
		return v >> 1
	}
	return v%(c.RangeMax-c.RangeMin+1) + c.RangeMin
}

// Match reports whether the raw output v satisfies c.
func (c Constraint) Match(v uint32) bool {
	p := c.Project(v)
	return c.MatchMin <= p && p <= c.MatchMax
}

// Validate rejects constraints no PHP output can satisfy or that would make
// Project undefined.
func (c Constraint) Validate() error {
	switch {
	case c.MatchMin > c.MatchMax:
		return fmt.Errorf("%w: match_min %d > match_max %d", ErrInvalidConstraint, c.MatchMin, c.MatchMax)
	case c.RangeMin > c.RangeMax:
		return fmt.Errorf("%w: range_min %d > range_max %d", ErrInvalidConstraint, c.RangeMin, c.RangeMax)
	case c.RangeMax > DefaultRangeMax:
		return fmt.Errorf("%w: range_max %d exceeds %d", ErrInvalidConstraint, c.RangeMax, DefaultRangeMax)
	case c.MatchMax > DefaultRangeMax:
		return fmt.Errorf("%w: match_max %d exceeds %d", ErrInvalidConstraint, c.MatchMax, DefaultRangeMax)
	case c.MatchMax < c.RangeMin || c.MatchMin > c.RangeMax:
		return fmt.Errorf("%w: match window [%d, %d] outside range [%d, %d]",
			ErrInvalidConstraint, c.MatchMin, c.MatchMax, c.RangeMin, c.RangeMax)
	}
	return nil
}

// String renders c in the four-integer argument form.
func (c Constraint) String() string {
	return fmt.Sprintf("%d %d %d %d", c.MatchMin, c.MatchMax, c.RangeMin, c.RangeMax)
}

// Set is the ordered list of constraints applied to successive outputs of
// one freshly seeded generator.
type Set []Constraint

// Validate checks the length bound and every member.
func (s Set) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: at least one constraint is required", ErrInvalidConstraint)
	}
	if len(s) > MaxConstraints {
		return fmt.Errorf("%w: %d constraints given, at most %d supported", ErrInvalidConstraint, len(s), MaxConstraints)
	}
	for i, c := range s {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("constraint %d: %w", i+1, err)
		}
	}
	return nil
}

// Accepts reseeds a private generator with seed and reports whether every
// constraint holds in order. It is the host reference for the search kernel.
func (s Set) Accepts(seed uint32) bool {
	var st mt.State
	st.Reseed(seed)
	for _, c := range s {
		if !c.Match(st.Next()) {
			return false
		}
	}
	return true
}

// Words lays the set out for device upload:
// [step, match_min0, match_max0, range_min0, range_max0, match_min1, ...].
func (s Set) Words(step uint32) []uint32 {
	words := make([]uint32, 0, 1+4*len(s))
	words = append(words, step)
	for _, c := range s {
		words = append(words, c.MatchMin, c.MatchMax, c.RangeMin, c.RangeMax)
	}
	return words
}

func (s Set) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = c.String()
	}
	return strings.Join(parts, "  ")
}

// Parse reads command-line integers in groups of four. The last group may
// be shortened to VALUE or MATCH_MIN MATCH_MAX, which imply the default
// range. The result is validated.
func Parse(args []string) (Set, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no values given", ErrInvalidConstraint)
	}
	nums := make([]uint32, 0, len(args)+3)
	for i, a := range args {
		v, err := strconv.ParseUint(a, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d (%q) is not a 32-bit unsigned integer", ErrInvalidConstraint, i+1, a)
		}
		nums = append(nums, uint32(v))
	}

	switch len(nums) % 4 {
	case 1:
		nums = append(nums, nums[len(nums)-1], 0, DefaultRangeMax)
	case 2:
		nums = append(nums, 0, DefaultRangeMax)
	case 3:
		return nil, fmt.Errorf("%w: trailing group of 3 values, expected VALUE, MATCH_MIN MATCH_MAX or all four", ErrInvalidConstraint)
	}

	set := make(Set, 0, len(nums)/4)
	for i := 0; i < len(nums); i += 4 {
		set = append(set, Constraint{
			MatchMin: nums[i],
			MatchMax: nums[i+1],
			RangeMin: nums[i+2],
			RangeMax: nums[i+3],
		})
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}
