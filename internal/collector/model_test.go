package collector

import (
	"fmt"
	"testing"

	"github.com/hupe1980/gcheap/internal/value"
	"github.com/hupe1980/gcheap/testutil"
	"github.com/stretchr/testify/require"
)

// node mirrors a rooted value: either a scalar or a pair of nodes.
type node struct {
	v          value.Value
	head, tail *node
}

func countReachable(roots []*node) int {
	seen := map[*node]bool{}
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		walk(n.head)
		walk(n.tail)
	}
	for _, r := range roots {
		walk(r)
	}
	return len(seen)
}

func requireMatches(t *testing.T, s *Space, r value.Ref, n *node) {
	t.Helper()
	if n == nil {
		require.Equal(t, value.Nil, r)
		return
	}
	v, err := s.Load(r)
	require.NoError(t, err)
	if n.head == nil && n.tail == nil && n.v != nil {
		require.True(t, value.Equal(n.v, v), "want %v, got %v", n.v, v)
		return
	}
	p, ok := v.(value.Pair)
	require.True(t, ok, "want pair, got %v", v)
	requireMatches(t, s, p.Head, n.head)
	requireMatches(t, s, p.Tail, n.tail)
}

func TestSpace_RandomizedAgainstModel(t *testing.T) {
	for _, tc := range []struct {
		compact bool
		seed    int64
	}{
		{true, 1}, {true, 2}, {false, 3}, {false, 4},
	} {
		t.Run(fmt.Sprintf("compact=%t/seed=%d", tc.compact, tc.seed), func(t *testing.T) {
			rng := testutil.NewRNG(tc.seed)
			s := newSpace(t, 0, Config{Compact: tc.compact, Mode: MarkTransitive})
			var model []*node

			for step := 0; step < 2000; step++ {
				switch op := rng.Intn(10); {
				case op < 4: // rooted scalar
					if s.Roots().Len() == s.Roots().Cap() {
						continue
					}
					v := rng.Scalar()
					r := alloc(t, s, v)
					push(t, s, r)
					model = append(model, &node{v: v})
				case op < 6: // garbage
					alloc(t, s, rng.Union())
				case op < 8: // pair over the two topmost roots
					n := s.Roots().Len()
					if n < 2 || n == s.Roots().Cap() {
						continue
					}
					h, _ := s.Roots().At(n - 1)
					tl, _ := s.Roots().At(n - 2)
					r := alloc(t, s, value.Pair{Head: h, Tail: tl})
					push(t, s, r)
					model = append(model, &node{head: model[n-1], tail: model[n-2]})
				case op < 9:
					if len(model) == 0 {
						continue
					}
					_, err := s.Roots().Pop()
					require.NoError(t, err)
					model = model[:len(model)-1]
				default:
					res, err := s.Collect()
					require.NoError(t, err)
					require.Equal(t, countReachable(model), res.Remaining)
					if res.Remaining > 0 {
						require.Equal(t, 2*res.Remaining, res.Threshold)
					}
				}

				require.Equal(t, s.Live(), listLen(t, s))
				require.LessOrEqual(t, s.Live(), s.Threshold())
			}

			for i, n := range model {
				r, ok := s.Roots().At(i)
				require.True(t, ok)
				requireMatches(t, s, r, n)
			}
		})
	}
}
