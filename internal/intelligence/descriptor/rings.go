package descriptor

import (
	"sort"
	"strconv"
	"strings"
)

// Rings returns a smallest set of smallest rings as ordered atom lists.
//
// Candidates are the shortest cycle through each bond; they are accepted by
// increasing size while linearly independent over GF(2) in bond space,
// until the cyclomatic number is reached.
func (m *Molecule) Rings() [][]int {
	m.perceiveRings()
	return m.rings
}

// RingBonds returns the bond indices of each ring, parallel to Rings.
func (m *Molecule) RingBonds() [][]int {
	m.perceiveRings()
	return m.ringBonds
}

// AtomInRing reports whether atom i belongs to any ring.
func (m *Molecule) AtomInRing(i int) bool {
	for _, r := range m.Rings() {
		for _, a := range r {
			if a == i {
				return true
			}
		}
	}
	return false
}

// BondInRing reports whether bond b belongs to any ring.
func (m *Molecule) BondInRing(b int) bool {
	for _, r := range m.RingBonds() {
		for _, x := range r {
			if x == b {
				return true
			}
		}
	}
	return false
}

// Components returns the number of connected fragments.
func (m *Molecule) Components() int {
	seen := make([]bool, len(m.Atoms))
	n := 0
	for start := range m.Atoms {
		if seen[start] {
			continue
		}
		n++
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			a := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, nb := range m.Neighbors(a) {
				if !seen[nb] {
					seen[nb] = true
					stack = append(stack, nb)
				}
			}
		}
	}
	return n
}

type cycle struct {
	atoms []int
	bonds []int
}

func (m *Molecule) perceiveRings() {
	if m.perceived {
		return
	}
	m.perceived = true

	want := len(m.Bonds) - len(m.Atoms) + m.Components()
	if want <= 0 {
		return
	}

	seen := make(map[string]bool)
	var candidates []cycle
	for bi := range m.Bonds {
		c, ok := m.shortestCycleThrough(bi)
		if !ok {
			continue
		}
		key := bondKey(c.bonds)
		if seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].bonds) < len(candidates[j].bonds)
	})

	basis := newGF2Basis(len(m.Bonds))
	for _, c := range candidates {
		if len(m.rings) == want {
			break
		}
		if basis.add(c.bonds) {
			m.rings = append(m.rings, c.atoms)
			m.ringBonds = append(m.ringBonds, c.bonds)
		}
	}
}

// shortestCycleThrough finds the shortest cycle containing bond bi by a BFS
// between its ends that avoids bi itself.
func (m *Molecule) shortestCycleThrough(bi int) (cycle, bool) {
	from, to := m.Bonds[bi].Begin, m.Bonds[bi].End
	prevAtom := make([]int, len(m.Atoms))
	prevBond := make([]int, len(m.Atoms))
	for i := range prevAtom {
		prevAtom[i] = -2
	}
	prevAtom[from] = -1
	queue := []int{from}
	for len(queue) > 0 && prevAtom[to] == -2 {
		a := queue[0]
		queue = queue[1:]
		for _, b := range m.atomBonds[a] {
			if b == bi {
				continue
			}
			nb := m.Bonds[b].Other(a)
			if prevAtom[nb] != -2 {
				continue
			}
			prevAtom[nb] = a
			prevBond[nb] = b
			queue = append(queue, nb)
		}
	}
	if prevAtom[to] == -2 {
		return cycle{}, false
	}

	c := cycle{bonds: []int{bi}}
	for a := to; a != -1; a = prevAtom[a] {
		c.atoms = append(c.atoms, a)
		if prevAtom[a] != -1 {
			c.bonds = append(c.bonds, prevBond[a])
		}
	}
	return c, true
}

func bondKey(bonds []int) string {
	sorted := append([]int(nil), bonds...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, b := range sorted {
		parts[i] = strconv.Itoa(b)
	}
	return strings.Join(parts, ",")
}

// gf2Basis keeps row-reduced bond-incidence vectors keyed by lowest set bit.
type gf2Basis struct {
	words int
	rows  map[int][]uint64
}

func newGF2Basis(nbits int) *gf2Basis {
	return &gf2Basis{words: (nbits + 63) / 64, rows: make(map[int][]uint64)}
}

// add reduces the vector for bonds against the basis and keeps it when
// a non-zero remainder is left.
func (g *gf2Basis) add(bonds []int) bool {
	v := make([]uint64, g.words)
	for _, b := range bonds {
		v[b/64] ^= 1 << uint(b%64)
	}
	for {
		pivot := lowestBit(v)
		if pivot < 0 {
			return false
		}
		row, ok := g.rows[pivot]
		if !ok {
			g.rows[pivot] = v
			return true
		}
		for i := range v {
			v[i] ^= row[i]
		}
	}
}

func lowestBit(v []uint64) int {
	for w, x := range v {
		if x == 0 {
			continue
		}
		for bit := 0; bit < 64; bit++ {
			if x&(1<<uint(bit)) != 0 {
				return w*64 + bit
			}
		}
	}
	return -1
}
