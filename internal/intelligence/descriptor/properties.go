package descriptor

import (
	"math"
	"sort"
)

// NumProperties is the length of a raw descriptor vector.
const NumProperties = 43

// Names lists the raw descriptor features in vector order.
var Names = [NumProperties]string{
	"exactmw", "amw", "lipinskiHBA", "lipinskiHBD", "NumRotatableBonds",
	"NumHBD", "NumHBA", "NumHeavyAtoms", "NumAtoms", "NumHeteroatoms",
	"NumAmideBonds", "FractionCSP3", "NumRings", "NumAromaticRings",
	"NumAliphaticRings", "NumSaturatedRings", "NumHeterocycles",
	"NumAromaticHeterocycles", "NumSaturatedHeterocycles",
	"NumAliphaticHeterocycles", "NumSpiroAtoms", "NumBridgeheadAtoms",
	"NumAtomStereoCenters", "NumUnspecifiedAtomStereoCenters", "labuteASA",
	"tpsa", "CrippenClogP", "CrippenMR", "chi0v", "chi1v", "chi2v", "chi3v",
	"chi4v", "chi0n", "chi1n", "chi2n", "chi3n", "chi4n", "hallKierAlpha",
	"kappa1", "kappa2", "kappa3", "Phi",
}

// Properties holds the computed physicochemical descriptors of a molecule.
type Properties struct {
	ExactMW                         float64
	AMW                             float64
	LipinskiHBA                     float64
	LipinskiHBD                     float64
	NumRotatableBonds               float64
	NumHBD                          float64
	NumHBA                          float64
	NumHeavyAtoms                   float64
	NumAtoms                        float64
	NumHeteroatoms                  float64
	NumAmideBonds                   float64
	FractionCSP3                    float64
	NumRings                        float64
	NumAromaticRings                float64
	NumAliphaticRings               float64
	NumSaturatedRings               float64
	NumHeterocycles                 float64
	NumAromaticHeterocycles         float64
	NumSaturatedHeterocycles        float64
	NumAliphaticHeterocycles        float64
	NumSpiroAtoms                   float64
	NumBridgeheadAtoms              float64
	NumAtomStereoCenters            float64
	NumUnspecifiedAtomStereoCenters float64
	LabuteASA                       float64
	TPSA                            float64
	CrippenClogP                    float64
	CrippenMR                       float64
	ChiV                            [5]float64
	ChiN                            [5]float64
	HallKierAlpha                   float64
	Kappa                           [3]float64
	Phi                             float64
}

// Vector flattens p in Names order.
func (p *Properties) Vector() []float64 {
	v := []float64{
		p.ExactMW, p.AMW, p.LipinskiHBA, p.LipinskiHBD, p.NumRotatableBonds,
		p.NumHBD, p.NumHBA, p.NumHeavyAtoms, p.NumAtoms, p.NumHeteroatoms,
		p.NumAmideBonds, p.FractionCSP3, p.NumRings, p.NumAromaticRings,
		p.NumAliphaticRings, p.NumSaturatedRings, p.NumHeterocycles,
		p.NumAromaticHeterocycles, p.NumSaturatedHeterocycles,
		p.NumAliphaticHeterocycles, p.NumSpiroAtoms, p.NumBridgeheadAtoms,
		p.NumAtomStereoCenters, p.NumUnspecifiedAtomStereoCenters, p.LabuteASA,
		p.TPSA, p.CrippenClogP, p.CrippenMR,
	}
	v = append(v, p.ChiV[:]...)
	v = append(v, p.ChiN[:]...)
	v = append(v, p.HallKierAlpha)
	v = append(v, p.Kappa[:]...)
	return append(v, p.Phi)
}

type hybridization int

const (
	sp3 hybridization = iota
	sp2
	sp
)

// ComputeProperties derives every descriptor in Names from m.
func ComputeProperties(m *Molecule) *Properties {
	c := &propertyCalc{m: m}
	c.prepare()

	p := &Properties{}
	c.counts(p)
	c.ringCounts(p)
	c.stereo(p)
	p.LabuteASA = c.labuteASA()
	p.TPSA = c.tpsa()
	p.CrippenClogP, p.CrippenMR = c.crippen()
	c.connectivity(p)
	return p
}

type propertyCalc struct {
	m      *Molecule
	hyb    []hybridization
	paths  [5]int
	deltaV []float64
	deltaN []float64
}

func (c *propertyCalc) prepare() {
	m := c.m
	c.hyb = make([]hybridization, len(m.Atoms))
	for i, a := range m.Atoms {
		doubles, triples := 0, 0
		for _, bi := range m.AtomBonds(i) {
			switch m.Bonds[bi].Order {
			case BondDouble:
				doubles++
			case BondTriple, BondQuadruple:
				triples++
			}
		}
		switch {
		case triples > 0 || doubles >= 2:
			c.hyb[i] = sp
		case a.Aromatic || doubles == 1:
			c.hyb[i] = sp2
		default:
			c.hyb[i] = sp3
		}
	}

	c.deltaV = make([]float64, len(m.Atoms))
	c.deltaN = make([]float64, len(m.Atoms))
	for i, a := range m.Atoms {
		e := elements[a.Symbol]
		zv := float64(e.Outer - a.Charge)
		h := float64(a.HCount)
		c.deltaN[i] = zv - h
		if e.Num <= 10 {
			c.deltaV[i] = zv - h
		} else {
			c.deltaV[i] = (zv - h) / float64(e.Num-e.Outer-1)
		}
	}
}

func (c *propertyCalc) heteroNeighbors(i int) int {
	n := 0
	for _, nb := range c.m.Neighbors(i) {
		if c.m.Atoms[nb].Num != 6 && c.m.Atoms[nb].Num != 1 {
			n++
		}
	}
	return n
}

// doubleBondedTo reports whether atom i has a double bond to an atom whose
// atomic number is in nums, optionally restricted to non-ring bonds.
func (c *propertyCalc) doubleBondedTo(i int, acyclicOnly bool, nums ...int) bool {
	for _, bi := range c.m.AtomBonds(i) {
		b := c.m.Bonds[bi]
		if b.Order != BondDouble {
			continue
		}
		if acyclicOnly && c.m.BondInRing(bi) {
			continue
		}
		other := c.m.Atoms[b.Other(i)].Num
		for _, n := range nums {
			if other == n {
				return true
			}
		}
	}
	return false
}

func (c *propertyCalc) explicitValence(i int) int {
	v := c.m.Atoms[i].HCount
	aromatic := false
	for _, bi := range c.m.AtomBonds(i) {
		v += c.m.Bonds[bi].Order.valence()
		if c.m.Bonds[bi].Order == BondAromatic {
			aromatic = true
		}
	}
	if aromatic && c.m.Atoms[i].Aromatic {
		v++
	}
	return v
}

// ─────────────────────────────────────────────────────────────────────────────
// Counts
// ─────────────────────────────────────────────────────────────────────────────

func (c *propertyCalc) counts(p *Properties) {
	m := c.m
	carbons, csp3 := 0, 0
	for i, a := range m.Atoms {
		e := elements[a.Symbol]
		h := float64(a.HCount)
		mono := e.MonoMass
		if a.Isotope > 0 {
			mono = float64(a.Isotope)
		}
		p.ExactMW += mono + h*elements["H"].MonoMass
		p.AMW += e.AvgMass + h*elements["H"].AvgMass
		p.NumAtoms += 1 + h
		if a.Num > 1 {
			p.NumHeavyAtoms++
		}
		if a.Num != 1 && a.Num != 6 {
			p.NumHeteroatoms++
		}

		switch a.Num {
		case 6:
			carbons++
			if c.hyb[i] == sp3 {
				csp3++
			}
		case 7, 8:
			p.LipinskiHBA++
			p.LipinskiHBD += h
		}

		if c.isDonor(i) {
			p.NumHBD++
		}
		if c.isAcceptor(i) {
			p.NumHBA++
		}
	}
	if carbons > 0 {
		p.FractionCSP3 = float64(csp3) / float64(carbons)
	}

	for bi, b := range m.Bonds {
		if c.isAmide(b.Begin, b.End) || c.isAmide(b.End, b.Begin) {
			p.NumAmideBonds++
		}
		if c.isRotatable(bi) {
			p.NumRotatableBonds++
		}
	}
}

func (c *propertyCalc) isDonor(i int) bool {
	a := c.m.Atoms[i]
	if a.HCount == 0 {
		return false
	}
	switch a.Num {
	case 7:
		return true
	case 8, 16:
		return a.Charge == 0
	}
	return false
}

func (c *propertyCalc) isAcceptor(i int) bool {
	a := c.m.Atoms[i]
	switch a.Num {
	case 8:
		return a.Charge <= 0
	case 16:
		return a.Charge <= 0 && c.explicitValence(i) <= 2
	case 9:
		return true
	case 7:
		if a.Charge != 0 {
			return false
		}
		if a.Aromatic {
			return a.HCount == 0 && c.m.Degree(i) == 2
		}
		if c.explicitValence(i) != 3 {
			return false
		}
		for _, nb := range c.m.Neighbors(i) {
			if c.doubleBondedTo(nb, true, 7, 8, 15, 16) {
				return false
			}
		}
		return true
	}
	return false
}

// isAmide reports whether carbon cIdx carries an acyclic C=O and is singly
// bonded to nitrogen nIdx.
func (c *propertyCalc) isAmide(cIdx, nIdx int) bool {
	m := c.m
	if m.Atoms[cIdx].Num != 6 || m.Atoms[nIdx].Num != 7 || m.Atoms[cIdx].Aromatic {
		return false
	}
	bi := m.BondBetween(cIdx, nIdx)
	if bi < 0 || m.Bonds[bi].Order != BondSingle {
		return false
	}
	return c.doubleBondedTo(cIdx, true, 8)
}

func (c *propertyCalc) isRotatable(bi int) bool {
	m := c.m
	b := m.Bonds[bi]
	if b.Order != BondSingle || m.BondInRing(bi) {
		return false
	}
	if m.Degree(b.Begin) < 2 || m.Degree(b.End) < 2 {
		return false
	}
	for _, end := range []int{b.Begin, b.End} {
		for _, x := range m.AtomBonds(end) {
			if m.Bonds[x].Order == BondTriple {
				return false
			}
		}
	}
	return !c.isAmide(b.Begin, b.End) && !c.isAmide(b.End, b.Begin)
}

// ─────────────────────────────────────────────────────────────────────────────
// Rings
// ─────────────────────────────────────────────────────────────────────────────

func (c *propertyCalc) ringCounts(p *Properties) {
	m := c.m
	rings := m.Rings()
	ringBonds := m.RingBonds()
	p.NumRings = float64(len(rings))

	for ri, r := range rings {
		aromatic := true
		hetero := false
		for _, a := range r {
			if !m.Atoms[a].Aromatic {
				aromatic = false
			}
			if m.Atoms[a].Num != 6 {
				hetero = true
			}
		}
		saturated := !aromatic
		for _, bi := range ringBonds[ri] {
			if m.Bonds[bi].Order != BondSingle {
				saturated = false
			}
		}

		if aromatic {
			p.NumAromaticRings++
		} else {
			p.NumAliphaticRings++
		}
		if saturated {
			p.NumSaturatedRings++
		}
		if hetero {
			p.NumHeterocycles++
			switch {
			case aromatic:
				p.NumAromaticHeterocycles++
			default:
				p.NumAliphaticHeterocycles++
				if saturated {
					p.NumSaturatedHeterocycles++
				}
			}
		}
	}

	spiro := map[int]bool{}
	bridge := map[int]bool{}
	for i := 0; i < len(rings); i++ {
		for j := i + 1; j < len(rings); j++ {
			shared := intersect(rings[i], rings[j])
			switch {
			case len(shared) == 1:
				spiro[shared[0]] = true
			case len(shared) > 2:
				in := map[int]bool{}
				for _, a := range shared {
					in[a] = true
				}
				for _, a := range shared {
					inside := 0
					for _, nb := range m.Neighbors(a) {
						if in[nb] {
							inside++
						}
					}
					if inside == 1 {
						bridge[a] = true
					}
				}
			}
		}
	}
	p.NumSpiroAtoms = float64(len(spiro))
	p.NumBridgeheadAtoms = float64(len(bridge))
}

func intersect(a, b []int) []int {
	in := make(map[int]bool, len(a))
	for _, x := range a {
		in[x] = true
	}
	var out []int
	for _, x := range b {
		if in[x] {
			out = append(out, x)
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Stereo
// ─────────────────────────────────────────────────────────────────────────────

func (c *propertyCalc) stereo(p *Properties) {
	m := c.m
	ranks := c.morganRanks(3)
	for i, a := range m.Atoms {
		if a.Chiral != "" {
			p.NumAtomStereoCenters++
			continue
		}
		if a.Num != 6 || c.hyb[i] != sp3 || a.HCount > 1 || m.Degree(i)+a.HCount != 4 {
			continue
		}
		seen := map[uint64]bool{}
		distinct := true
		for _, nb := range m.Neighbors(i) {
			if seen[ranks[nb]] {
				distinct = false
				break
			}
			seen[ranks[nb]] = true
		}
		if distinct {
			p.NumAtomStereoCenters++
			p.NumUnspecifiedAtomStereoCenters++
		}
	}
}

// morganRanks computes iterated neighbourhood invariants; atoms with equal
// values are treated as topologically equivalent.
func (c *propertyCalc) morganRanks(iterations int) []uint64 {
	m := c.m
	inv := make([]uint64, len(m.Atoms))
	for i, a := range m.Atoms {
		h := uint64(a.Num)
		h = h*131 + uint64(m.Degree(i))
		h = h*131 + uint64(a.HCount)
		h = h*131 + uint64(a.Charge+8)
		if a.Aromatic {
			h = h*131 + 1
		}
		inv[i] = h
	}
	for it := 0; it < iterations; it++ {
		next := make([]uint64, len(inv))
		for i := range m.Atoms {
			var nbrs []uint64
			for _, bi := range m.AtomBonds(i) {
				b := m.Bonds[bi]
				nbrs = append(nbrs, inv[b.Other(i)]*7+uint64(b.Order))
			}
			sort.Slice(nbrs, func(x, y int) bool { return nbrs[x] < nbrs[y] })
			h := inv[i]
			for _, n := range nbrs {
				h = h*1000003 ^ n
			}
			next[i] = h
		}
		inv = next
	}
	return inv
}

// ─────────────────────────────────────────────────────────────────────────────
// Surface area and polarity
// ─────────────────────────────────────────────────────────────────────────────

func bondLengthCorrection(o BondOrder) float64 {
	switch o {
	case BondAromatic:
		return 0.1
	case BondDouble:
		return 0.2
	case BondTriple, BondQuadruple:
		return 0.3
	default:
		return 0
	}
}

// labuteASA is Labute's approximate accessible surface area including the
// contribution of implicit hydrogens.
func (c *propertyCalc) labuteASA() float64 {
	m := c.m
	h := elements["H"]
	vs := make([]float64, len(m.Atoms))
	var hContrib float64

	overlap := func(ri, rj, bij float64) (forI, forJ float64) {
		dij := math.Min(math.Max(math.Abs(ri-rj), bij), ri+rj)
		return rj*rj - (ri-dij)*(ri-dij)/dij, ri*ri - (rj-dij)*(rj-dij)/dij
	}

	for _, b := range m.Bonds {
		ei, ej := elements[m.Atoms[b.Begin].Symbol], elements[m.Atoms[b.End].Symbol]
		bij := ei.CovRadius + ej.CovRadius - bondLengthCorrection(b.Order)
		fi, fj := overlap(ei.VdwRadius, ej.VdwRadius, bij)
		vs[b.Begin] += fi
		vs[b.End] += fj
	}
	for i, a := range m.Atoms {
		if a.HCount == 0 {
			continue
		}
		e := elements[a.Symbol]
		fi, fh := overlap(e.VdwRadius, h.VdwRadius, e.CovRadius+h.CovRadius)
		vs[i] += float64(a.HCount) * fi
		hContrib += float64(a.HCount) * (4*math.Pi*h.VdwRadius*h.VdwRadius - math.Pi*h.VdwRadius*fh)
	}

	total := hContrib
	for i, a := range m.Atoms {
		r := elements[a.Symbol].VdwRadius
		total += 4*math.Pi*r*r - math.Pi*r*vs[i]
	}
	return total
}

// bondProfile counts incident bonds by order.
func (c *propertyCalc) bondProfile(i int) (single, double, triple, aromatic int) {
	for _, bi := range c.m.AtomBonds(i) {
		switch c.m.Bonds[bi].Order {
		case BondDouble:
			double++
		case BondTriple, BondQuadruple:
			triple++
		case BondAromatic:
			aromatic++
		default:
			single++
		}
	}
	return
}

// tpsa sums Ertl's nitrogen and oxygen contributions (S and P excluded).
func (c *propertyCalc) tpsa() float64 {
	var total float64
	for i, a := range c.m.Atoms {
		single, double, triple, arom := c.bondProfile(i)
		h := a.HCount
		switch a.Num {
		case 7:
			total += nitrogenPSA(a, single, double, triple, arom, h)
		case 8:
			total += oxygenPSA(a, single, double, arom, h)
		}
	}
	return total
}

func nitrogenPSA(a Atom, single, double, triple, arom, h int) float64 {
	if a.Aromatic || arom > 0 {
		switch {
		case a.Charge > 0:
			return 14.14
		case arom == 2 && h == 1:
			return 15.79
		case arom == 2 && double == 0 && single == 0:
			return 12.89
		case arom == 2 && double == 1:
			return 4.93
		default:
			return 4.41
		}
	}
	if a.Charge > 0 {
		switch {
		case h == 3:
			return 27.64
		case h == 2:
			return 25.59
		case h == 1:
			return 16.61
		case double == 1 && single == 2:
			return 3.01
		default:
			return 0
		}
	}
	switch {
	case triple == 1:
		return 23.79
	case double == 1 && h == 1:
		return 23.85
	case double == 1 && single == 2:
		return 11.68
	case double == 1:
		return 12.36
	case h >= 2:
		return 26.02
	case h == 1:
		return 12.03
	default:
		return 3.24
	}
}

func oxygenPSA(a Atom, single, double, arom, h int) float64 {
	switch {
	case a.Aromatic || arom > 0:
		return 13.14
	case a.Charge < 0:
		return 23.06
	case double == 1:
		return 17.07
	case h >= 1:
		return 20.23
	default:
		return 9.23
	}
}

// crippen returns Wildman-Crippen style logP and molar refractivity using a
// reduced atom typing (element, hybridisation, heteroatom neighbours).
func (c *propertyCalc) crippen() (logP, mr float64) {
	m := c.m
	for i, a := range m.Atoms {
		lp, r := c.heavyCrippen(i)
		logP += lp
		mr += r

		if a.HCount == 0 {
			continue
		}
		hl, hr := c.hydrogenCrippen(i)
		logP += float64(a.HCount) * hl
		mr += float64(a.HCount) * hr
	}
	return logP, mr
}

func (c *propertyCalc) heavyCrippen(i int) (float64, float64) {
	a := c.m.Atoms[i]
	het := c.heteroNeighbors(i)
	switch a.Num {
	case 6:
		switch {
		case a.Aromatic && het > 0:
			return 0.1360, 3.509
		case a.Aromatic:
			return 0.1581, 3.350
		case c.hyb[i] == sp:
			return 0.0, 3.001
		case c.hyb[i] == sp2 && het > 0:
			return -0.1002, 3.197
		case c.hyb[i] == sp2:
			return 0.1360, 3.350
		case het > 0 && c.m.Degree(i) >= 3:
			return -0.2051, 2.731
		case het > 0:
			return -0.2035, 2.753
		case c.m.Degree(i) >= 3:
			return 0.0, 2.433
		default:
			return 0.1441, 2.503
		}
	case 7:
		switch {
		case a.Charge > 0:
			return -1.9500, 2.262
		case a.Aromatic:
			return -0.4806, 2.706
		case c.hyb[i] != sp3:
			return -0.3239, 2.839
		case a.HCount >= 2:
			return -1.0190, 2.262
		case a.HCount == 1:
			return -0.7096, 2.173
		default:
			return -0.3187, 2.827
		}
	case 8:
		switch {
		case a.Aromatic:
			return 0.1552, 1.080
		case a.Charge < 0:
			return -1.3260, 0.000
		case c.hyb[i] == sp2:
			return -0.1526, 0.000
		case a.HCount > 0:
			return -0.2893, 0.8238
		default:
			return -0.0684, 1.080
		}
	case 16:
		if a.Aromatic {
			return 0.6237, 6.691
		}
		if c.explicitValence(i) > 2 {
			return -0.0024, 7.365
		}
		return 0.6482, 7.591
	case 15:
		return 0.8612, 6.920
	case 9:
		return 0.4202, 1.108
	case 17:
		return 0.6895, 5.853
	case 35:
		return 0.8456, 8.927
	case 53:
		return 0.8857, 14.020
	case 1:
		return 0.1230, 1.057
	default:
		return -0.3808, 0.000
	}
}

func (c *propertyCalc) hydrogenCrippen(i int) (float64, float64) {
	a := c.m.Atoms[i]
	switch a.Num {
	case 6:
		return 0.1230, 1.057
	case 7:
		return 0.2142, 1.395
	case 8:
		for _, nb := range c.m.Neighbors(i) {
			if c.doubleBondedTo(nb, false, 8) {
				return 0.2980, 0.8238
			}
		}
		return -0.2677, 1.395
	default:
		return 0.1125, 1.057
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Topological indices
// ─────────────────────────────────────────────────────────────────────────────

// hallKierAlphaFor returns the per-atom Hall-Kier alpha.
func (c *propertyCalc) hallKierAlphaFor(i int) float64 {
	a := c.m.Atoms[i]
	hyb := c.hyb[i]
	pick := func(s3, s2, s1 float64) float64 {
		switch hyb {
		case sp2:
			return s2
		case sp:
			return s1
		default:
			return s3
		}
	}
	switch a.Num {
	case 6:
		return pick(0, -0.13, -0.22)
	case 7:
		return pick(-0.04, -0.20, -0.29)
	case 8:
		return pick(-0.04, -0.20, -0.20)
	case 9:
		return -0.07
	case 15:
		return pick(0.43, 0.30, 0.30)
	case 16:
		return pick(0.35, 0.22, 0.22)
	case 17:
		return 0.29
	case 35:
		return 0.48
	case 53:
		return 0.73
	default:
		return elements[a.Symbol].CovRadius/elements["C"].CovRadius - 1
	}
}

func invSqrt(d float64) float64 {
	if d <= 0 {
		return 0
	}
	return 1 / math.Sqrt(d)
}

// walkPaths calls visit for every directed simple path of exactly k bonds.
func (c *propertyCalc) walkPaths(k int, visit func(path []int)) {
	m := c.m
	path := make([]int, 0, k+1)
	onPath := make([]bool, len(m.Atoms))
	var dfs func(a int)
	dfs = func(a int) {
		path = append(path, a)
		onPath[a] = true
		if len(path) == k+1 {
			visit(path)
		} else {
			for _, nb := range m.Neighbors(a) {
				if !onPath[nb] {
					dfs(nb)
				}
			}
		}
		onPath[a] = false
		path = path[:len(path)-1]
	}
	for start := range m.Atoms {
		dfs(start)
	}
}

func (c *propertyCalc) connectivity(p *Properties) {
	m := c.m
	for k := 0; k <= 4; k++ {
		var sumV, sumN float64
		directed := 0
		c.walkPaths(k, func(path []int) {
			pv, pn := 1.0, 1.0
			for _, a := range path {
				pv *= invSqrt(c.deltaV[a])
				pn *= invSqrt(c.deltaN[a])
			}
			sumV += pv
			sumN += pn
			directed++
		})
		if k == 0 {
			p.ChiV[k], p.ChiN[k] = sumV, sumN
			c.paths[k] = directed
			continue
		}
		// Every undirected path is walked once from each end.
		p.ChiV[k], p.ChiN[k] = sumV/2, sumN/2
		c.paths[k] = directed / 2
	}

	var alpha float64
	for i := range m.Atoms {
		alpha += c.hallKierAlphaFor(i)
	}
	p.HallKierAlpha = alpha

	a := float64(len(m.Atoms)) + alpha
	p1 := float64(c.paths[1]) + alpha
	p2 := float64(c.paths[2]) + alpha
	p3 := float64(c.paths[3]) + alpha

	p.Kappa[0] = safeDiv(a*(a-1)*(a-1), p1*p1)
	p.Kappa[1] = safeDiv((a-1)*(a-2)*(a-2), p2*p2)
	if len(m.Atoms)%2 == 1 {
		p.Kappa[2] = safeDiv((a-1)*(a-3)*(a-3), p3*p3)
	} else {
		p.Kappa[2] = safeDiv((a-3)*(a-2)*(a-2), p3*p3)
	}
	if len(m.Atoms) > 0 {
		p.Phi = p.Kappa[0] * p.Kappa[1] / float64(len(m.Atoms))
	}
}

func safeDiv(num, den float64) float64 {
	if math.Abs(den) < 1e-9 {
		return 0
	}
	return num / den
}
