package descriptor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/turtacn/SeqQuant/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Element table
// ─────────────────────────────────────────────────────────────────────────────

type element struct {
	Num       int
	MonoMass  float64
	AvgMass   float64
	Outer     int   // valence-shell electrons
	Valences  []int // default valences for implicit hydrogens, organic subset only
	Aromatic  bool  // may appear lowercase
	Organic   bool  // may appear outside brackets
	VdwRadius float64
	CovRadius float64
}

var elements = map[string]element{
	"H":  {Num: 1, MonoMass: 1.0078250, AvgMass: 1.008, Outer: 1, VdwRadius: 1.10, CovRadius: 0.23},
	"He": {Num: 2, MonoMass: 4.0026033, AvgMass: 4.003, Outer: 2, VdwRadius: 1.40, CovRadius: 0.28},
	"Li": {Num: 3, MonoMass: 7.0160040, AvgMass: 6.941, Outer: 1, VdwRadius: 1.82, CovRadius: 0.68},
	"Be": {Num: 4, MonoMass: 9.0121822, AvgMass: 9.012, Outer: 2, VdwRadius: 1.53, CovRadius: 0.96},
	"B":  {Num: 5, MonoMass: 11.0093050, AvgMass: 10.812, Outer: 3, Valences: []int{3}, Aromatic: true, Organic: true, VdwRadius: 1.92, CovRadius: 0.82},
	"C":  {Num: 6, MonoMass: 12.0000000, AvgMass: 12.011, Outer: 4, Valences: []int{4}, Aromatic: true, Organic: true, VdwRadius: 1.70, CovRadius: 0.77},
	"N":  {Num: 7, MonoMass: 14.0030740, AvgMass: 14.007, Outer: 5, Valences: []int{3, 5}, Aromatic: true, Organic: true, VdwRadius: 1.55, CovRadius: 0.70},
	"O":  {Num: 8, MonoMass: 15.9949146, AvgMass: 15.999, Outer: 6, Valences: []int{2}, Aromatic: true, Organic: true, VdwRadius: 1.52, CovRadius: 0.66},
	"F":  {Num: 9, MonoMass: 18.9984032, AvgMass: 18.998, Outer: 7, Valences: []int{1}, Organic: true, VdwRadius: 1.47, CovRadius: 0.64},
	"Ne": {Num: 10, MonoMass: 19.9924402, AvgMass: 20.180, Outer: 8, VdwRadius: 1.54, CovRadius: 0.58},
	"Na": {Num: 11, MonoMass: 22.9897693, AvgMass: 22.990, Outer: 1, VdwRadius: 2.27, CovRadius: 0.97},
	"Mg": {Num: 12, MonoMass: 23.9850417, AvgMass: 24.305, Outer: 2, VdwRadius: 1.73, CovRadius: 1.10},
	"Al": {Num: 13, MonoMass: 26.9815385, AvgMass: 26.982, Outer: 3, VdwRadius: 1.84, CovRadius: 1.21},
	"Si": {Num: 14, MonoMass: 27.9769265, AvgMass: 28.086, Outer: 4, VdwRadius: 2.10, CovRadius: 1.17},
	"P":  {Num: 15, MonoMass: 30.9737615, AvgMass: 30.974, Outer: 5, Valences: []int{3, 5}, Aromatic: true, Organic: true, VdwRadius: 1.80, CovRadius: 1.10},
	"S":  {Num: 16, MonoMass: 31.9720707, AvgMass: 32.067, Outer: 6, Valences: []int{2, 4, 6}, Aromatic: true, Organic: true, VdwRadius: 1.80, CovRadius: 1.04},
	"Cl": {Num: 17, MonoMass: 34.9688527, AvgMass: 35.453, Outer: 7, Valences: []int{1}, Organic: true, VdwRadius: 1.75, CovRadius: 0.99},
	"Ar": {Num: 18, MonoMass: 39.9623831, AvgMass: 39.948, Outer: 8, VdwRadius: 1.88, CovRadius: 1.06},
	"K":  {Num: 19, MonoMass: 38.9637069, AvgMass: 39.098, Outer: 1, VdwRadius: 2.75, CovRadius: 1.33},
	"Ca": {Num: 20, MonoMass: 39.9625912, AvgMass: 40.078, Outer: 2, VdwRadius: 2.31, CovRadius: 0.99},
	"Sc": {Num: 21, MonoMass: 44.9559083, AvgMass: 44.956, Outer: 2, VdwRadius: 2.11, CovRadius: 1.70},
	"Ti": {Num: 22, MonoMass: 47.9479409, AvgMass: 47.867, Outer: 2, VdwRadius: 2.00, CovRadius: 1.60},
	"V":  {Num: 23, MonoMass: 50.9439570, AvgMass: 50.942, Outer: 2, VdwRadius: 2.00, CovRadius: 1.53},
	"Cr": {Num: 24, MonoMass: 51.9405062, AvgMass: 51.996, Outer: 1, VdwRadius: 2.00, CovRadius: 1.39},
	"Mn": {Num: 25, MonoMass: 54.9380439, AvgMass: 54.938, Outer: 2, VdwRadius: 2.00, CovRadius: 1.39},
	"Fe": {Num: 26, MonoMass: 55.9349421, AvgMass: 55.845, Outer: 2, VdwRadius: 2.00, CovRadius: 1.34},
	"Co": {Num: 27, MonoMass: 58.9331943, AvgMass: 58.933, Outer: 2, VdwRadius: 2.00, CovRadius: 1.26},
	"Ni": {Num: 28, MonoMass: 57.9353429, AvgMass: 58.693, Outer: 2, VdwRadius: 1.63, CovRadius: 1.24},
	"Cu": {Num: 29, MonoMass: 62.9296011, AvgMass: 63.546, Outer: 1, VdwRadius: 1.40, CovRadius: 1.52},
	"Zn": {Num: 30, MonoMass: 63.9291466, AvgMass: 65.380, Outer: 2, VdwRadius: 1.39, CovRadius: 1.45},
	"Ga": {Num: 31, MonoMass: 68.9255735, AvgMass: 69.723, Outer: 3, VdwRadius: 1.87, CovRadius: 1.22},
	"Ge": {Num: 32, MonoMass: 73.9211778, AvgMass: 72.630, Outer: 4, VdwRadius: 2.11, CovRadius: 1.20},
	"As": {Num: 33, MonoMass: 74.9215964, AvgMass: 74.922, Outer: 5, Aromatic: true, VdwRadius: 1.85, CovRadius: 1.21},
	"Se": {Num: 34, MonoMass: 79.9165218, AvgMass: 78.971, Outer: 6, Aromatic: true, VdwRadius: 1.90, CovRadius: 1.22},
	"Br": {Num: 35, MonoMass: 78.9183376, AvgMass: 79.904, Outer: 7, Valences: []int{1}, Organic: true, VdwRadius: 1.85, CovRadius: 1.14},
	"Kr": {Num: 36, MonoMass: 83.9114977, AvgMass: 83.798, Outer: 8, VdwRadius: 2.02, CovRadius: 1.16},
	"Rb": {Num: 37, MonoMass: 84.9117897, AvgMass: 85.468, Outer: 1, VdwRadius: 3.03, CovRadius: 2.20},
	"Sr": {Num: 38, MonoMass: 87.9056125, AvgMass: 87.620, Outer: 2, VdwRadius: 2.49, CovRadius: 1.95},
	"Y":  {Num: 39, MonoMass: 88.9058403, AvgMass: 88.906, Outer: 2, VdwRadius: 2.00, CovRadius: 1.90},
	"Zr": {Num: 40, MonoMass: 89.9046977, AvgMass: 91.224, Outer: 2, VdwRadius: 2.00, CovRadius: 1.75},
	"Nb": {Num: 41, MonoMass: 92.9063730, AvgMass: 92.906, Outer: 1, VdwRadius: 2.00, CovRadius: 1.64},
	"Mo": {Num: 42, MonoMass: 97.9054048, AvgMass: 95.950, Outer: 1, VdwRadius: 2.00, CovRadius: 1.54},
	"Tc": {Num: 43, MonoMass: 97.9072124, AvgMass: 98.000, Outer: 2, VdwRadius: 2.00, CovRadius: 1.47},
	"Ru": {Num: 44, MonoMass: 101.9043441, AvgMass: 101.070, Outer: 1, VdwRadius: 2.00, CovRadius: 1.46},
	"Rh": {Num: 45, MonoMass: 102.9054980, AvgMass: 102.906, Outer: 1, VdwRadius: 2.00, CovRadius: 1.42},
	"Pd": {Num: 46, MonoMass: 105.9034804, AvgMass: 106.420, Outer: 2, VdwRadius: 1.63, CovRadius: 1.39},
	"Ag": {Num: 47, MonoMass: 106.9050916, AvgMass: 107.868, Outer: 1, VdwRadius: 1.72, CovRadius: 1.45},
	"Cd": {Num: 48, MonoMass: 113.9033585, AvgMass: 112.414, Outer: 2, VdwRadius: 1.58, CovRadius: 1.44},
	"In": {Num: 49, MonoMass: 114.9038788, AvgMass: 114.818, Outer: 3, VdwRadius: 1.93, CovRadius: 1.42},
	"Sn": {Num: 50, MonoMass: 119.9021966, AvgMass: 118.710, Outer: 4, VdwRadius: 2.17, CovRadius: 1.39},
	"Sb": {Num: 51, MonoMass: 120.9038157, AvgMass: 121.760, Outer: 5, VdwRadius: 2.06, CovRadius: 1.39},
	"Te": {Num: 52, MonoMass: 129.9062244, AvgMass: 127.600, Outer: 6, Aromatic: true, VdwRadius: 2.06, CovRadius: 1.47},
	"I":  {Num: 53, MonoMass: 126.9044680, AvgMass: 126.904, Outer: 7, Valences: []int{1}, Organic: true, VdwRadius: 1.98, CovRadius: 1.33},
	"Xe": {Num: 54, MonoMass: 131.9041535, AvgMass: 131.293, Outer: 8, VdwRadius: 2.16, CovRadius: 1.40},
	"Cs": {Num: 55, MonoMass: 132.9054519, AvgMass: 132.905, Outer: 1, VdwRadius: 3.43, CovRadius: 2.44},
	"Ba": {Num: 56, MonoMass: 137.9052472, AvgMass: 137.327, Outer: 2, VdwRadius: 2.68, CovRadius: 2.15},
	"Gd": {Num: 64, MonoMass: 157.9241039, AvgMass: 157.250, Outer: 2, VdwRadius: 2.00, CovRadius: 1.96},
	"W":  {Num: 74, MonoMass: 183.9509312, AvgMass: 183.840, Outer: 2, VdwRadius: 2.00, CovRadius: 1.62},
	"Pt": {Num: 78, MonoMass: 194.9647911, AvgMass: 195.084, Outer: 1, VdwRadius: 1.75, CovRadius: 1.36},
	"Au": {Num: 79, MonoMass: 196.9665688, AvgMass: 196.967, Outer: 1, VdwRadius: 1.66, CovRadius: 1.36},
	"Hg": {Num: 80, MonoMass: 201.9706430, AvgMass: 200.592, Outer: 2, VdwRadius: 1.55, CovRadius: 1.32},
	"Tl": {Num: 81, MonoMass: 204.9744275, AvgMass: 204.383, Outer: 3, VdwRadius: 1.96, CovRadius: 1.45},
	"Pb": {Num: 82, MonoMass: 207.9766521, AvgMass: 207.200, Outer: 4, VdwRadius: 2.02, CovRadius: 1.46},
	"Bi": {Num: 83, MonoMass: 208.9803987, AvgMass: 208.980, Outer: 5, VdwRadius: 2.07, CovRadius: 1.48},
}

// ─────────────────────────────────────────────────────────────────────────────
// Molecular graph
// ─────────────────────────────────────────────────────────────────────────────

// BondOrder is the SMILES bond type.
type BondOrder int

const (
	BondSingle BondOrder = iota + 1
	BondDouble
	BondTriple
	BondQuadruple
	BondAromatic
)

// valence is the bond's contribution to explicit valence. Aromatic bonds
// count as one; aromatic atoms receive the extra electron separately.
func (o BondOrder) valence() int {
	switch o {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	case BondQuadruple:
		return 4
	default:
		return 1
	}
}

// Atom is one parsed atom. HCount includes implicit, bracket and merged
// explicit hydrogens.
type Atom struct {
	Symbol   string
	Num      int
	Aromatic bool
	Bracket  bool
	Isotope  int
	Charge   int
	Chiral   string
	HCount   int
}

// Bond joins atoms Begin and End.
type Bond struct {
	Begin, End int
	Order      BondOrder
}

// Other returns the atom at the other end of b.
func (b Bond) Other(atom int) int {
	if b.Begin == atom {
		return b.End
	}
	return b.Begin
}

// Molecule is a hydrogen-suppressed molecular graph.
type Molecule struct {
	SMILES string
	Atoms  []Atom
	Bonds  []Bond

	atomBonds [][]int
	rings     [][]int
	ringBonds [][]int
	perceived bool
}

// AtomBonds returns the indices of bonds incident to atom i.
func (m *Molecule) AtomBonds(i int) []int { return m.atomBonds[i] }

// Degree returns the number of heavy-atom neighbours of atom i.
func (m *Molecule) Degree(i int) int { return len(m.atomBonds[i]) }

// Neighbors returns the atoms bonded to atom i.
func (m *Molecule) Neighbors(i int) []int {
	out := make([]int, 0, len(m.atomBonds[i]))
	for _, b := range m.atomBonds[i] {
		out = append(out, m.Bonds[b].Other(i))
	}
	return out
}

// BondBetween returns the index of the bond joining a and b, or -1.
func (m *Molecule) BondBetween(a, b int) int {
	for _, bi := range m.atomBonds[a] {
		if m.Bonds[bi].Other(a) == b {
			return bi
		}
	}
	return -1
}

func (m *Molecule) index() {
	m.atomBonds = make([][]int, len(m.Atoms))
	for i, b := range m.Bonds {
		m.atomBonds[b.Begin] = append(m.atomBonds[b.Begin], i)
		m.atomBonds[b.End] = append(m.atomBonds[b.End], i)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Parser
// ─────────────────────────────────────────────────────────────────────────────

type ringOpening struct {
	atom     int
	order    BondOrder
	hasOrder bool
}

type smilesParser struct {
	src   string
	pos   int
	mol   *Molecule
	prev  int
	order BondOrder
	// hasOrder is set while an explicit bond symbol waits for its second atom.
	hasOrder bool
	branches []int
	rings    map[int]ringOpening
}

// ParseSMILES parses a SMILES string into a hydrogen-suppressed Molecule.
// Unparseable input yields an AppError with ErrCodeMalformedStructure.
func ParseSMILES(smiles string) (*Molecule, error) {
	s := strings.TrimSpace(smiles)
	if s == "" {
		return nil, malformed(smiles, "empty structure")
	}
	p := &smilesParser{
		src:   s,
		mol:   &Molecule{SMILES: s},
		prev:  -1,
		rings: make(map[int]ringOpening),
	}
	if err := p.parse(); err != nil {
		return nil, malformed(smiles, err.Error())
	}
	p.mol.mergeExplicitHydrogens()
	p.mol.index()
	p.mol.assignImplicitHydrogens()
	return p.mol, nil
}

func malformed(smiles, reason string) error {
	return errors.New(errors.ErrCodeMalformedStructure, "malformed chemical structure").
		WithDetail(fmt.Sprintf("%q: %s", smiles, reason))
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		switch {
		case ch == '(':
			if p.prev < 0 {
				return fmt.Errorf("branch without a preceding atom at position %d", p.pos)
			}
			p.branches = append(p.branches, p.prev)
			p.pos++

		case ch == ')':
			if len(p.branches) == 0 {
				return fmt.Errorf("unbalanced ')' at position %d", p.pos)
			}
			if p.hasOrder {
				return fmt.Errorf("dangling bond before ')' at position %d", p.pos)
			}
			p.prev = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++

		case strings.IndexByte(`-=#$:/\`, ch) >= 0:
			if p.prev < 0 {
				return fmt.Errorf("bond without a preceding atom at position %d", p.pos)
			}
			if p.hasOrder {
				return fmt.Errorf("consecutive bond symbols at position %d", p.pos)
			}
			p.order = bondSymbol(ch)
			p.hasOrder = true
			p.pos++

		case ch == '.':
			if p.prev < 0 || p.hasOrder {
				return fmt.Errorf("misplaced '.' at position %d", p.pos)
			}
			p.prev = -1
			p.pos++

		case ch == '%' || (ch >= '0' && ch <= '9'):
			if err := p.ringClosure(); err != nil {
				return err
			}

		case ch == '[':
			end := strings.IndexByte(p.src[p.pos:], ']')
			if end < 0 {
				return fmt.Errorf("unclosed bracket atom at position %d", p.pos)
			}
			atom, err := parseBracketAtom(p.src[p.pos+1 : p.pos+end])
			if err != nil {
				return fmt.Errorf("bracket atom at position %d: %w", p.pos, err)
			}
			p.addAtom(atom)
			p.pos += end + 1

		default:
			atom, n, err := parseOrganicAtom(p.src, p.pos)
			if err != nil {
				return err
			}
			p.addAtom(atom)
			p.pos += n
		}
	}

	switch {
	case len(p.branches) > 0:
		return fmt.Errorf("unbalanced '('")
	case len(p.rings) > 0:
		return fmt.Errorf("unclosed ring bond")
	case p.hasOrder:
		return fmt.Errorf("dangling bond at end of input")
	case len(p.mol.Atoms) == 0:
		return fmt.Errorf("no atoms")
	}
	return nil
}

func bondSymbol(ch byte) BondOrder {
	switch ch {
	case '=':
		return BondDouble
	case '#':
		return BondTriple
	case '$':
		return BondQuadruple
	case ':':
		return BondAromatic
	default:
		return BondSingle
	}
}

func (p *smilesParser) defaultOrder(a, b int) BondOrder {
	if p.mol.Atoms[a].Aromatic && p.mol.Atoms[b].Aromatic {
		return BondAromatic
	}
	return BondSingle
}

func (p *smilesParser) addAtom(atom Atom) {
	idx := len(p.mol.Atoms)
	p.mol.Atoms = append(p.mol.Atoms, atom)
	if p.prev >= 0 {
		order := p.order
		if !p.hasOrder {
			order = p.defaultOrder(p.prev, idx)
		}
		p.mol.Bonds = append(p.mol.Bonds, Bond{Begin: p.prev, End: idx, Order: order})
	}
	p.hasOrder = false
	p.prev = idx
}

func (p *smilesParser) ringClosure() error {
	if p.prev < 0 {
		return fmt.Errorf("ring bond without a preceding atom at position %d", p.pos)
	}
	var num int
	if p.src[p.pos] == '%' {
		if p.pos+2 >= len(p.src) {
			return fmt.Errorf("truncated ring number at position %d", p.pos)
		}
		n, err := strconv.Atoi(p.src[p.pos+1 : p.pos+3])
		if err != nil {
			return fmt.Errorf("bad ring number at position %d", p.pos)
		}
		num = n
		p.pos += 3
	} else {
		num = int(p.src[p.pos] - '0')
		p.pos++
	}

	open, ok := p.rings[num]
	if !ok {
		p.rings[num] = ringOpening{atom: p.prev, order: p.order, hasOrder: p.hasOrder}
		p.hasOrder = false
		return nil
	}
	delete(p.rings, num)

	if open.atom == p.prev {
		return fmt.Errorf("ring bond %d closes on its own atom", num)
	}
	if p.mol.bondExists(open.atom, p.prev) {
		return fmt.Errorf("ring bond %d duplicates an existing bond", num)
	}
	order := p.defaultOrder(open.atom, p.prev)
	switch {
	case open.hasOrder && p.hasOrder && open.order != p.order:
		return fmt.Errorf("conflicting bond orders on ring bond %d", num)
	case p.hasOrder:
		order = p.order
	case open.hasOrder:
		order = open.order
	}
	p.mol.Bonds = append(p.mol.Bonds, Bond{Begin: open.atom, End: p.prev, Order: order})
	p.hasOrder = false
	return nil
}

func (m *Molecule) bondExists(a, b int) bool {
	for _, bond := range m.Bonds {
		if (bond.Begin == a && bond.End == b) || (bond.Begin == b && bond.End == a) {
			return true
		}
	}
	return false
}

// parseOrganicAtom reads an organic-subset atom starting at i and returns the
// atom and the number of bytes consumed.
func parseOrganicAtom(s string, i int) (Atom, int, error) {
	if i+1 < len(s) {
		two := s[i : i+2]
		if two == "Cl" || two == "Br" {
			e := elements[two]
			return Atom{Symbol: two, Num: e.Num}, 2, nil
		}
	}
	ch := s[i]
	sym := string(ch)
	aromatic := false
	if ch >= 'a' && ch <= 'z' {
		aromatic = true
		sym = strings.ToUpper(sym)
	}
	e, ok := elements[sym]
	if !ok || !e.Organic || (aromatic && !e.Aromatic) {
		return Atom{}, 0, fmt.Errorf("unexpected character %q at position %d", ch, i)
	}
	return Atom{Symbol: sym, Num: e.Num, Aromatic: aromatic}, 1, nil
}

// parseBracketAtom parses the content of [...]:
// isotope? symbol chiral? hcount? charge? class?
func parseBracketAtom(content string) (Atom, error) {
	atom := Atom{Bracket: true}
	i := 0

	for i < len(content) && content[i] >= '0' && content[i] <= '9' {
		atom.Isotope = atom.Isotope*10 + int(content[i]-'0')
		i++
	}

	if i >= len(content) {
		return atom, fmt.Errorf("missing element symbol")
	}
	ch := content[i]
	switch {
	case ch >= 'A' && ch <= 'Z':
		sym := string(ch)
		if i+1 < len(content) && content[i+1] >= 'a' && content[i+1] <= 'z' {
			if _, ok := elements[content[i:i+2]]; ok {
				sym = content[i : i+2]
			}
		}
		atom.Symbol = sym
		i += len(sym)
	case ch >= 'a' && ch <= 'z':
		atom.Aromatic = true
		if i+1 < len(content) && (content[i:i+2] == "se" || content[i:i+2] == "as" || content[i:i+2] == "te") {
			atom.Symbol = strings.ToUpper(content[i:i+1]) + content[i+1:i+2]
			i += 2
		} else {
			atom.Symbol = strings.ToUpper(string(ch))
			i++
		}
	default:
		return atom, fmt.Errorf("unexpected %q in bracket atom", ch)
	}
	e, ok := elements[atom.Symbol]
	if !ok || (atom.Aromatic && !e.Aromatic) {
		return atom, fmt.Errorf("unknown element %q", atom.Symbol)
	}
	atom.Num = e.Num

	if i < len(content) && content[i] == '@' {
		atom.Chiral = "@"
		i++
		if i < len(content) && content[i] == '@' {
			atom.Chiral = "@@"
			i++
		}
	}

	if i < len(content) && content[i] == 'H' {
		atom.HCount = 1
		i++
		if i < len(content) && content[i] >= '0' && content[i] <= '9' {
			atom.HCount = int(content[i] - '0')
			i++
		}
	}

	if i < len(content) && (content[i] == '+' || content[i] == '-') {
		sign := 1
		if content[i] == '-' {
			sign = -1
		}
		sym := content[i]
		i++
		charge := 1
		switch {
		case i < len(content) && content[i] >= '0' && content[i] <= '9':
			charge = int(content[i] - '0')
			i++
		default:
			for i < len(content) && content[i] == sym {
				charge++
				i++
			}
		}
		atom.Charge = sign * charge
	}

	if i < len(content) && content[i] == ':' {
		i++
		start := i
		for i < len(content) && content[i] >= '0' && content[i] <= '9' {
			i++
		}
		if i == start {
			return atom, fmt.Errorf("empty atom class")
		}
	}

	if i != len(content) {
		return atom, fmt.Errorf("unexpected %q in bracket atom", content[i:])
	}
	return atom, nil
}

// mergeExplicitHydrogens folds [H] atoms bonded to exactly one heavy atom
// into that atom's hydrogen count.
func (m *Molecule) mergeExplicitHydrogens() {
	drop := make(map[int]int)
	for i, a := range m.Atoms {
		if a.Num != 1 || a.Isotope != 0 || a.Charge != 0 {
			continue
		}
		var bonds []Bond
		for _, b := range m.Bonds {
			if b.Begin == i || b.End == i {
				bonds = append(bonds, b)
			}
		}
		if len(bonds) != 1 || bonds[0].Order != BondSingle {
			continue
		}
		heavy := bonds[0].Other(i)
		if m.Atoms[heavy].Num == 1 {
			continue
		}
		drop[i] = heavy
	}
	if len(drop) == 0 {
		return
	}
	for _, heavy := range drop {
		m.Atoms[heavy].HCount++
	}

	remap := make([]int, len(m.Atoms))
	atoms := make([]Atom, 0, len(m.Atoms)-len(drop))
	for i, a := range m.Atoms {
		if _, gone := drop[i]; gone {
			remap[i] = -1
			continue
		}
		remap[i] = len(atoms)
		atoms = append(atoms, a)
	}
	bonds := make([]Bond, 0, len(m.Bonds))
	for _, b := range m.Bonds {
		if remap[b.Begin] < 0 || remap[b.End] < 0 {
			continue
		}
		bonds = append(bonds, Bond{Begin: remap[b.Begin], End: remap[b.End], Order: b.Order})
	}
	m.Atoms, m.Bonds = atoms, bonds
}

// assignImplicitHydrogens applies the default-valence model to organic-subset
// atoms. Bracket atoms keep their explicit count.
func (m *Molecule) assignImplicitHydrogens() {
	for i := range m.Atoms {
		a := &m.Atoms[i]
		if a.Bracket {
			continue
		}
		// merged [H] neighbours already occupy valence
		used := a.HCount
		aromaticBond := false
		for _, bi := range m.atomBonds[i] {
			used += m.Bonds[bi].Order.valence()
			if m.Bonds[bi].Order == BondAromatic {
				aromaticBond = true
			}
		}
		if a.Aromatic && aromaticBond {
			used++
		}
		valences := elements[a.Symbol].Valences
		if a.Aromatic && len(valences) > 1 {
			valences = valences[:1]
		}
		a.HCount += implicitHydrogens(valences, used)
	}
}

func implicitHydrogens(valences []int, used int) int {
	for _, v := range valences {
		if v >= used {
			return v - used
		}
	}
	return 0
}
