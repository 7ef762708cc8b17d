package catalog

// aminoAcids maps one-letter codes to L-amino acid structures.
var aminoAcids = map[string]string{
	"A": "C[C@@H](C(=O)O)N",
	"R": "C(C[C@@H](C(=O)O)N)CN=C(N)N",
	"N": "C([C@@H](C(=O)O)N)C(=O)N",
	"D": "C([C@@H](C(=O)O)N)C(=O)O",
	"C": "C([C@@H](C(=O)O)N)S",
	"Q": "C(CC(=O)N)[C@@H](C(=O)O)N",
	"E": "C(CC(=O)O)[C@@H](C(=O)O)N",
	"G": "C(C(=O)O)N",
	"H": "c1c(nc[nH]1)C[C@@H](C(=O)O)N",
	"I": "CC[C@H](C)[C@@H](C(=O)O)N",
	"L": "CC(C)C[C@@H](C(=O)O)N",
	"K": "C(CCN)C[C@@H](C(=O)O)N",
	"M": "CSCC[C@@H](C(=O)O)N",
	"F": "c1ccc(cc1)C[C@@H](C(=O)O)N",
	"P": "C1C[C@H](NC1)C(=O)O",
	"S": "C([C@@H](C(=O)O)N)O",
	"T": "C[C@H]([C@@H](C(=O)O)N)O",
	"W": "c1ccc2c(c1)c(c[nH]2)C[C@@H](C(=O)O)N",
	"Y": "c1cc(ccc1C[C@@H](C(=O)O)N)O",
	"V": "CC(C)[C@@H](C(=O)O)N",
}

// deoxyribonucleotides maps DNA bases to their 5'-monophosphates.
var deoxyribonucleotides = map[string]string{
	"A": "Nc1ncnc2c1ncn2[C@H]1C[C@H](O)[C@@H](COP(=O)(O)O)O1",
	"C": "Nc1ccn([C@H]2C[C@H](O)[C@@H](COP(=O)(O)O)O2)c(=O)n1",
	"G": "Nc1nc2c(ncn2[C@H]2C[C@H](O)[C@@H](COP(=O)(O)O)O2)c(=O)[nH]1",
	"T": "Cc1cn([C@H]2C[C@H](O)[C@@H](COP(=O)(O)O)O2)c(=O)[nH]c1=O",
}

// ribonucleotides maps RNA bases to their 5'-monophosphates.
var ribonucleotides = map[string]string{
	"A": "Nc1ncnc2c1ncn2[C@@H]1O[C@H](COP(=O)(O)O)[C@@H](O)[C@H]1O",
	"C": "Nc1ccn([C@@H]2O[C@H](COP(=O)(O)O)[C@@H](O)[C@H]2O)c(=O)n1",
	"G": "Nc1nc2c(ncn2[C@@H]2O[C@H](COP(=O)(O)O)[C@@H](O)[C@H]2O)c(=O)[nH]1",
	"U": "O=c1ccn([C@@H]2O[C@H](COP(=O)(O)O)[C@@H](O)[C@H]2O)c(=O)[nH]1",
}

// peptideScale is one per-residue property appended to the protein table.
type peptideScale struct {
	name   string
	values map[string]float64
}

var peptideScales = []peptideScale{
	{
		name: "kyte_doolittle_hydropathy",
		values: map[string]float64{
			"A": 1.8, "R": -4.5, "N": -3.5, "D": -3.5, "C": 2.5,
			"Q": -3.5, "E": -3.5, "G": -0.4, "H": -3.2, "I": 4.5,
			"L": 3.8, "K": -3.9, "M": 1.9, "F": 2.8, "P": -1.6,
			"S": -0.8, "T": -0.7, "W": -0.9, "Y": -1.3, "V": 4.2,
		},
	},
	{
		name: "isoelectric_point",
		values: map[string]float64{
			"A": 6.00, "R": 10.76, "N": 5.41, "D": 2.77, "C": 5.07,
			"Q": 5.65, "E": 3.22, "G": 5.97, "H": 7.59, "I": 6.02,
			"L": 5.98, "K": 9.74, "M": 5.74, "F": 5.48, "P": 6.30,
			"S": 5.68, "T": 5.60, "W": 5.89, "Y": 5.66, "V": 5.96,
		},
	},
	{
		name: "side_chain_charge_ph7",
		values: map[string]float64{
			"A": 0, "R": 1, "N": 0, "D": -1, "C": 0,
			"Q": 0, "E": -1, "G": 0, "H": 0.1, "I": 0,
			"L": 0, "K": 1, "M": 0, "F": 0, "P": 0,
			"S": 0, "T": 0, "W": 0, "Y": 0, "V": 0,
		},
	},
}
