package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/SeqQuant/internal/application/encoding"
	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SeqQuant/pkg/client"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// vectorPreview is how many components the table view shows per vector.
const vectorPreview = 4

// NewEncodeCmd creates the encode command.
func NewEncodeCmd() *cobra.Command {
	var (
		polymerType string
		strategy    string
		skip        bool
		sequences   string
		monomers    []string
	)

	cmd := &cobra.Command{
		Use:   "encode [SEQUENCE...]",
		Short: "Encode sequences into latent vectors",
		Long: "Encode protein, DNA or RNA sequences into latent vectors.\n\n" +
			"Sequences come from positional arguments and from --sequences, a comma\n" +
			"separated list. Custom monomers are given as --monomer NAME=SMILES.",
		Example: "  seqquant encode ACDEF KLMNP\n" +
			"  seqquant encode --polymer-type DNA --strategy aptamer --monomer X='C(=O)O' ACGX",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			defer cliCtx.Close()

			seqs := collectSequences(args, sequences)
			if len(seqs) == 0 {
				return errors.New(errors.ErrCodeValidation, "no sequences given")
			}
			extra, err := parseMonomerFlags(monomers)
			if err != nil {
				return err
			}

			ctx, cancel := cliCtx.WithTimeout(cmd.Context())
			defer cancel()
			backend, err := cliCtx.Backend(ctx)
			if err != nil {
				return err
			}

			cliCtx.Logger.Debug("encoding sequences",
				logging.Int("count", len(seqs)),
				logging.String("polymer_type", polymerType),
				logging.String("strategy", strategy))
			res, err := backend.Encode(ctx, seqs, client.EncodeOptions{
				PolymerType:      polymerType,
				EncodingStrategy: strategy,
				Strict:           !skip,
				Monomers:         extra,
			})
			if err != nil {
				return err
			}
			if dropped := len(seqs) - res.Len(); dropped > 0 && cliCtx.OutputFormat != OutputJSON {
				fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("%d of %d sequences were unprocessable and skipped", dropped, len(seqs)))
			}
			return PrintResult(cmd, latentsView{res})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&polymerType, "polymer-type", "p", "protein", "polymer type: protein, DNA, RNA, protein_for_aptamer")
	f.StringVarP(&strategy, "strategy", "s", "protein", "encoding strategy: protein or aptamer")
	f.BoolVar(&skip, "skip-unprocessable", true, "drop unprocessable sequences instead of failing")
	f.StringVar(&sequences, "sequences", "", "comma separated sequences")
	f.StringArrayVarP(&monomers, "monomer", "m", nil, "custom monomer NAME=SMILES (repeatable)")
	return cmd
}

// NewMonomersCmd creates the monomers command.
func NewMonomersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monomers POLYMER_TYPE",
		Short: "List the known monomer symbols of a polymer type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			defer cliCtx.Close()

			ctx, cancel := cliCtx.WithTimeout(cmd.Context())
			defer cancel()
			backend, err := cliCtx.Backend(ctx)
			if err != nil {
				return err
			}
			symbols, err := backend.Monomers(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, monomersView(symbols))
		},
	}
}

// NewInfoCmd creates the info command.
func NewInfoCmd() *cobra.Command {
	var monomers []string

	cmd := &cobra.Command{
		Use:   "info POLYMER_TYPE",
		Short: "Show kernel limits and the monomer vocabulary",
		Long: "Show the maximum sequence length, the descriptor count and the known\n" +
			"monomers of a polymer type, optionally after registering custom monomers.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			defer cliCtx.Close()

			extra, err := parseMonomerFlags(monomers)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.WithTimeout(cmd.Context())
			defer cancel()
			backend, err := cliCtx.Backend(ctx)
			if err != nil {
				return err
			}
			info, err := backend.KernelInfo(ctx, args[0], extra)
			if err != nil {
				return err
			}
			return PrintResult(cmd, kernelInfoView{info})
		},
	}
	cmd.Flags().StringArrayVarP(&monomers, "monomer", "m", nil, "custom monomer NAME=SMILES (repeatable)")
	return cmd
}

// NewDescriptorsCmd creates the descriptors command.
func NewDescriptorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "descriptors SMILES",
		Short: "Print the raw and scaled descriptors of a structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			defer cliCtx.Close()

			ctx, cancel := cliCtx.WithTimeout(cmd.Context())
			defer cancel()
			backend, err := cliCtx.Backend(ctx)
			if err != nil {
				return err
			}
			rep, err := backend.Descriptors(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, descriptorsView{rep})
		},
	}
}

func collectSequences(args []string, list string) []string {
	var out []string
	for _, a := range args {
		out = append(out, encoding.SplitSequences(a)...)
	}
	return append(out, encoding.SplitSequences(list)...)
}

// parseMonomerFlags splits NAME=SMILES pairs on the first '='.
func parseMonomerFlags(values []string) ([]client.Monomer, error) {
	out := make([]client.Monomer, 0, len(values))
	for _, v := range values {
		name, smiles, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		smiles = strings.TrimSpace(smiles)
		if !ok || name == "" || smiles == "" {
			return nil, errors.New(errors.ErrCodeValidation, "monomer must be NAME=SMILES").WithDetail(v)
		}
		out = append(out, client.Monomer{Name: name, SMILES: smiles})
	}
	return out, nil
}

func formatVector(v []float32, limit int) string {
	n := len(v)
	if limit > 0 && n > limit {
		n = limit
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = strconv.FormatFloat(float64(v[i]), 'g', 6, 32)
	}
	s := strings.Join(parts, ", ")
	if n < len(v) {
		s += ", ..."
	}
	return "[" + s + "]"
}

type latentsView struct {
	*client.Latents
}

func (v latentsView) TableHeaders() []string { return []string{"SEQUENCE", "DIM", "VECTOR"} }

func (v latentsView) TableRows() [][]string {
	rows := make([][]string, 0, v.Len())
	for _, seq := range v.Sequences {
		vec := v.Vectors[seq]
		rows = append(rows, []string{truncateString(seq, 40), strconv.Itoa(len(vec)), formatVector(vec, vectorPreview)})
	}
	return rows
}

func (v latentsView) String() string {
	var sb strings.Builder
	for i, seq := range v.Sequences {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(seq)
		sb.WriteString("\t")
		sb.WriteString(formatVector(v.Vectors[seq], 0))
	}
	return sb.String()
}

type monomersView []string

func (v monomersView) TableHeaders() []string { return []string{"#", "MONOMER"} }

func (v monomersView) TableRows() [][]string {
	rows := make([][]string, len(v))
	for i, s := range v {
		rows[i] = []string{strconv.Itoa(i + 1), s}
	}
	return rows
}

func (v monomersView) String() string { return strings.Join(v, " ") }

type kernelInfoView struct {
	*client.KernelInfo
}

func (v kernelInfoView) TableHeaders() []string { return []string{"FIELD", "VALUE"} }

func (v kernelInfoView) TableRows() [][]string {
	return [][]string{
		{"polymer_type", v.PolymerType},
		{"max_sequence_length", strconv.Itoa(v.MaxSequenceLength)},
		{"num_of_descriptors", strconv.Itoa(v.NumOfDescriptors)},
		{"known_monomers", strconv.Itoa(len(v.KnownMonomers))},
	}
}

func (v kernelInfoView) String() string {
	return fmt.Sprintf("polymer type:        %s\nmax sequence length: %d\ndescriptors:         %d\nmonomers (%d):       %s",
		v.PolymerType, v.MaxSequenceLength, v.NumOfDescriptors, len(v.KnownMonomers), strings.Join(v.KnownMonomers, " "))
}

type descriptorsView struct {
	*client.DescriptorReport
}

func (v descriptorsView) TableHeaders() []string { return []string{"DESCRIPTOR", "RAW", "SCALED"} }

func (v descriptorsView) TableRows() [][]string {
	rows := make([][]string, len(v.Names))
	for i, name := range v.Names {
		rows[i] = []string{name, formatFloat(v.Raw, i), formatFloat(v.Scaled, i)}
	}
	return rows
}

func (v descriptorsView) String() string {
	var sb strings.Builder
	sb.WriteString(v.SMILES)
	for i, name := range v.Names {
		fmt.Fprintf(&sb, "\n%-28s %12s %10s", name, formatFloat(v.Raw, i), formatFloat(v.Scaled, i))
	}
	return sb.String()
}

func formatFloat(vals []float64, i int) string {
	if i >= len(vals) {
		return ""
	}
	return strconv.FormatFloat(vals[i], 'f', 4, 64)
}
