package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/SeqQuant/internal/config"
	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SeqQuant/internal/infrastructure/storage/minio"
	"github.com/turtacn/SeqQuant/internal/intelligence/catalog"
	"github.com/turtacn/SeqQuant/internal/intelligence/descriptor"
	"github.com/turtacn/SeqQuant/internal/intelligence/latent"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// DefaultScalerKey is where artifacts init writes the reference scaler when
// artifacts.scaler_path is unset.
const DefaultScalerKey = "models/descriptor_scaler.json"

// newArtifactStore connects to the configured models bucket. Tests replace it.
var newArtifactStore = func(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*minio.ArtifactStore, func() error, error) {
	client, err := minio.NewMinIOClient(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return minio.NewArtifactStore(client, log), client.Close, nil
}

// NewArtifactsCmd creates the artifacts command group.
func NewArtifactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Generate and publish encoder and scaler artifacts",
	}
	cmd.AddCommand(newArtifactsInitCmd(), newArtifactsPushCmd(), newArtifactsListCmd())
	return cmd
}

// artifactKeys returns the scaler, protein and aptamer artifact keys.
func artifactKeys(cfg *config.Config) []string {
	scaler := cfg.Artifacts.ScalerPath
	if scaler == "" {
		scaler = DefaultScalerKey
	}
	return []string{scaler, cfg.Artifacts.ProteinModelPath, cfg.Artifacts.AptamerModelPath}
}

type artifactFile struct {
	Key  string `json:"key"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

type artifactFilesView []artifactFile

func (v artifactFilesView) TableHeaders() []string { return []string{"KEY", "PATH", "BYTES"} }

func (v artifactFilesView) TableRows() [][]string {
	rows := make([][]string, len(v))
	for i, f := range v {
		rows[i] = []string{f.Key, f.Path, strconv.FormatInt(f.Size, 10)}
	}
	return rows
}

func (v artifactFilesView) String() string {
	return FormatTable(v.TableHeaders(), v.TableRows())
}

func newArtifactsInitCmd() *cobra.Command {
	var (
		dir       string
		latentDim int
		seed      int64
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write randomly initialized dense encoders and the reference scaler",
		Long: "Write a dense encoder per strategy and the reference min-max scaler under\n" +
			"--dir, at the keys named by the artifacts configuration. The encoders are\n" +
			"seeded Xavier-uniform projections, useful for wiring and smoke tests.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if latentDim <= 0 {
				return errors.New(errors.ErrCodeValidation, "latent dimension must be positive")
			}

			keys := artifactKeys(cliCtx.Config)
			scaler, err := catalog.ReferenceScaler()
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := descriptor.SaveScaler(&buf, scaler); err != nil {
				return err
			}
			contents := [][]byte{append([]byte(nil), buf.Bytes()...)}

			for i, name := range []polymer.EncodingStrategy{polymer.StrategyProtein, polymer.StrategyAptamer} {
				buf.Reset()
				w := latent.GenerateDenseWeights(string(name), descriptor.NumProperties, polymer.MaxSequenceLength, latentDim, seed+int64(i))
				if err := latent.SaveDenseWeights(&buf, w); err != nil {
					return err
				}
				contents = append(contents, append([]byte(nil), buf.Bytes()...))
			}

			written := make(artifactFilesView, 0, len(keys))
			for i, key := range keys {
				path := filepath.Join(dir, filepath.FromSlash(key))
				if !force {
					if _, err := os.Stat(path); err == nil {
						return errors.New(errors.ErrCodeConflict, "artifact exists, use --force to overwrite").WithDetail(path)
					}
				}
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return errors.Wrap(err, errors.ErrCodeStorageError, "create artifact directory")
				}
				if err := os.WriteFile(path, contents[i], 0o644); err != nil {
					return errors.Wrap(err, errors.ErrCodeStorageError, "write artifact").WithDetail(path)
				}
				written = append(written, artifactFile{Key: key, Path: path, Size: int64(len(contents[i]))})
			}
			cliCtx.Logger.Info("artifacts written", logging.String("dir", dir), logging.Int("latent_dim", latentDim))
			return PrintResult(cmd, written)
		},
	}

	f := cmd.Flags()
	f.StringVar(&dir, "dir", ".", "output root directory")
	f.IntVar(&latentDim, "latent-dim", 128, "latent vector length")
	f.Int64Var(&seed, "seed", 42, "random seed; the aptamer encoder uses seed+1")
	f.BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}

func newArtifactsPushCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Upload local artifacts to the MinIO models bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.WithTimeout(cmd.Context())
			defer cancel()

			store, closeStore, err := newArtifactStore(ctx, cliCtx.Config.MinIO, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer closeStore()

			pushed := make(artifactFilesView, 0, 3)
			for _, key := range artifactKeys(cliCtx.Config) {
				path := filepath.Join(dir, filepath.FromSlash(key))
				f, err := os.Open(path)
				if err != nil {
					if os.IsNotExist(err) {
						return errors.New(errors.ErrCodeNotFound, "artifact not found").WithDetail(path)
					}
					return errors.Wrap(err, errors.ErrCodeStorageError, "open artifact").WithDetail(path)
				}
				st, err := f.Stat()
				if err != nil {
					f.Close()
					return errors.Wrap(err, errors.ErrCodeStorageError, "stat artifact").WithDetail(path)
				}
				info, err := store.Put(ctx, filepath.ToSlash(key), f, st.Size(), "application/json")
				f.Close()
				if err != nil {
					return err
				}
				pushed = append(pushed, artifactFile{Key: info.Key, Path: path, Size: info.Size})
			}
			return PrintResult(cmd, pushed)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "local artifact root directory")
	return cmd
}

type artifactInfoView []minio.ArtifactInfo

func (v artifactInfoView) TableHeaders() []string {
	return []string{"KEY", "BYTES", "ETAG", "MODIFIED"}
}

func (v artifactInfoView) TableRows() [][]string {
	rows := make([][]string, len(v))
	for i, a := range v {
		rows[i] = []string{a.Key, strconv.FormatInt(a.Size, 10), truncateString(a.ETag, 16), a.LastModified.Format(time.RFC3339)}
	}
	return rows
}

func (v artifactInfoView) String() string {
	return FormatTable(v.TableHeaders(), v.TableRows())
}

func newArtifactsListCmd() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List artifacts in the MinIO models bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.WithTimeout(cmd.Context())
			defer cancel()

			store, closeStore, err := newArtifactStore(ctx, cliCtx.Config.MinIO, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer closeStore()

			items, err := store.List(ctx, prefix)
			if err != nil {
				return err
			}
			return PrintResult(cmd, artifactInfoView(items))
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix filter")
	return cmd
}
