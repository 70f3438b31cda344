package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/strata-ml/strata/convert"
	"github.com/strata-ml/strata/model/models/celeba"
	"github.com/strata-ml/strata/server"
)

// InitHandler creates a model with freshly initialized weights.
func InitHandler(cmd *cobra.Command, args []string) error {
	arch, err := cmd.Flags().GetString("arch")
	if err != nil {
		return err
	}

	latent, err := cmd.Flags().GetInt("latent")
	if err != nil {
		return err
	}

	seed, err := cmd.Flags().GetUint64("seed")
	if err != nil {
		return err
	}

	path, err := server.ModelPath(args[0])
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("model %q already exists", args[0])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	if err := celeba.Create(path, arch, latent, seed); err != nil {
		return err
	}

	fmt.Printf("created %s\n", args[0])
	return nil
}

// ImportHandler converts a trained checkpoint directory into the local
// store. The encoder and decoder are written as separate models.
func ImportHandler(cmd *cobra.Command, args []string) error {
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}
	if name == "" {
		name = filepath.Base(filepath.Clean(args[0]))
	}

	if _, err := convert.LoadModelParameters(args[0]); err != nil {
		return err
	}

	parts := []struct {
		suffix  string
		convert func(string, *os.File) error
	}{
		{"encoder", convert.ConvertEncoder},
		{"decoder", convert.ConvertDecoder},
	}

	for _, part := range parts {
		path, err := server.ModelPath(name + "-" + part.suffix)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}

		f, err := os.Create(path)
		if err != nil {
			return err
		}

		if err := part.convert(args[0], f); err != nil {
			f.Close()
			os.Remove(path)
			return fmt.Errorf("convert %s: %w", part.suffix, err)
		}

		if err := f.Close(); err != nil {
			return err
		}

		fmt.Printf("imported %s-%s\n", name, part.suffix)
	}

	return nil
}

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init NAME",
		Short: "Create a model with freshly initialized weights",
		Args:  cobra.ExactArgs(1),
		RunE:  InitHandler,
	}

	initCmd.Flags().String("arch", celeba.EncoderAEArch, "Architecture (encoder_ae_celeba, encoder_vae_celeba, decoder_ae_celeba)")
	initCmd.Flags().Int("latent", 16, "Latent dimension")
	initCmd.Flags().Uint64("seed", 0, "Seed for weight initialization")

	return initCmd
}

func newImportCmd() *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import DIR",
		Short: "Import a trained checkpoint directory",
		Args:  cobra.ExactArgs(1),
		RunE:  ImportHandler,
	}

	importCmd.Flags().String("name", "", "Model name (default: directory name)")

	return importCmd
}
