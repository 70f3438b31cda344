package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/strata-ml/strata/api"
)

// ReconstructHandler decodes latent vectors into images written as
// PNG files. Latents are read from a JSON file, or stdin when the
// argument is "-" or absent.
func ReconstructHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	levels, err := cmd.Flags().GetIntSlice("levels")
	if err != nil {
		return err
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if len(args) > 1 && args[1] != "-" {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	latents, err := readLatents(in)
	if err != nil {
		return err
	}

	resp, err := client.Reconstruct(cmd.Context(), &api.ReconstructRequest{Model: args[0], Latents: latents, Levels: levels})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(output, 0o755); err != nil {
		return err
	}

	for i, img := range resp.Images {
		path := filepath.Join(output, fmt.Sprintf("reconstruction-%d.png", i))
		if err := os.WriteFile(path, img, 0o644); err != nil {
			return err
		}
		fmt.Println(path)
	}

	if len(resp.Layers) > 0 {
		path := filepath.Join(output, "layers.json")
		data, err := json.MarshalIndent(resp.Layers, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		fmt.Println(path)
	}

	return nil
}

// readLatents accepts either a plain array of float arrays or the
// output of "strata encode" piped straight in.
func readLatents(r io.Reader) ([][]float32, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var latents [][]float32
	if err := json.Unmarshal(data, &latents); err == nil {
		return latents, nil
	}

	var enc api.EncodeResponse
	if err := json.Unmarshal(data, &enc); err == nil && len(enc.Embedding.Shape) == 2 {
		n, dim := enc.Embedding.Shape[0], enc.Embedding.Shape[1]
		if n > 0 && n*dim == len(enc.Embedding.Data) {
			latents = make([][]float32, n)
			for i := range latents {
				latents[i] = enc.Embedding.Data[i*dim : (i+1)*dim]
			}

			return latents, nil
		}
	}

	return nil, errors.New("latents must be a JSON array of float arrays or encode output")
}

func newReconstructCmd() *cobra.Command {
	reconstructCmd := &cobra.Command{
		Use:     "reconstruct MODEL [LATENTS]",
		Short:   "Reconstruct images from latent vectors",
		Args:    cobra.RangeArgs(1, 2),
		PreRunE: checkServerHeartbeat,
		RunE:    ReconstructHandler,
	}

	reconstructCmd.Flags().IntSlice("levels", nil, "Block depths whose activations to include (e.g. 1,5)")
	reconstructCmd.Flags().StringP("output", "o", ".", "Directory for the reconstructed images")

	return reconstructCmd
}
