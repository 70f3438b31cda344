package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strata-ml/strata/api"
)

// EncodeHandler sends image files to the server and prints the
// response as JSON.
func EncodeHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	levels, err := cmd.Flags().GetIntSlice("levels")
	if err != nil {
		return err
	}

	req := api.EncodeRequest{Model: args[0], Levels: levels}
	for _, path := range args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		req.Images = append(req.Images, data)
	}

	resp, err := client.Encode(cmd.Context(), &req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	return nil
}

func newEncodeCmd() *cobra.Command {
	encodeCmd := &cobra.Command{
		Use:     "encode MODEL IMAGE [IMAGE...]",
		Short:   "Encode images into latent vectors",
		Args:    cobra.MinimumNArgs(2),
		PreRunE: checkServerHeartbeat,
		RunE:    EncodeHandler,
	}

	encodeCmd.Flags().IntSlice("levels", nil, "Block depths whose activations to include (e.g. 1,4)")

	return encodeCmd
}
