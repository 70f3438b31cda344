package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/strata-ml/strata/envconfig"
	"github.com/strata-ml/strata/format"
	"github.com/strata-ml/strata/huggingface"
)

// PullHandler downloads a model repository from the Hugging Face hub
// into the local store.
func PullHandler(cmd *cobra.Command, args []string) error {
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}

	client := huggingface.NewClient()

	var lastUpdate time.Time
	progress := func(file string, completed, total int64) {
		// redraws are throttled, the final update always lands
		if completed != total && time.Since(lastUpdate) < 100*time.Millisecond {
			return
		}
		lastUpdate = time.Now()

		if total > 0 {
			fmt.Fprintf(os.Stderr, "\rpulling %s... %3.0f%% (%s/%s)", file, float64(completed)/float64(total)*100, format.HumanBytes(completed), format.HumanBytes(total))
		} else {
			fmt.Fprintf(os.Stderr, "\rpulling %s... %s", file, format.HumanBytes(completed))
		}
	}

	names, err := client.Pull(cmd.Context(), args[0], name, envconfig.Models(), progress)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr)

	for _, n := range names {
		fmt.Printf("pulled %s\n", n)
	}

	return nil
}

func newPullCmd() *cobra.Command {
	pullCmd := &cobra.Command{
		Use:   "pull REPOSITORY",
		Short: "Pull a model from the Hugging Face hub",
		Args:  cobra.ExactArgs(1),
		RunE:  PullHandler,
	}

	pullCmd.Flags().String("name", "", "Local model name (default: repository name)")

	return pullCmd
}
