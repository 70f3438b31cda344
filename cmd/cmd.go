// Package cmd implements the strata command line interface.
package cmd

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/strata-ml/strata/envconfig"
)

// appendEnvDocs adds an Environment Variables section to the command's
// help output.
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI builds the root command with all subcommands attached.
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	if runtime.GOOS == "windows" && term.IsTerminal(int(os.Stdout.Fd())) {
		console.ConsoleFromFile(os.Stdin) //nolint:errcheck
	}

	rootCmd := &cobra.Command{
		Use:           "strata",
		Short:         "Image autoencoder server",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				versionHandler(cmd, args)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	serveCmd := newServeCmd()
	initCmd := newInitCmd()
	importCmd := newImportCmd()
	pullCmd := newPullCmd()
	listCmd := newListCmd()
	showCmd := newShowCmd()
	encodeCmd := newEncodeCmd()
	reconstructCmd := newReconstructCmd()
	benchCmd := newBenchCmd()

	envVars := envconfig.AsMap()
	envs := []envconfig.EnvVar{envVars["STRATA_HOST"]}

	for _, cmd := range []*cobra.Command{
		serveCmd,
		initCmd,
		importCmd,
		pullCmd,
		listCmd,
		showCmd,
		encodeCmd,
		reconstructCmd,
		benchCmd,
	} {
		switch cmd {
		case serveCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["STRATA_DEBUG"],
				envVars["STRATA_HOST"],
				envVars["STRATA_MODELS"],
				envVars["STRATA_NOPRUNE"],
				envVars["STRATA_ORIGINS"],
				envVars["STRATA_THREADS"],
			})
		case initCmd, importCmd, pullCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["STRATA_MODELS"]})
		case benchCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["STRATA_MODELS"], envVars["STRATA_THREADS"]})
		default:
			appendEnvDocs(cmd, envs)
		}
	}

	rootCmd.AddCommand(
		serveCmd,
		initCmd,
		importCmd,
		pullCmd,
		listCmd,
		showCmd,
		encodeCmd,
		reconstructCmd,
		benchCmd,
	)

	return rootCmd
}
