package cmd

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strata-ml/strata/api"
	"github.com/strata-ml/strata/envconfig"
	"github.com/strata-ml/strata/server"
	"github.com/strata-ml/strata/version"
)

// RunServer starts the server on the host from STRATA_HOST.
func RunServer(_ *cobra.Command, _ []string) error {
	ln, err := net.Listen("tcp", envconfig.Host().Host)
	if err != nil {
		return err
	}

	err = server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func versionHandler(cmd *cobra.Command, _ []string) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return
	}

	serverVersion, err := client.Version(cmd.Context())
	if err != nil {
		fmt.Println("Warning: could not connect to a running strata instance")
	}

	if serverVersion != "" {
		fmt.Printf("strata version is %s\n", serverVersion)
	}

	if serverVersion != version.Version {
		fmt.Printf("Warning: client version is %s\n", version.Version)
	}
}

// checkServerHeartbeat turns a connection failure into a hint to start
// the server.
func checkServerHeartbeat(cmd *cobra.Command, _ []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	if err := client.Heartbeat(cmd.Context()); err != nil {
		if strings.Contains(err.Error(), " refused") || strings.Contains(err.Error(), "could not connect") {
			return errors.New("could not connect to a running strata instance, start the server with \"strata serve\"")
		}

		return err
	}

	return nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start strata",
		Args:    cobra.ExactArgs(0),
		RunE:    RunServer,
	}
}
