package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/BearBump/ShipTrack/internal/integrations/aftership"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type globalFlags struct {
	apiKey   string
	baseURL  string
	version  string
	timeout  time.Duration
	username string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "aftershipctl",
		Short:         "Inspect and manage AfterShip trackings",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.apiKey, "api-key", os.Getenv("AFTERSHIP_API_KEY"), "AfterShip API key (default $AFTERSHIP_API_KEY)")
	pf.StringVar(&g.baseURL, "base-url", aftership.DefaultBaseURL, "AfterShip API base URL")
	pf.StringVar(&g.version, "api-version", aftership.DefaultVersion, "AfterShip API version")
	pf.DurationVar(&g.timeout, "timeout", 30*time.Second, "request timeout")
	pf.StringVar(&g.username, "username", os.Getenv("AFTERSHIP_USERNAME"), "AfterShip username for tracking page URLs")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log requests")

	root.AddCommand(
		newDetectCmd(g),
		newGetCmd(g),
		newCreateCmd(g),
		newUpdateCmd(g),
		newDeleteCmd(g),
		newRetrackCmd(g),
		newLastCheckpointCmd(g),
		newListCmd(g),
		newCouriersCmd(g),
		newEventsCmd(g),
		newURLCmd(g),
	)
	return root
}

func (g *globalFlags) connection() (*aftership.Connection, error) {
	if g.apiKey == "" {
		return nil, errors.New("api key is required: pass --api-key or set AFTERSHIP_API_KEY")
	}
	return aftership.New(g.baseURL, g.apiKey).
		WithTimeout(g.timeout).
		WithVersion(g.version), nil
}

func (g *globalFlags) logger() *zap.Logger {
	if !g.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// settings lets services built for the server run from flags.
func (g *globalFlags) settings() staticSettings {
	return staticSettings{APIKey: g.apiKey, Username: g.username}
}

type staticSettings models.Settings

func (s staticSettings) Load(context.Context) (models.Settings, error) {
	return models.Settings(s), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode output")
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
