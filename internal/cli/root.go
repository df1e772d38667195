// Package cli implements the restore command-line client: it runs a local
// photo through the upload flow against a ColorOld API server.
package cli

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"colorold/internal/infra"
	"colorold/internal/jobclient"
	"colorold/internal/restore"
)

type globalOptions struct {
	apiURL   string
	token    string
	locale   string
	verbose  bool
	interval time.Duration
	timeout  time.Duration

	httpClient *http.Client
}

func (g *globalOptions) jobClient(op jobclient.Operation) *jobclient.Client {
	return jobclient.New(jobclient.Options{
		BaseURL:    g.apiURL,
		Token:      g.token,
		Locale:     g.locale,
		Operation:  op,
		HTTPClient: g.httpClient,
	})
}

func (g *globalOptions) logger() *infra.Logger {
	l := infra.NewCLILogger(g.verbose)
	return &l
}

// NewRootCommand builds the restore command tree. Flags default to the
// RESTORE_* environment variables.
func NewRootCommand() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:           "restore",
		Short:         "Restore and colorize old photos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.apiURL, "api", envOr("RESTORE_API_URL", "http://localhost:8080"), "API base URL")
	pf.StringVar(&g.token, "token", os.Getenv("RESTORE_TOKEN"), "bearer token for a signed-in account")
	pf.StringVar(&g.locale, "locale", envOr("RESTORE_LOCALE", "en"), "message language (en, zh)")
	pf.DurationVar(&g.interval, "interval", envDuration("RESTORE_POLL_INTERVAL", 3*time.Second), "status poll interval")
	pf.DurationVar(&g.timeout, "timeout", envDuration("RESTORE_TIMEOUT", restore.DefaultTimeout), "give up on a job after this long")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(newRunCommand(g), newStatusCommand(g), newUsageCommand(g))
	return root
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
