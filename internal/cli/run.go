package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"colorold/internal/imaging"
	"colorold/internal/jobclient"
	"colorold/internal/restore"
	"colorold/internal/storage"
	"colorold/pkg/zip"
)

type runOptions struct {
	colorize bool
	outDir   string
	bundle   bool
	inline   bool
	maxEdge  int
}

func newRunCommand(g *globalOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Upload a photo, wait for the result and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, g, args[0])
		},
	}
	f := cmd.Flags()
	f.BoolVar(&o.colorize, "colorize", false, "colorize instead of restore")
	f.StringVarP(&o.outDir, "out", "o", ".", "directory for the result")
	f.BoolVar(&o.bundle, "bundle", false, "also write a before/after zip")
	f.BoolVar(&o.inline, "inline", false, "send the photo inline instead of uploading it first")
	f.IntVar(&o.maxEdge, "max-edge", imaging.DefaultMaxEdge, "downscale so neither side exceeds this many pixels")
	return cmd
}

func (o *runOptions) run(cmd *cobra.Command, g *globalOptions, path string) error {
	ctx := cmd.Context()
	img, err := imaging.LoadFile(path)
	if err != nil {
		return err
	}

	op := jobclient.OperationRestore
	if o.colorize {
		op = jobclient.OperationColorize
	}
	jobs := g.jobClient(op)
	logger := g.logger()

	monthly := false
	if u, err := jobs.Usage(ctx); err == nil {
		monthly = u.Period == "month"
		logger.Debug().Int("remaining", u.Remaining).Str("period", u.Period).Msg("usage")
	}

	uploader := storage.Uploader(storage.InlineUploader{})
	if !o.inline {
		uploader = storage.NewUploader(strings.TrimRight(g.apiURL, "/")+"/v1/uploads", g.token, g.httpClient)
	}

	orch := restore.New(restore.Options{
		Jobs:         jobs,
		Uploader:     uploader,
		Quota:        jobclient.RemoteQuota{Client: jobs},
		MonthlyQuota: monthly,
		Locale:       g.locale,
		MaxEdge:      o.maxEdge,
		PollInterval: g.interval,
		Timeout:      g.timeout,
		HTTPClient:   g.httpClient,
		Logger:       logger,
		OnChange:     progressPrinter(cmd.ErrOrStderr()),
	})

	session, err := orch.Process(ctx, img)
	if err != nil {
		if session.ErrorMessage != "" {
			return errors.New(session.ErrorMessage)
		}
		return err
	}

	var result bytes.Buffer
	if _, err := orch.Download(ctx, &result); err != nil {
		return fmt.Errorf("download result: %w", err)
	}

	stamp := time.Now()
	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return err
	}
	outPath := filepath.Join(o.outDir, fmt.Sprintf("restored_photo_%d.jpg", stamp.Unix()))
	if err := os.WriteFile(outPath, result.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), outPath)

	if o.bundle {
		zipPath := filepath.Join(o.outDir, fmt.Sprintf("restored_photo_%d.zip", stamp.Unix()))
		assets := zip.Comparison(
			zip.Asset{MIME: img.MIME, Data: img.Data},
			zip.Asset{MIME: mimetype.Detect(result.Bytes()).String(), Data: result.Bytes()},
		)
		var archive bytes.Buffer
		if err := zip.WriteArchive(&archive, stamp, assets); err != nil {
			return err
		}
		if err := os.WriteFile(zipPath, archive.Bytes(), 0o644); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), zipPath)
	}
	return nil
}

// progressPrinter reports state and progress changes, one line each.
func progressPrinter(w io.Writer) func(restore.Session) {
	var mu sync.Mutex
	var last string
	return func(s restore.Session) {
		line := string(s.State)
		if s.State == restore.StateProcessing {
			line = fmt.Sprintf("%s %d%%", s.State, s.Progress)
		}
		mu.Lock()
		defer mu.Unlock()
		if line == last {
			return
		}
		last = line
		fmt.Fprintln(w, line)
	}
}
