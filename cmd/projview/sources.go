package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	homedir "github.com/mitchellh/go-homedir"

	"github.com/JonMunkholm/projview/internal/core"
)

// sourceOptions select what a command loads besides its path arguments.
type sourceOptions struct {
	urls    []string
	timeout time.Duration
	retries int

	allowPrivate bool
	allowedHosts []string
}

// expandPaths resolves "~" and glob patterns ("**" included). A pattern that
// matches nothing is an error; plain paths are passed through unchecked.
func expandPaths(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		p, err := homedir.Expand(arg)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", arg, err)
		}
		if !strings.ContainsAny(p, "*?[{") {
			out = append(out, p)
			continue
		}
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %s", arg)
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out, nil
}

// readInputs reads each path. "-" is standard input.
func readInputs(paths []string, stdin io.Reader) ([]core.Input, error) {
	inputs := make([]core.Input, 0, len(paths))
	for _, p := range paths {
		var (
			data []byte
			err  error
		)
		if p == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(p)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		inputs = append(inputs, core.Input{Name: p, Data: data})
	}
	return inputs, nil
}

// loadSession runs one load through the same service the web server uses
// and reports skipped sources on stderr.
func loadSession(ctx context.Context, args []string, opts sourceOptions, stdin io.Reader, stderr io.Writer) (*core.Session, error) {
	paths, err := expandPaths(args)
	if err != nil {
		return nil, err
	}
	inputs, err := readInputs(paths, stdin)
	if err != nil {
		return nil, err
	}

	var fetcher *core.Fetcher
	if len(opts.urls) > 0 {
		fetcher = core.NewFetcher(core.FetchConfig{
			Timeout:      opts.timeout,
			RetryMax:     opts.retries,
			AllowPrivate: opts.allowPrivate,
			AllowedHosts: opts.allowedHosts,
		}, nil)
	}
	service := core.NewService(
		core.NewSessionStore(0),
		core.NewLoadLimiter(1, 0),
		fetcher,
		nil,
		core.ServiceConfig{},
	)

	res, err := service.Load(ctx, core.LoadRequest{
		SessionID: core.NewSessionID(),
		Channel:   core.ChannelUpload,
		Inputs:    inputs,
		URLs:      opts.urls,
	})
	for _, rep := range res.Collection.Failed() {
		fmt.Fprintf(stderr, "skipped %s: %s\n", rep.Name, rep.Message())
	}
	if err != nil {
		if errors.Is(err, core.ErrNoInput) {
			return nil, errors.New("no sources given: pass file paths, globs, - for stdin, or --url")
		}
		if core.IsUserFacing(err) {
			return nil, errors.New(core.FormatUserError(err))
		}
		return nil, err
	}

	sess := res.Session
	slog.Debug("sources loaded",
		"sources", len(res.Collection.Reports),
		"records", len(sess.Records()),
		"columns", len(sess.Table.Columns),
	)
	if sess.Table.Shallow {
		fmt.Fprintln(stderr, "warning: nested fields could not be expanded; using top-level fields only")
	}
	return sess, nil
}
