package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"
)

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Download and validate model artifacts into the cache",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, log, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			loader := newLoader(log)
			loader.FetchAll = true
			art, err := loader.Prepare(ctx)
			if err != nil {
				return err
			}

			w := cmd.Root().Writer
			_, _ = fmt.Fprintf(w, "model:    %s@%s\n", art.ModelID, art.Snapshot.Revision)
			_, _ = fmt.Fprintf(w, "labels:   %s\n", strings.Join(art.Config.Labels, ", "))
			_, _ = fmt.Fprintf(w, "snapshot: %s\n", art.Snapshot.Dir)
			names := make([]string, 0, len(art.Snapshot.Files))
			for name := range art.Snapshot.Files {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				_, _ = fmt.Fprintf(w, "  %s\n", name)
			}
			return nil
		},
	}
}
