package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/finsent/internal/pipeline"
)

func classifyCmd() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Classify TEXT arguments, or stdin lines when none are given, and print JSON",
		ArgsUsage: "[TEXT...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, log, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			texts := cmd.Args().Slice()
			if len(texts) == 0 {
				if texts, err = readTexts(os.Stdin); err != nil {
					return err
				}
			}
			if len(texts) == 0 {
				return errors.New("classify: no text given")
			}

			loader := newLoader(log)
			loader.Warmup = false
			p, err := loader.Load(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			out := p.Classify(ctx, texts)
			if !out.OK() {
				return fmt.Errorf("classify: %w", out.Err)
			}
			return writeClassified(cmd.Root().Writer, texts, out.Results)
		},
	}
}

// readTexts returns the non-blank lines of r.
func readTexts(r io.Reader) ([]string, error) {
	var texts []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			texts = append(texts, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return texts, nil
}

type classified struct {
	Text  string  `json:"text"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func writeClassified(w io.Writer, texts []string, results []pipeline.Result) error {
	rows := make([]classified, len(results))
	for i, r := range results {
		rows[i] = classified{Text: texts[i], Label: r.Label, Score: r.Score}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
