package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoclient-munger/internal/fetcher"
	"github.com/sells-group/geoclient-munger/pkg/munger"
)

var (
	mungeIn  string
	mungeOut string
)

var mungeCmd = &cobra.Command{
	Use:   "munge",
	Short: "Enrich a JSON array of geocoder responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		m, err := loadMunger(ctx, "munge")
		if err != nil {
			return err
		}

		in := io.Reader(os.Stdin)
		if mungeIn != "-" {
			f, err := os.Open(mungeIn)
			if err != nil {
				return eris.Wrap(err, "open input")
			}
			defer f.Close() //nolint:errcheck
			in = f
		}

		out := io.Writer(cmd.OutOrStdout())
		if mungeOut != "-" {
			f, err := os.Create(mungeOut)
			if err != nil {
				return eris.Wrap(err, "create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		stats, err := runMunge(ctx, m, in, out)
		if err != nil {
			return err
		}

		zap.L().Info("munge complete",
			zap.Int("responses", stats.responses),
			zap.Int("fields_munged", stats.matched),
			zap.Int("fields_unchanged", stats.unchanged),
		)
		return nil
	},
}

type mungeStats struct {
	responses int
	matched   int
	unchanged int
}

func (s *mungeStats) add(outcomes []munger.Outcome) {
	s.responses++
	for _, o := range outcomes {
		if o.Mutated() {
			s.matched++
		} else {
			s.unchanged++
		}
	}
}

// runMunge streams a JSON array of responses from r, enriches each one and
// writes them to w as a JSON array in the same order.
func runMunge(ctx context.Context, m *munger.Munger, r io.Reader, w io.Writer) (mungeStats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stats mungeStats
	bw := bufio.NewWriter(w)

	items, errs := fetcher.DecodeJSONArray[munger.Response](ctx, r)

	if _, err := bw.WriteString("["); err != nil {
		return stats, eris.Wrap(err, "write output")
	}
	for resp := range items {
		stats.add(m.Apply(resp))

		data, err := json.Marshal(resp)
		if err != nil {
			return stats, eris.Wrap(err, "encode response")
		}
		if stats.responses > 1 {
			_ = bw.WriteByte(',')
		}
		_ = bw.WriteByte('\n')
		if _, err := bw.Write(data); err != nil {
			return stats, eris.Wrap(err, "write output")
		}
	}
	for err := range errs {
		if err != nil {
			return stats, eris.Wrap(err, "read input")
		}
	}

	if _, err := bw.WriteString("\n]\n"); err != nil {
		return stats, eris.Wrap(err, "write output")
	}
	return stats, eris.Wrap(bw.Flush(), "write output")
}

func init() {
	mungeCmd.Flags().StringVar(&mungeIn, "in", "-", "input JSON array of geocoder responses (- for stdin)")
	mungeCmd.Flags().StringVar(&mungeOut, "out", "-", "output file (- for stdout)")
	rootCmd.AddCommand(mungeCmd)
}
