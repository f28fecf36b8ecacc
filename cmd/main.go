package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/kevmo314/offsetview/pkg/decoder"
	"github.com/kevmo314/offsetview/pkg/encoding"
	"github.com/kevmo314/offsetview/pkg/memory"
	"github.com/kevmo314/offsetview/pkg/pointer"
	"github.com/kevmo314/offsetview/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "offsetview",
		Short: "Decode offset pointers and spans in memory images.",
		Long: `Decode self-relative offset pointers and offset spans stored in raw
	memory images. Images are given as file[@base]; several images form one
	address space.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringArrayP("image", "i", nil, "memory image as file[@base], raw or zstd compressed")
	root.PersistentFlags().StringP("types", "T", "", "YAML type file")
	root.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
	root.PersistentFlags().Bool("no-color", false, "disable colored output")
	root.AddCommand(newPtrCmd(), newSpanCmd())
	return root
}

// session is everything a subcommand needs to decode one request.
type session struct {
	mem    memory.Reader
	table  *types.Table
	reg    *decoder.Registry
	logger *zap.Logger
	close  func() error
}

func openSession(cmd *cobra.Command) (*session, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	noColor, _ := cmd.Flags().GetBool("no-color")
	color.NoColor = noColor || !term.IsTerminal(int(os.Stdout.Fd()))

	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("cannot initialize zap logger: %w", err)
		}
		logger = l
	}

	table := types.NewTable(encoding.DefaultLayout)
	if path, _ := cmd.Flags().GetString("types"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if table, err = types.LoadTable(f); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	specs, _ := cmd.Flags().GetStringArray("image")
	mem, closeFn, err := openImages(specs, table.Layout().PointerWidth, logger)
	if err != nil {
		return nil, err
	}
	return &session{
		mem:    mem,
		table:  table,
		reg:    decoder.NewRegistry(decoder.WithLayout(table.Layout()), decoder.WithLogger(logger)),
		logger: logger,
		close: func() error {
			// stderr cannot be synced on terminals and pipes.
			_ = logger.Sync()
			return closeFn()
		},
	}, nil
}

// done closes s and reports a close failure unless err is already set.
func (s *session) done(err *error) {
	if cerr := s.close(); cerr != nil {
		s.logger.Debug("closing session", zap.Error(cerr))
		if *err == nil {
			*err = cerr
		}
	}
}

func parseAddress(s string) (pointer.Address, error) {
	u, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return pointer.Address(u), nil
}
