// Command cmgui replays field scripts, evaluates fields at mesh locations
// and picks the resulting graphics.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/cmgui/internal/config"
	"github.com/chazu/cmgui/internal/logging"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
	cfg        config.Config
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "cmgui",
		Short:         "Computed field scripts, scenes and picking",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			opts.cfg = cfg
			logging.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
				Level: logging.ParseLevel(cfg.Log.Level),
			})))
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "TOML configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(newRunCmd(opts), newEvalCmd(opts), newPickCmd(opts), newConfigCmd(opts))
	return root
}

func loadScript(opts *rootOptions, path string) (*App, EvalResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, EvalResult{}, err
	}
	app := NewApp(opts.cfg)
	result := app.Evaluate(string(source))
	for _, w := range result.Warnings {
		logging.Logger().Warn("script", "path", path, "finding", w.Message)
	}
	if len(result.Errors) > 0 {
		msgs := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			msgs[i] = e.String()
		}
		return app, result, fmt.Errorf("%s: %s", path, strings.Join(msgs, "; "))
	}
	return app, result, nil
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run SCRIPT",
		Short: "Replay a script and list the fields it defines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, result, err := loadScript(opts, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range result.Fields {
				fmt.Fprintf(out, "%s\t%s\t%d\t%s\n", f.Name, f.Type, f.Components, f.Command)
			}
			return nil
		},
	}
}

func parseFloats(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("xi %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

func newEvalCmd(opts *rootOptions) *cobra.Command {
	var q Query
	var xi string
	cmd := &cobra.Command{
		Use:   "eval SCRIPT FIELD",
		Short: "Evaluate a field at a node or element location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if q.Xi, err = parseFloats(xi); err != nil {
				return err
			}
			app, result, err := loadScript(opts, args[0])
			if err != nil {
				return err
			}
			s, err := app.EvaluateField(result.Module, args[1], q)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().IntVar(&q.Element, "element", 0, "element id")
	cmd.Flags().StringVar(&xi, "xi", "", "comma separated element xi")
	cmd.Flags().IntVar(&q.Node, "node", 0, "node id")
	cmd.Flags().Float64Var(&q.Time, "time", 0, "evaluation time")
	cmd.MarkFlagsMutuallyExclusive("element", "node")
	return cmd
}

func newPickCmd(opts *rootOptions) *cobra.Command {
	po := PickOptions{}
	cmd := &cobra.Command{
		Use:   "pick SCRIPT",
		Short: "Pick nodes and elements along a ray down the z axis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, result, err := loadScript(opts, args[0])
			if err != nil {
				return err
			}
			res, err := app.Pick(result.Module, po)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, h := range res.Hits {
				fmt.Fprintf(out, "%s\t%s\t%d\t%d\t%d\n", strings.Join(h.Path, "/"), h.Settings, h.ID, h.Nearest, h.Farthest)
			}
			if res.NearestNode != 0 {
				fmt.Fprintf(out, "nearest node %d\n", res.NearestNode)
			}
			if res.NearestElement != 0 {
				fmt.Fprintf(out, "nearest element %d\n", res.NearestElement)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&po.Coordinates, "coordinates", "coordinates", "coordinate field")
	cmd.Flags().StringVar(&po.Glyph, "glyph", "point", "node glyph")
	cmd.Flags().Float64Var(&po.GlyphSize, "glyph-size", 0.1, "node glyph size")
	cmd.Flags().Float64Var(&po.X, "x", 0, "ray x")
	cmd.Flags().Float64Var(&po.Y, "y", 0, "ray y")
	cmd.Flags().Float64Var(&po.Size, "size", 0.1, "ray diameter")
	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
