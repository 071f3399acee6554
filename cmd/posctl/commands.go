package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/skyregion/internal/logging"
	"github.com/signalsfoundry/skyregion/internal/regionrpc"
	"github.com/signalsfoundry/skyregion/pos"
	"github.com/signalsfoundry/skyregion/sphgeom"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const version = "0.1.0"

type options struct {
	server   string
	timeout  time.Duration
	logLevel string
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "posctl",
		Short: "Parse IVOA SIAv2 POS strings into sky regions",
		Long: `posctl turns POS strings such as "CIRCLE 10 20 5",
"RANGE 350 10 -5 5" or "POLYGON 0 0 10 0 10 10" into circles, boxes
and convex polygons on the unit sphere.

Coordinates are degrees. With --server the work is sent to a
region-server over gRPC instead of being done in process.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", "", "region-server address (host:port); empty evaluates locally")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Deadline for remote calls")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(parseCmd(opts), explainCmd(), containsCmd(opts), versionCmd())
	return cmd
}

func parseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <POS...>",
		Short: "Print the region a POS string describes",
		Example: `  posctl parse CIRCLE 10 20 5
  posctl parse "RANGE -Inf Inf 10 20"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			ctx := cmd.Context()

			var encoded *structpb.Struct
			if opts.server != "" {
				err := withClient(ctx, opts, cmd, func(ctx context.Context, c *regionrpc.Client) error {
					var err error
					encoded, err = c.ParsePos(ctx, text)
					return err
				})
				if err != nil {
					return err
				}
			} else {
				region, err := sphgeom.FromIVOAPos(text)
				if err != nil {
					return err
				}
				if encoded, err = regionrpc.Encode(region); err != nil {
					return err
				}
			}
			return writeJSON(cmd.OutOrStdout(), encoded)
		},
	}
}

func explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <POS...>",
		Short: "Show how a POS string is read before it becomes a region",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			command, err := pos.ParseCommand(text)
			if err != nil {
				return err
			}
			fields := map[string]any{
				"shape":     string(command.Shape()),
				"canonical": command.String(),
			}
			if arity := command.Shape().Arity(); arity > 0 {
				fields["arity"] = arity
			}

			region, err := pos.Build(command)
			if err != nil {
				fields["error"] = err.Error()
			} else {
				encoded, err := regionrpc.Encode(region)
				if err != nil {
					return err
				}
				fields["region"] = encoded.AsMap()
			}

			out, err := structpb.NewStruct(fields)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func containsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "contains <lon> <lat> <POS...>",
		Short:   "Report whether a point lies inside the region",
		Example: `  posctl contains 11 21 CIRCLE 10 20 5`,
		Args:    cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			lon, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("longitude %q: %w", args[0], err)
			}
			lat, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("latitude %q: %w", args[1], err)
			}
			text := strings.Join(args[2:], " ")
			ctx := cmd.Context()

			var inside bool
			if opts.server != "" {
				err = withClient(ctx, opts, cmd, func(ctx context.Context, c *regionrpc.Client) error {
					var err error
					inside, err = c.Contains(ctx, text, lon, lat)
					return err
				})
			} else {
				inside, err = containsLocal(text, lon, lat)
			}
			if err != nil {
				return err
			}

			out, err := structpb.NewStruct(map[string]any{"contains": inside})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "posctl version %s\n", version)
		},
	}
}

func containsLocal(text string, lon, lat float64) (bool, error) {
	if _, err := sphgeom.LonLatFromDegrees(lon, lat); err != nil {
		return false, err
	}
	region, err := sphgeom.FromIVOAPos(text)
	if err != nil {
		return false, err
	}
	return region.ContainsLonLat(lon, lat), nil
}

func withClient(ctx context.Context, opts *options, cmd *cobra.Command, fn func(context.Context, *regionrpc.Client) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.NewWithWriter(logging.Config{Level: opts.logLevel}, cmd.ErrOrStderr())

	conn, err := regionrpc.Dial(opts.server)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	log.Debug(ctx, "calling region-server", logging.String("server", opts.server))
	return fn(ctx, regionrpc.NewClient(conn))
}

func writeJSON(w io.Writer, m proto.Message) error {
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(m)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
