// probetool builds, inspects and exercises SH light probe networks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/Faultbox/probenet/internal/config"
	"github.com/Faultbox/probenet/internal/logger"
	"github.com/Faultbox/probenet/internal/probenet"
	"github.com/Faultbox/probenet/internal/scene"
	"github.com/Faultbox/probenet/pkg/math"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build":
		cmdBuild(args)
	case "info":
		cmdInfo(args)
	case "query", "nearest":
		cmdQuery(args)
	case "simulate", "sim":
		cmdSimulate(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`probetool - SH light probe network utility

Usage:
  probetool <command> [options]

Commands:
  build <scene.yaml> [outdir]     Build probes and write probes.shp / probes.pid
  info <dir>                      Show probe network statistics
  query <dir> <x> <y> <z>         Find the probe nearest to a point
  simulate [-frames n] <dir>      Run the dynamic update scheduler
  config [path]                   Write the default configuration

Shared options:
  -config <file>   Configuration file
  -debug           Debug logging
  -log <file>      Log to a rotating file
  -workers <n>     Parallel propagation workers
  -budget <n>      Max probe updates per frame
  -static-set a|b  Active static light set

Examples:
  probetool build level.yaml ./probes
  probetool query ./probes 1 2 3
  probetool simulate -frames 10 -budget 4 ./probes`)
}

// setup parses shared flags, loads configuration and starts logging.
func setup(fs *flag.FlagSet, args []string) *config.Config {
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load(*flags.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func fail(err error) {
	logger.Error("command failed", zap.Error(err))
	logger.Sync()
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func cmdBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: probetool build <scene.yaml> [outdir]")
		os.Exit(1)
	}
	outDir := cfg.Build.OutputDir
	if fs.NArg() > 1 {
		outDir = fs.Arg(1)
	}

	sc, err := scene.Load(fs.Arg(0))
	if err != nil {
		fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	net := probenet.New(probenet.OptionsFromConfig(cfg))
	report, err := net.PreComputeProbes(ctx, outDir, nil, sc, sc.FaceCount())
	if err != nil {
		fail(err)
	}

	fmt.Printf("Output:       %s\n", outDir)
	fmt.Printf("Probes:       %d\n", report.Probes)
	fmt.Printf("Primitives:   %d\n", report.Primitives)
	fmt.Printf("Faces:        %d\n", report.Faces)
	fmt.Printf("Vertices:     %d\n", report.Vertices)
	fmt.Printf("Links:        %d\n", report.Links)
	fmt.Printf("Duration:     %s\n", report.Duration)
	if report.NonManifoldEdges > 0 || report.UnreachedFaces > 0 || report.IsolatedVertices > 0 {
		fmt.Println()
		fmt.Println("Warnings:")
		fmt.Printf("  non-manifold edges  %d\n", report.NonManifoldEdges)
		fmt.Printf("  degenerate faces    %d\n", report.DegenerateFaces)
		fmt.Printf("  unreached faces     %d\n", report.UnreachedFaces)
		fmt.Printf("  isolated vertices   %d\n", report.IsolatedVertices)
	}
	fmt.Printf("Status:       %s\n", net.ErrorCode())
}

// open loads a probe directory and indexes it over the probes' own bounds.
// Materials are not available outside the build, so emissive surfaces stay
// unresolved.
func open(cfg *config.Config, dir string) (*probenet.Network, math.AABB) {
	net := probenet.New(probenet.OptionsFromConfig(cfg))
	if err := net.LoadProbes(dir, nil, math.Vec3{}, math.Vec3{}); err != nil {
		fail(err)
	}

	box := math.EmptyAABB()
	for _, p := range net.Probes() {
		box = box.Extend(math.V3(p.Position))
	}
	if box.IsEmpty() {
		box = math.AABB{}
	}
	net.BuildIndex(box.Min, box.Max)
	return net, box
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: probetool info <dir>")
		os.Exit(1)
	}

	net, box := open(cfg, fs.Arg(0))

	degrees := make(map[int]int)
	samples, emissive := 0, 0
	for _, p := range net.Probes() {
		degrees[len(p.Neighbors)]++
		samples += len(p.Samples)
		emissive += len(p.EmissiveSurfaces)
	}

	fmt.Printf("Directory:   %s\n", fs.Arg(0))
	fmt.Printf("Probes:      %d\n", net.ProbesCount())
	fmt.Printf("Bounds:      %v - %v\n", box.Min.Array(), box.Max.Array())
	fmt.Printf("Samples:     %d\n", samples)
	fmt.Printf("Emissive:    %d\n", emissive)
	fmt.Printf("Connections: %d\n", len(net.Connections()))
	if stream := net.ProbeIDVertexStream(); stream != nil {
		fmt.Printf("Vertices:    %d in %d primitives\n", stream.VertexCount(), len(stream.Primitives))
	}
	fmt.Println()
	fmt.Println("Neighbor degree:")

	var keys []int
	for d := range degrees {
		keys = append(keys, d)
	}
	sort.Ints(keys)
	for _, d := range keys {
		fmt.Printf("  %d  %d\n", d, degrees[d])
	}
}

func cmdQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 4 {
		fmt.Fprintln(os.Stderr, "Usage: probetool query <dir> <x> <y> <z>")
		os.Exit(1)
	}

	var coords [3]float32
	for i := range coords {
		v, err := strconv.ParseFloat(fs.Arg(i+1), 32)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid coordinate %q: %v\n", fs.Arg(i+1), err)
			os.Exit(1)
		}
		coords[i] = float32(v)
	}

	net, _ := open(cfg, fs.Arg(0))

	pos := math.V3(coords)
	id, err := net.GetNearestProbe(pos)
	if err != nil {
		fail(err)
	}
	p, _ := net.Probe(id)
	fmt.Printf("Probe %d at %v (radius %.2f, distance %.3f)\n",
		id, p.Position, p.Radius, math.V3(p.Position).Distance(pos))
}

func cmdSimulate(args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	frames := fs.Int("frames", 5, "Number of frames to run")
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: probetool simulate [-frames n] <dir>")
		os.Exit(1)
	}

	net, _ := open(cfg, fs.Arg(0))
	net.SelectStaticSet(probenet.ParseStaticSet(cfg.Runtime.StaticSet))
	parms := probenet.ParmsFromConfig(cfg.Runtime)

	fmt.Printf("%-6s %-9s %-6s %-6s %-9s %-6s\n", "frame", "selected", "done", "stale", "updating", "fresh")
	for i := 0; i < *frames; i++ {
		r := net.UpdateDynamicProbes(parms)
		fmt.Printf("%-6d %-9d %-6d %-6d %-9d %-6d\n",
			r.Frame, len(r.Selected), r.Completed, r.Stats.Stale, r.Stats.Updating, r.Stats.Fresh)
	}
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	fs.Parse(args)

	cfg := config.Default()
	var err error
	if fs.NArg() > 0 {
		err = cfg.SaveTo(fs.Arg(0))
	} else {
		err = cfg.Save()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Default configuration written")
}
