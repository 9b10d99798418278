// Command riskctl runs the risk engine from the command line. It scores
// readings, lays out route waypoints, analyzes routes and locations, and
// registers ports in the local store. Results are printed as JSON.
//
// Usage:
//
//	riskctl score -wind 40 -wave 1.2
//	riskctl waypoints -from 5.98,116.07 -to 5.33,115.24 -steps 3
//	riskctl route -from 5.98,116.07 -to 5.33,115.24
//	riskctl location -lat 5.9 -lon 116.0
//	riskctl port -id 1 -name "Jesselton Point" -lat 5.9877 -lon 116.0736
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/couchcryptid/ferry-risk/internal/adapter/cache"
	"github.com/couchcryptid/ferry-risk/internal/adapter/openmeteo"
	"github.com/couchcryptid/ferry-risk/internal/adapter/predictor"
	"github.com/couchcryptid/ferry-risk/internal/adapter/sqlite"
	"github.com/couchcryptid/ferry-risk/internal/config"
	"github.com/couchcryptid/ferry-risk/internal/domain"
	"github.com/couchcryptid/ferry-risk/internal/engine"
	"github.com/couchcryptid/ferry-risk/internal/observability"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

const usage = `usage: riskctl <command> [flags]

commands:
  score      assess a single reading
  waypoints  interpolate checkpoints between two points
  route      analyze open water between two points
  location   nearest ports and recommendation for a position
  port       add or update a port in the store`

var errUsage = errors.New(usage)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "score":
		return runScore(ctx, cfg, rest, out)
	case "waypoints":
		return runWaypoints(rest, out)
	case "route":
		return runRoute(ctx, cfg, rest, out)
	case "location":
		return runLocation(ctx, cfg, rest, out)
	case "port":
		return runPort(ctx, cfg, rest)
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
}

func runScore(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	wind := fs.Float64("wind", 0, "wind speed")
	unit := fs.String("wind-unit", "kmh", "wind unit: kmh, ms, kn, mph")
	wave := fs.Float64("wave", 0, "significant wave height in metres")
	visibility := fs.Float64("visibility", -1, "visibility in km (omit when unknown)")
	heuristic := fs.Bool("heuristic", false, "skip the predictive service")
	if err := fs.Parse(args); err != nil {
		return err
	}

	raw := domain.RawReading{
		Source:     "cli",
		WindSpeed:  wind,
		WindUnit:   *unit,
		WaveHeight: wave,
	}
	if *visibility >= 0 {
		raw.Visibility = visibility
	}
	obs, err := domain.NormalizeReading(raw)
	if err != nil {
		return err
	}

	if *heuristic {
		cfg.PredictorEnabled = false
	}
	return printJSON(out, newScorer(cfg).Score(ctx, obs))
}

func runWaypoints(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("waypoints", flag.ContinueOnError)
	from := fs.String("from", "", "origin as lat,lon")
	to := fs.String("to", "", "destination as lat,lon")
	steps := fs.Int("steps", 2, "number of intermediate checkpoints")
	if err := fs.Parse(args); err != nil {
		return err
	}

	origin, destination, err := parseLeg(*from, *to)
	if err != nil {
		return err
	}
	return printJSON(out, domain.Interpolate(origin, destination, *steps))
}

func runRoute(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("route", flag.ContinueOnError)
	from := fs.String("from", "", "origin as lat,lon")
	to := fs.String("to", "", "destination as lat,lon")
	checkpoints := fs.Int("checkpoints", cfg.RouteCheckpoints, "number of open-water checkpoints")
	if err := fs.Parse(args); err != nil {
		return err
	}

	origin, destination, err := parseLeg(*from, *to)
	if err != nil {
		return err
	}

	logger := observability.DiscardLogger()
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	weather := openmeteo.NewClient(cfg.WeatherForecastURL, cfg.WeatherMarineURL, cfg.WeatherTimeout, metrics, logger)
	forecaster := openmeteo.NewCachedForecaster(weather, cache.NewMemory(cfg.ForecastCacheSize, nil), cfg.ForecastCacheTTL, metrics, logger)
	routes := engine.NewRouteAnalyzer(engine.NewSampler(forecaster, logger), newScorer(cfg), *checkpoints, metrics, logger)

	return printJSON(out, routes.AnalyzeLeg(ctx, origin, destination))
}

func runLocation(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("location", flag.ContinueOnError)
	lat := fs.Float64("lat", 0, "latitude")
	lon := fs.Float64("lon", 0, "longitude")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	analysis, err := engine.NewLocationAnalyzer(store, observability.DiscardLogger()).AnalyzeLocation(ctx, *lat, *lon)
	if err != nil {
		return err
	}
	return printJSON(out, analysis)
}

func runPort(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("port", flag.ContinueOnError)
	id := fs.Int64("id", 0, "port id")
	name := fs.String("name", "", "port name")
	lat := fs.String("lat", "", "latitude (empty when not yet geolocated)")
	lon := fs.String("lon", "", "longitude (empty when not yet geolocated)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("-id must be positive")
	}

	port := domain.Port{ID: *id, Name: *name}
	if *lat != "" || *lon != "" {
		p, err := parsePoint(*lat + "," + *lon)
		if err != nil {
			return err
		}
		port.Lat, port.Lon = domain.Float64(p.Lat), domain.Float64(p.Lon)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.UpsertPort(ctx, port)
}

func newScorer(cfg *config.Config) *engine.Scorer {
	logger := observability.DiscardLogger()
	var model domain.Predictor
	if cfg.PredictorEnabled {
		model = predictor.NewClient(cfg.PredictorURL, cfg.PredictorTimeout, logger)
	}
	return engine.NewScorer(model, cfg.PredictorTimeout, observability.NewMetricsWith(prometheus.NewRegistry()), logger)
}

func parseLeg(from, to string) (domain.Waypoint, domain.Waypoint, error) {
	origin, err := parsePoint(from)
	if err != nil {
		return domain.Waypoint{}, domain.Waypoint{}, fmt.Errorf("-from: %w", err)
	}
	destination, err := parsePoint(to)
	if err != nil {
		return domain.Waypoint{}, domain.Waypoint{}, fmt.Errorf("-to: %w", err)
	}
	return origin, destination, nil
}

func parsePoint(s string) (domain.Waypoint, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return domain.Waypoint{}, fmt.Errorf("expected lat,lon, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return domain.Waypoint{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return domain.Waypoint{}, fmt.Errorf("longitude: %w", err)
	}
	if !domain.ValidCoordinate(lat, lon) {
		return domain.Waypoint{}, domain.ErrInvalidCoordinate
	}
	return domain.Waypoint{Lat: lat, Lon: lon}, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
