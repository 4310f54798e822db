package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/paulmach/orb"

	"github.com/natevvv/snaproute/internal/config"
	"github.com/natevvv/snaproute/internal/network"
	"github.com/natevvv/snaproute/pkg/geometry"
	"github.com/natevvv/snaproute/pkg/routing"
	"github.com/natevvv/snaproute/pkg/server/openapi_server"
)

// target is one benchmark query and its reference distance (-1 when the
// reference failed).
type target struct {
	from, to geometry.LatLon
	distance float64
}

func main() {
	configFile := flag.String("config", "", "YAML configuration file")
	useRandomTargets := flag.Bool("random", false, "Create (new) random targets")
	amountTargets := flag.Int("n", 100, "How many new targets should get created")
	seed := flag.Int64("seed", 0, "Seed for random targets, 0 uses the current time")
	targetFile := flag.String("targets", "targets.txt", "File to read targets from or store them to")
	storeTargets := flag.Bool("store", false, "Store targets (when newly generated)")
	algorithm := flag.String("search", "", "Select the search algorithm (dijkstra, astar)")
	cpuProfile := flag.String("cpu", "", "write cpu profile to file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	logger := cfg.Log.NewLogger()

	start := time.Now()
	reference, err := network.Open(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer reference.Close()
	fmt.Printf("[TIME-Import] = %s\n", time.Since(start))

	navigator := *algorithm
	if navigator == "" {
		navigator = cfg.Routing.Navigator
	}
	router, err := routing.NewRouter(reference.Graph, reference.Index, reference.Projection, routing.Options{Navigator: navigator, Logger: logger})
	if err != nil {
		log.Fatal(err)
	}

	var targets []target
	if *useRandomTargets {
		if *seed == 0 {
			*seed = time.Now().UnixNano()
		}
		targets = createTargets(*amountTargets, rand.New(rand.NewSource(*seed)), reference)
		if *storeTargets {
			writeTargets(targets, *targetFile)
		}
	} else {
		targets = readTargets(*targetFile)
		if *amountTargets < len(targets) {
			targets = targets[0:*amountTargets]
		}
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}
	benchmark(router, targets)
}

// createTargets samples points in the bound of the network and routes them
// with the reference (dijkstra) router.
func createTargets(n int, rng *rand.Rand, reference *network.Network) []target {
	bound := reference.Graph.Bound()
	sample := func() geometry.LatLon {
		p := orb.Point{
			bound.Min.X() + rng.Float64()*(bound.Max.X()-bound.Min.X()),
			bound.Min.Y() + rng.Float64()*(bound.Max.Y()-bound.Min.Y()),
		}
		return reference.Projection.Inverse(p)
	}

	referenceRouter, err := routing.NewRouter(reference.Graph, reference.Index, reference.Projection, routing.Options{Navigator: "dijkstra"})
	if err != nil {
		log.Fatal(err)
	}
	targets := make([]target, n)
	for i := 0; i < n; i++ {
		t := target{from: sample(), to: sample(), distance: -1}
		if route, err := referenceRouter.Route(context.Background(), t.from, t.to); err == nil {
			t.distance = route.Distance
		}
		targets[i] = t
	}
	return targets
}

func readTargets(filename string) []target {
	file, err := os.Open(filename)
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Split(bufio.ScanLines)

	targets := make([]target, 0)

	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 1 {
			// skip empty lines
			continue
		} else if line[0] == '#' {
			// skip comments
			continue
		}
		var t target
		fmt.Sscanf(line, "%g %g %g %g %g", &t.from.Lat, &t.from.Lon, &t.to.Lat, &t.to.Lon, &t.distance)
		targets = append(targets, t)
	}
	return targets
}

func writeTargets(targets []target, targetFile string) {
	var sb strings.Builder
	sb.WriteString("# from_lat from_lon to_lat to_lon distance\n")
	for _, t := range targets {
		sb.WriteString(fmt.Sprintf("%.7f %.7f %.7f %.7f %.6f\n", t.from.Lat, t.from.Lon, t.to.Lat, t.to.Lon, t.distance))
	}

	file, cErr := os.Create(targetFile)
	if cErr != nil {
		log.Fatal(cErr)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	writer.WriteString(sb.String())
	writer.Flush()
}

// Run benchmarks on the provided router and targets
func benchmark(router *routing.Router, targets []target) {
	var runtime time.Duration = 0
	completed := 0
	found := 0
	points := 0

	outcomes := make(map[string]int)
	invalidLengths := make([][3]float64, 0)

	showResults := func() {
		if completed == 0 {
			fmt.Println("No targets completed")
			return
		}
		fmt.Printf("Average runtime: %.3fms\n", float64(runtime.Nanoseconds())/float64(completed)/1000000)
		if found > 0 {
			fmt.Printf("Average geometry points: %d\n", points/found)
		}
		for outcome, count := range outcomes {
			fmt.Printf("%v/%v %s\n", count, completed, outcome)
		}

		fmt.Printf("%v/%v invalid route lengths.\n", len(invalidLengths), completed)
		for i, lengths := range invalidLengths {
			testcase := int(lengths[0])
			actualLength := lengths[1]
			referenceLength := lengths[2]
			fmt.Printf("%v: Case %v (%v -> %v) has invalid length. Has: %.3f, Reference: %.3f, Difference: %.3f\n", i, testcase, targets[testcase].from, targets[testcase].to, actualLength, referenceLength, actualLength-referenceLength)
		}
	}

	// catch interrupt to still show already calculated results
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		showResults()
		os.Exit(0)
	}()

	for i, t := range targets {
		start := time.Now()
		route, err := router.Route(context.Background(), t.from, t.to)
		elapsed := time.Since(start)

		length := -1.0
		if err == nil {
			length = route.Distance
			found++
			points += len(route.Geometry)
		}
		_, detail := openapi_server.StatusOf(err)
		if err == nil {
			detail = "routes found"
		}
		outcomes[detail]++

		fmt.Printf("[%3v TIME-Route, Distance, Points] = %12s, %12.3f, %5d\n", i, elapsed, length, len(route.Geometry))

		if math.Abs(length-t.distance) > 1e-6 {
			invalidLengths = append(invalidLengths, [3]float64{float64(i), length, t.distance})
		}

		runtime += elapsed
		completed++
	}
	// normal termination, show results
	showResults()
}
