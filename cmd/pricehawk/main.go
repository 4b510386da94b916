// cmd/pricehawk/main.go
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pricehawk/pricehawk/internal/app"
	"github.com/pricehawk/pricehawk/internal/config"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "fetch":
		runFetch(os.Args[2:])
	case "batch":
		runBatch(os.Args[2:])
	case "version", "--version", "-V":
		fmt.Printf("pricehawk %s (built %s, commit %s)\n", version, buildTime, gitCommit)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `pricehawk - price extraction from defended product pages

Usage:
  pricehawk fetch [flags] <url>      fetch a single product price
  pricehawk batch [flags] <file>     fetch prices for URLs listed in a file
  pricehawk version                  print version information

Flags:
  -config <path>       YAML configuration file
  -concurrency <n>     parallel fetches for batch mode (default 5)
`)
}

func loadConfig(path string) *config.Config {
	if path == "" {
		return config.Default()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func buildApp(ctx context.Context, configPath string) *app.App {
	application, err := app.New(ctx, loadConfig(configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return application
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runFetch(args []string) {
	flags := flag.NewFlagSet("fetch", flag.ExitOnError)
	configPath := flags.String("config", "", "configuration file")
	flags.Parse(args)

	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: pricehawk fetch [flags] <url>")
		os.Exit(2)
	}
	url := flags.Arg(0)

	ctx, cancel := signalContext()
	defer cancel()

	application := buildApp(ctx, *configPath)
	defer application.Close()

	price := application.Service.FetchPrice(ctx, url)
	if price == nil {
		fmt.Println("no price found")
		os.Exit(1)
	}
	fmt.Printf("%.2f\n", *price)
}

func runBatch(args []string) {
	flags := flag.NewFlagSet("batch", flag.ExitOnError)
	configPath := flags.String("config", "", "configuration file")
	concurrency := flags.Int("concurrency", 5, "parallel fetches")
	flags.Parse(args)

	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: pricehawk batch [flags] <file>")
		os.Exit(2)
	}

	urls, err := readURLFile(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "error: no URLs in input file")
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	application := buildApp(ctx, *configPath)
	defer application.Close()

	results := application.Service.FetchPricesBatch(ctx, urls, *concurrency)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// readURLFile reads one URL per line, skipping blanks and # comments.
func readURLFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL file: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL file: %w", err)
	}
	return urls, nil
}
