package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ironsheep/blueprint-mcp/internal/config"
	"github.com/ironsheep/blueprint-mcp/internal/server"
	"github.com/ironsheep/blueprint-mcp/internal/session"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var configPath string

	args := os.Args[1:]
	for len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Printf("blueprint-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		case "--config", "-c":
			if len(args) < 2 {
				fmt.Fprintln(os.Stderr, "--config needs a path")
				os.Exit(2)
			}
			configPath = args[1]
			args = args[2:]
			continue
		default:
			fmt.Fprintf(os.Stderr, "unknown option %q (try --help)\n", args[0])
			os.Exit(2)
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if cfg.Debug() {
		log.Printf("Blueprint MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	server.Version = Version
	sess := session.New(cfg, session.Deps{})
	srv := server.New(sess, cfg.Debug())
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printHelp() {
	fmt.Println("blueprint-mcp - MCP server for measuring and annotating construction drawings")
	fmt.Println()
	fmt.Println("Usage: blueprint-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config, -c PATH  Read settings from a YAML file")
	fmt.Println("  --version, -v      Print version information")
	fmt.Println("  --help, -h         Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Printf("  %s=debug         Enable debug logging\n", config.EnvLogLevel)
	fmt.Printf("  %s=DIR         Directory for relative drawing paths\n", config.EnvStorageRoot)
	fmt.Printf("  %s=eng             OCR language\n", config.EnvLanguage)
	fmt.Printf("  %s=URL           Remote analysis service\n", config.EnvVisionURL)
	fmt.Printf("  %s=KEY           API key for the analysis service\n", config.EnvVisionKey)
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Register it as a stdio server in your MCP client.")
}
