// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/tonyjom/lineforge/internal/app"
	"github.com/tonyjom/lineforge/internal/config"
	"github.com/tonyjom/lineforge/internal/session"
	"github.com/tonyjom/lineforge/pkg/client"
)

var version = "0.1"

func main() {
	// Check for subcommands before flag parsing.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "init":
			if err := runInit(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			os.Exit(0)
		case "new", "new-session":
			if err := runNew(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			os.Exit(0)
		case "list":
			if err := runList(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			os.Exit(0)
		case "attach":
			if err := runAttach(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			os.Exit(0)
		case "kill":
			if err := runKill(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			os.Exit(0)
		case "settings":
			if err := runSettings(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			os.Exit(0)
		}
	}

	var (
		configPath  string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: auto-detect)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.Parse()

	if showVersion {
		fmt.Printf("lineforge %s\n", version)
		os.Exit(0)
	}

	if configPath == "" {
		loader := config.NewLoader()
		found, err := loader.FindConfig()
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		configPath = found
	}

	log.Printf("Using config: %s", configPath)

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Version:    version,
	})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	ctx := context.Background()
	if err := application.Run(ctx); err != nil {
		log.Fatalf("App error: %v", err)
	}
}

// serverAddr returns the base URL of a locally running server, honoring
// the LINEFORGE_ADDR environment variable for non-default bind/port setups.
func serverAddr() string {
	if addr := os.Getenv("LINEFORGE_ADDR"); addr != "" {
		return addr
	}
	return "http://127.0.0.1:42067"
}

func runNew(args []string) error {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	name := fs.String("name", "", "Session name")
	tool := fs.String("tool", "", "Tool to run (claude or codex)")
	dir := fs.String("dir", "", "Working directory (default: current directory)")
	fs.Parse(args)

	workingDir := *dir
	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		workingDir = wd
	}

	c := client.New(serverAddr())
	meta, err := c.CreateSession(context.Background(), client.CreateSessionRequest{
		Name:       *name,
		Tool:       *tool,
		WorkingDir: workingDir,
	})
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	fmt.Printf("Created session %s (%s)\n", meta.ID, meta.Name)
	fmt.Printf("Attach with: lineforge attach %s\n", meta.ID)
	return nil
}

func runList(args []string) error {
	c := client.New(serverAddr())
	sessions, err := c.ListSessions(context.Background())
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions.")
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("%s  %-10s  %-8s  %s\n", s.ID, s.Tool, s.Status.String(), s.Name)
	}
	return nil
}

func runKill(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: lineforge kill <id>")
	}
	c := client.New(serverAddr())
	if err := c.Stop(context.Background(), args[0]); err != nil {
		return fmt.Errorf("stopping session: %w", err)
	}
	fmt.Printf("Stopped session %s\n", args[0])
	return nil
}

func runSettings() error {
	loader := config.NewLoader()
	path, err := loader.FindConfig()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	fmt.Printf("# %s\n", path)
	fmt.Print(string(data))
	return nil
}

// runAttach dials a session's attach socket directly, bypassing the HTTP
// API, and bridges the local terminal to it in raw mode.
func runAttach(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: lineforge attach <id>")
	}

	c := client.New(serverAddr())
	meta, err := c.GetSession(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("looking up session: %w", err)
	}

	var conn net.Conn
	for attempt := 0; attempt < 10; attempt++ {
		conn, err = session.DialAttach(meta.ID)
		if err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("connecting to session: %w", err)
	}
	defer conn.Close()

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("entering raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)
	}

	fmt.Fprintf(os.Stderr, "Attached to %s. Press Ctrl-] to detach.\n", meta.ID)

	return attachLoop(conn, os.Stdin, os.Stdout)
}

// attachLoop bridges stdin/stdout to conn, watching for the Ctrl-]
// detach byte (0x1D) on stdin.
func attachLoop(conn net.Conn, in *os.File, out *os.File) error {
	const detachByte = 0x1D

	done := make(chan error, 2)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := in.Read(buf)
			if n > 0 {
				for i := 0; i < n; i++ {
					if buf[i] == detachByte {
						done <- nil
						return
					}
				}
				if _, werr := conn.Write(buf[:n]); werr != nil {
					done <- werr
					return
				}
			}
			if err != nil {
				done <- err
				return
			}
		}
	}()
	go func() {
		_, err := io.Copy(out, conn)
		done <- err
	}()

	return <-done
}

// runInit interactively generates a lineforge.hjson configuration file in
// the current directory.
func runInit() error {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	showHelp := initFlags.Bool("help", false, "Show help for init command")
	initFlags.BoolVar(showHelp, "h", false, "Show help for init command")
	initFlags.Parse(os.Args[2:])

	if *showHelp {
		fmt.Println(`Usage: lineforge init [options]

Create a new lineforge.hjson configuration file in the current directory.

This command walks you through setting up a session manager configuration
with interactive prompts. The generated file is fully commented to help
you understand and customize all available options.

Options:
  -h, -help    Show this help message

Examples:
  lineforge init
  cd myproject && lineforge init

After running init:
  1. Review and edit lineforge.hjson as needed
  2. Run: lineforge
  3. Open: http://localhost:42067`)
		return nil
	}

	configFile := "lineforge.hjson"
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use a different directory", configFile)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Lineforge Configuration Setup")
	fmt.Println("=============================")
	fmt.Println()
	fmt.Println("This will create a lineforge.hjson configuration file in the current directory.")
	fmt.Println("Press Enter to accept defaults shown in [brackets].")
	fmt.Println()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	_ = filepath.Base(cwd)

	portStr := prompt(reader, "HTTP server port", "42067")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 42067
	}

	bindAddr := prompt(reader, "Bind address", "127.0.0.1")

	defaultTool := prompt(reader, "Default tool (claude or codex)", "claude")
	if _, err := session.ParseToolKind(defaultTool); err != nil {
		return fmt.Errorf("invalid default tool: %w", err)
	}

	fmt.Println()
	yoloStr := prompt(reader, "Pass the skip-permissions flag to every session by default? (y/n)", "n")
	yoloMode := strings.ToLower(yoloStr) == "y"

	fmt.Println()
	itermStr := prompt(reader, "Open new sessions in iTerm2 automatically? (y/n)", "n")
	itermEnabled := strings.ToLower(itermStr) == "y"

	configContent := generateConfig(port, bindAddr, defaultTool, yoloMode, itermEnabled)

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Println()
	fmt.Printf("Created %s\n", configFile)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit lineforge.hjson as needed")
	fmt.Println("  2. Run: lineforge")
	fmt.Printf("  3. Open: http://localhost:%d\n", port)
	fmt.Println()

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

func generateConfig(port int, bind, defaultTool string, yoloMode, itermEnabled bool) string {
	var sb strings.Builder

	sb.WriteString(`{
  // =============================================================================
  // Lineforge Configuration
  // =============================================================================
  //
  // This is an HJSON file (JSON with comments and relaxed syntax).

  // ---------------------------------------------------------------------------
  // HTTP Server
  // ---------------------------------------------------------------------------
  server: {
`)
	fmt.Fprintf(&sb, "    port: %d\n", port)
	fmt.Fprintf(&sb, "    bind: %q\n", bind)
	sb.WriteString(`  }

  // ---------------------------------------------------------------------------
  // Coding Agent Tools
  // ---------------------------------------------------------------------------
  tools: {
`)
	fmt.Fprintf(&sb, "    default: %q\n", defaultTool)
	sb.WriteString(`    // path: "" // override the executable path looked up on PATH
  }

  // ---------------------------------------------------------------------------
  // Session Storage
  // ---------------------------------------------------------------------------
  sessions: {
    log_retention_days: 7
    max_log_lines: 10000
  }

`)
	fmt.Fprintf(&sb, "  yolo_mode: %t\n\n", yoloMode)
	sb.WriteString(`  iterm: {
`)
	fmt.Fprintf(&sb, "    enabled: %t\n", itermEnabled)
	sb.WriteString(`  }

  logging: {
    level: "info"
    format: "text"
  }
}
`)
	return sb.String()
}
