// codyc is a demonstration compiler-side module-mapper client: it dials a
// codymapperd Unix-domain socket, connects, and issues a short scripted
// sequence of module and include-translation requests, printing the
// helper's responses to stdout.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/modmap/cody/internal/config"
	"github.com/modmap/cody/internal/cody/client"
	"github.com/modmap/cody/internal/cody/transport"
	"github.com/modmap/cody/internal/logging"
)

func main() {
	var configPath string
	var modules string
	var includes string
	flag.StringVar(&configPath, "config", "cmd/codyc/codyc.toml", "path to client config TOML")
	flag.StringVar(&modules, "modules", "iostream,fmt:io", "comma-separated modules to ask MODULE-IMPORT for")
	flag.StringVar(&includes, "includes", "", "comma-separated headers to ask INCLUDE-TRANSLATE for")
	flag.Parse()

	logging.ConfigureRuntime()
	log := logging.Logger()

	cfg, err := config.LoadClientConfig(configPath)
	if err != nil {
		log.Warn().Err(err).Msg("using built-in defaults, config load failed")
		cfg = config.ClientConfig{Socket: "/tmp/codymapperd.sock", Agent: "codyc", Ident: "codyc-session", Version: 1}
	}

	if err := run(cfg, modules, includes); err != nil {
		fmt.Fprintf(os.Stderr, "codyc: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.ClientConfig, modulesCSV, includesCSV string) error {
	conn, err := net.Dial("unix", cfg.Socket)
	if err != nil {
		return fmt.Errorf("codyc: dial: %w", err)
	}
	defer conn.Close()

	c := client.New(transport.NewNetConn(conn), cfg.Agent)

	hello, err := c.Connect(cfg.Version, cfg.Ident)
	if err != nil {
		return fmt.Errorf("codyc: connect: %w", err)
	}
	if protoErr := hello.AsError(); protoErr != nil {
		return fmt.Errorf("codyc: connect rejected: %w", protoErr)
	}
	fmt.Printf("connected: helper_version=%d helper_ident=%q\n", hello.Version, hello.Ident)

	repo, err := c.ModuleRepo()
	if err != nil {
		return fmt.Errorf("codyc: module-repo: %w", err)
	}
	fmt.Printf("repo: %s\n", repo.Path)

	for _, module := range splitCSV(modulesCSV) {
		resp, err := c.ModuleImport(module)
		if err != nil {
			return fmt.Errorf("codyc: module-import %q: %w", module, err)
		}
		printModuleResponse(module, resp)
	}

	for _, include := range splitCSV(includesCSV) {
		resp, err := c.IncludeTranslate(include)
		if err != nil {
			return fmt.Errorf("codyc: include-translate %q: %w", include, err)
		}
		printIncludeResponse(include, resp)
	}

	return nil
}

func printModuleResponse(module string, resp client.Response) {
	if protoErr := resp.AsError(); protoErr != nil {
		fmt.Printf("module %-20s -> error: %v\n", module, protoErr)
		return
	}
	fmt.Printf("module %-20s -> cmi: %s\n", module, resp.Path)
}

func printIncludeResponse(include string, resp client.Response) {
	if protoErr := resp.AsError(); protoErr != nil {
		fmt.Printf("include %-20s -> error: %v\n", include, protoErr)
		return
	}
	if resp.Path == "" {
		fmt.Printf("include %-20s -> treat as text\n", include)
		return
	}
	fmt.Printf("include %-20s -> cmi: %s\n", include, resp.Path)
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
