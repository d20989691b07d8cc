// configgen writes or validates a starter config.toml for codymapperd or
// codyc.
package main

import (
	"flag"
	"log"

	"github.com/modmap/cody/internal/config"
)

func main() {
	kind := flag.String("kind", "helper", "config kind: helper|client")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		switch *kind {
		case "helper":
			if _, err := config.LoadHelperConfig(path); err != nil {
				log.Fatal(err)
			}
		case "client":
			if _, err := config.LoadClientConfig(path); err != nil {
				log.Fatal(err)
			}
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}

func defaultPath(kind string) string {
	switch kind {
	case "helper":
		return "cmd/codymapperd/codymapperd.toml"
	case "client":
		return "cmd/codyc/codyc.toml"
	default:
		log.Fatalf("unknown kind: %s", kind)
		return ""
	}
}
