package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"dagtemplate/internal/catalog"
	"dagtemplate/internal/config"
	"dagtemplate/internal/storage"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  dagctl [-config file] list")
	fmt.Println("  dagctl [-config file] render <id> [yaml|json|dot]")
	fmt.Println("  dagctl [-config file] inspect <id|file>")
	fmt.Println("  dagctl [-config file] next <id> [n]")
	fmt.Println("  dagctl [-config file] export [yaml|json]")
	fmt.Println("  dagctl [-config file] publish <id>")
	fmt.Println("  dagctl [-config file] ledger <inspect|verify>")
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "dagtemplate.properties", "path to the properties file")
	flag.Usage = usage
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	args := flag.Args()
	if len(args) < 1 {
		usage()
	}

	cfg := config.LoadConfig(*configPath)
	store := storage.NewDefinitionStore(cfg.DagsDir)
	reg := catalog.Default()
	if _, err := reg.LoadFrom(store); err != nil {
		fail("Failed to load definitions", err)
	}

	var err error
	switch args[0] {
	case "list":
		err = runList(reg)
	case "render":
		if len(args) < 2 {
			usage()
		}
		err = runRender(reg, args[1], optional(args, 2, "yaml"))
	case "inspect":
		if len(args) < 2 {
			usage()
		}
		err = runInspect(reg, args[1])
	case "next":
		if len(args) < 2 {
			usage()
		}
		err = runNext(reg, args[1], optional(args, 2, "5"))
	case "export":
		err = runExport(reg, store, cfg, optional(args, 1, "yaml"))
	case "publish":
		if len(args) < 2 {
			usage()
		}
		err = runPublish(reg, cfg, args[1])
	case "ledger":
		if len(args) < 2 {
			usage()
		}
		err = runLedger(store, cfg, args[1])
	default:
		usage()
	}
	if err != nil {
		fail(args[0]+" failed", err)
	}
}

func optional(args []string, i int, def string) string {
	if len(args) > i {
		return args[i]
	}
	return def
}

func fail(msg string, err error) {
	fmt.Printf("❌ %s: %v\n", msg, err)
	os.Exit(1)
}
