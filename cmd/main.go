package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/brettbedarf/docfs"
	"github.com/brettbedarf/docfs/adapters"
	"github.com/brettbedarf/docfs/config"
	"github.com/brettbedarf/docfs/editor"
	"github.com/brettbedarf/docfs/filesystem"
	"github.com/brettbedarf/docfs/internal/util"
	"github.com/brettbedarf/docfs/requests"
	"github.com/brettbedarf/docfs/server"
)

func main() {
	// Parse command line arguments
	var (
		configPath string
		verbose    int
		nodesDef   string
		storeDef   string
		catPath    string
		printTree  bool
		umount     bool
	)
	flag.StringVar(&configPath, "config", "", "Path to config file (.yaml, .yml or .json)")
	flag.StringVar(&configPath, "c", "", "--config (shorthand)")
	flag.StringVar(&nodesDef, "nodes", "", "Path to node descriptors file")
	flag.StringVar(&nodesDef, "n", "", "--nodes (shorthand)")
	flag.StringVar(&storeDef, "store", "", "Path to content store definition file. Default is an in-memory store.")
	flag.StringVar(&storeDef, "s", "", "--store (shorthand)")
	flag.StringVar(&catPath, "cat", "", "Open the file at this tree path and print its content")
	flag.BoolVar(&printTree, "print", false, "Print the synced tree")
	flag.BoolVar(&umount, "umount", false,
		"Unmount the fs first if needed before mounting again. Useful for debuggers that don't exit properly.")
	flag.BoolVar(&umount, "u", false, "--umount (shorthand)")
	flag.IntVar(&verbose, "verbose", config.InfoVerbose, "Log verbosity level between 1 (error) and 5 (trace). Default is 3 (info).")
	flag.IntVar(&verbose, "v", config.InfoVerbose, "--verbose (shorthand)")
	flag.Parse()

	// Load config; explicit -v wins over the file
	override := &config.ConfigOverride{}
	if configPath != "" {
		fileOverride, err := config.LoadConfigOverrideFile(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", configPath, err)
			os.Exit(1)
		}
		override = fileOverride
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "v" || f.Name == "verbose" {
			override.LogLvl = &verbose
		}
	})
	cfg := config.NewConfig(override)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	util.InitializeLogger(cfg.LogLvl)
	logger := util.GetLogger("main")

	mnt := flag.Arg(0)
	logger.Info().Str("config", configPath).Str("nodes", nodesDef).Str("store", storeDef).Str("mnt", mnt).
		Msg("docfs initializing")

	// Content store
	registry := adapters.NewRegistry()
	adapters.RegisterBuiltins(registry, cfg)
	store, err := newStore(registry, storeDef)
	if err != nil {
		logger.Fatal().Err(err).Str("store", storeDef).Msg("Failed to create content store")
	}
	store = adapters.WithCache(store, cfg)

	// Tree
	fs := filesystem.Init()
	if nodesDef != "" {
		synced, err := syncDescriptors(fs, store, nodesDef)
		if err != nil {
			logger.Fatal().Err(err).Str("nodes", nodesDef).Msg("Failed to load node descriptors")
		}
		logger.Info().Int("synced", synced).Int("nodes", fs.Len()).Msg("Synced node descriptors")
	} else {
		logger.Warn().Msg("No node descriptors file provided")
	}

	snapshot := fs.Snapshot()
	logger.Debug().Int("topLevel", len(snapshot)).Msg("Tree snapshot ready")
	if printTree {
		printNodes(snapshot, 0)
	}

	if catPath != "" {
		if err := cat(fs, store, cfg, catPath); err != nil {
			logger.Fatal().Err(err).Str("path", catPath).Msg("Failed to open file")
		}
	}

	if mnt == "" {
		if !printTree && catPath == "" {
			logger.Fatal().Msg("Mount point not specified; it must be passed as the argument")
		}
		return
	}

	// Try unmount if requested
	if umount { // send cli command
		cmd := exec.Command("fusermount", "-u", mnt)
		// we ignore error here if not already mounted
		cmd.Run() // nolint:errcheck
	}

	srv := server.New(fs, store, cfg)
	if err := srv.Serve(mnt); err != nil {
		logger.Fatal().Err(err).Msg("Failed to mount filesystem")
	}

	// Setup signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	logger.Info().Str("mountpoint", mnt).Msg("Filesystem mounted successfully")

	// Wait for termination signal
	sig := <-signalChan
	logger.Info().Str("signal", sig.String()).Msg("Received signal, unmounting filesystem")

	if err := srv.Unmount(); err != nil {
		logger.Error().Err(err).Msg("Failed to unmount filesystem")
	} else {
		logger.Info().Msg("Filesystem unmounted successfully")
	}
}

func newStore(registry *adapters.Registry, storeDef string) (docfs.ContentStore, error) {
	if storeDef == "" {
		return adapters.NewMemoryStore(), nil
	}
	raw, err := os.ReadFile(storeDef)
	if err != nil {
		return nil, err
	}
	return registry.NewStore(raw)
}

// syncDescriptors feeds every descriptor in file order, which need not be
// top-down, and seeds inline bodies into store
func syncDescriptors(fs *filesystem.FileSystem, store docfs.ContentStore, path string) (int, error) {
	logger := util.GetLogger("main.sync")

	entries, err := requests.LoadDescriptorFile(path)
	if err != nil {
		return 0, err
	}
	synced := 0
	for _, entry := range entries {
		desc := entry.Descriptor
		if !fs.SyncNode(desc) {
			logger.Warn().Str("parentPath", desc.ParentPath).Str("name", desc.Name).Str("contentID", desc.ContentID).
				Msg("Descriptor rejected")
			continue
		}
		synced++
		if entry.Content != nil {
			if err := store.Put(context.Background(), desc.ContentID, entry.Content); err != nil {
				logger.Error().Err(err).Str("contentID", desc.ContentID).Msg("Failed to seed content")
			}
		}
	}
	return synced, nil
}

func cat(fs *filesystem.FileSystem, store docfs.ContentStore, cfg *config.Config, path string) error {
	viewer := editor.NewViewer(fs, store, &editor.Options{Timeout: cfg.StoreTimeout})
	if err := viewer.Open(context.Background(), path); err != nil {
		return err
	}
	defer viewer.Close()
	fmt.Printf("==> %s <==\n%s\n", viewer.Title(), viewer.Content())
	return nil
}

func printNodes(nodes []*filesystem.Node, depth int) {
	for _, n := range nodes {
		name := n.Name()
		if n.IsDir() {
			name += filesystem.Separator
		}
		fmt.Printf("%s%s\t%s\n", strings.Repeat("  ", depth), name, n.ContentID())
		if n.IsDir() {
			printNodes(n.Children(), depth+1)
		}
	}
}
