package main

import (
	"os"

	config "github.com/avatarctic/node-cache/configs"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		listen   string
		node     string
		record   bool
		dbPath   string
		backend  string
		compress bool
		chainID  uint64
	)

	root := &cobra.Command{
		Use:           "node-cache",
		Short:         "Caching JSON-RPC proxy that records node responses and replays them",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("host") {
				if err := cfg.SetListenAddress(listen); err != nil {
					return err
				}
			}
			if flags.Changed("node") {
				cfg.Upstream.URL = node
			}
			if flags.Changed("record") {
				cfg.Cache.Record = record
			}
			if flags.Changed("db-file-path") {
				cfg.Recorder.FilePath = dbPath
			}
			if flags.Changed("backend") {
				cfg.Recorder.Backend = backend
			}
			if flags.Changed("compress") {
				cfg.Recorder.Compress = compress
			}
			if flags.Changed("chain-id") {
				cfg.Cache.ChainID = chainID
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&listen, "host", "127.0.0.1:7777", "address to listen on (host:port)")
	flags.StringVar(&node, "node", "", "upstream node URL; empty serves from the cache only")
	flags.BoolVar(&record, "record", true, "record upstream responses into the cache")
	flags.StringVar(&dbPath, "db-file-path", "cache.db", "snapshot file for the file recorder")
	flags.StringVar(&backend, "backend", config.BackendFile, "recorder backend: file, redis, pebble or sql")
	flags.BoolVar(&compress, "compress", false, "zstd-compress the snapshot file")
	flags.Uint64Var(&chainID, "chain-id", 1, "chain id answered for eth_chainId")

	return root
}
