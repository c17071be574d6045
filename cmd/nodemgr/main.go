package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dwellir/polkadot-node-manager/cmd/flags"
	"github.com/dwellir/polkadot-node-manager/common"
	"github.com/dwellir/polkadot-node-manager/httpserver"
	"github.com/dwellir/polkadot-node-manager/installer"
	"github.com/dwellir/polkadot-node-manager/interfaces"
	"github.com/dwellir/polkadot-node-manager/metrics"
	"github.com/dwellir/polkadot-node-manager/migration"
	"github.com/dwellir/polkadot-node-manager/noderpc"
	"github.com/dwellir/polkadot-node-manager/provision"
	"github.com/dwellir/polkadot-node-manager/sessionkeys"
	"github.com/dwellir/polkadot-node-manager/svcargs"
	"github.com/dwellir/polkadot-node-manager/workload"
)

func main() {
	app := &cli.App{
		Name:  "nodemgr",
		Usage: "Provision and operate substrate-based blockchain nodes",
		Flags: flags.CommonFlags,
		Commands: []*cli.Command{
			provisionCommand(),
			buildArgsCommand(),
			migrateDataCommand(),
			migrateNodeKeyCommand(),
			sessionKeyCommand(),
			validatorCommand(),
			nodeInfoCommand(),
			setNodeKeyCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func configFromFlags(cCtx *cli.Context) provision.Config {
	return provision.Config{
		BinaryURL:         cCtx.String(flags.BinaryURLFlag.Name),
		SHA256URL:         cCtx.String(flags.SHA256URLFlag.Name),
		DockerTag:         cCtx.String(flags.DockerTagFlag.Name),
		ServiceArgs:       cCtx.String(flags.ServiceArgsFlag.Name),
		ChainSpecURL:      cCtx.String(flags.ChainSpecURLFlag.Name),
		RelaychainSpecURL: cCtx.String(flags.RelaychainSpecURLFlag.Name),
		WasmRuntimeURL:    cCtx.String(flags.WasmRuntimeURLFlag.Name),
	}
}

func provisionCommand() *cli.Command {
	return &cli.Command{
		Name:  "provision",
		Usage: "Resolve, download, verify and install the node binary",
		Flags: append([]cli.Flag{
			flags.ServiceArgsFlag,
			flags.BinaryURLFlag,
			flags.SHA256URLFlag,
			flags.DockerTagFlag,
			flags.ChainSpecURLFlag,
			flags.RelaychainSpecURLFlag,
			flags.WasmRuntimeURLFlag,
			flags.AliasFileFlag,
		}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			layout := interfaces.DefaultLayout()
			cfg := configFromFlags(cCtx)

			args, err := svcargs.Parse(cfg.ServiceArgs)
			if err != nil {
				return err
			}

			aliases, err := provision.LoadAliasTable(cCtx.String(flags.AliasFileFlag.Name))
			if err != nil {
				return err
			}

			resolver := provision.NewResolver(aliases, layout, logger)
			plan, err := resolver.Resolve(cfg, args.ChainName())
			if err != nil {
				return err
			}
			logger.Info("Resolved installation plan", slog.String("strategy", plan.Strategy.String()))

			fetcher := provision.NewFetcherFactory(logger)
			verifier := provision.NewChecksumVerifier(fetcher, logger)
			downloader := provision.NewDownloader(fetcher, verifier, logger)

			artifacts, err := downloader.DownloadAll(cCtx.Context, plan)
			if err != nil {
				return err
			}

			ins := installer.New(layout, logger)
			if err := ins.Apply(cCtx.Context, plan, artifacts); err != nil {
				return err
			}

			if wasm, ok, err := downloader.DownloadWasmRuntime(cCtx.Context, plan); err != nil {
				return err
			} else if ok {
				if err := ins.InstallWasmRuntime(wasm); err != nil {
					return err
				}
			}

			specs, err := downloader.DownloadChainSpecs(cCtx.Context, cfg, layout)
			if err != nil {
				return err
			}
			if specs.ChainSpecPath != "" {
				logger.Info("Downloaded chain spec", slog.String("path", specs.ChainSpecPath))
			}

			logger.Info("Provisioning complete")
			return nil
		},
	}
}

func buildArgsCommand() *cli.Command {
	return &cli.Command{
		Name:  "build-args",
		Usage: "Print the final ordered service argument string",
		Flags: append([]cli.Flag{
			flags.ServiceArgsFlag,
			flags.ChainSpecURLFlag,
			flags.RelaychainSpecURLFlag,
			flags.WasmRuntimeURLFlag,
			flags.RelayEndpointsFlag,
			flags.BackendFlag,
			flags.AliasFileFlag,
		}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			layout := interfaces.DefaultLayout()
			cfg := configFromFlags(cCtx)

			args, err := svcargs.Parse(cfg.ServiceArgs)
			if err != nil {
				return err
			}
			backend, err := interfaces.ParseBackend(cCtx.String(flags.BackendFlag.Name))
			if err != nil {
				return err
			}
			endpoints, err := parseRelayEndpoints(cCtx.StringSlice(flags.RelayEndpointsFlag.Name))
			if err != nil {
				return err
			}

			in := svcargs.Inputs{
				RelayEndpoints: endpoints,
				NodeKeyFile:    layout.NodeKeyFileFor(backend),
			}
			if cfg.ChainSpecURL != "" {
				in.ChainSpecPath = filepath.Join(layout.ChainSpecDir, "chain-spec.json")
			} else {
				// Aliased chains ship their spec inside the image; the
				// installer extracts it next to downloaded specs and the
				// chain token must point there.
				aliases, err := provision.LoadAliasTable(cCtx.String(flags.AliasFileFlag.Name))
				if err != nil {
					return err
				}
				if alias, ok := aliases.Lookup(args.ChainName()); ok {
					in.ChainSpecPath = alias.SpecDestination(layout.ChainSpecDir)
				}
			}
			if cfg.RelaychainSpecURL != "" {
				in.RelaychainSpecPath = filepath.Join(layout.ChainSpecDir, "relaychain-spec.json")
			}
			if cfg.WasmRuntimeURL != "" {
				in.WasmOverrideDir = layout.WasmDir
			}

			fmt.Println(args.BuildString(in))
			return nil
		},
	}
}

// parseRelayEndpoints accepts "order:url" entries; entries without a numeric
// prefix keep their position as the order.
func parseRelayEndpoints(raw []string) ([]interfaces.RelayEndpoint, error) {
	var endpoints []interfaces.RelayEndpoint
	for i, entry := range raw {
		order := i
		url := entry
		if prefix, rest, found := strings.Cut(entry, ":"); found {
			if n, err := strconv.Atoi(prefix); err == nil {
				order = n
				url = rest
			}
		}
		if url == "" {
			return nil, fmt.Errorf("%w: empty relay endpoint %q", interfaces.ErrConfiguration, entry)
		}
		endpoints = append(endpoints, interfaces.RelayEndpoint{URL: url, Order: order})
	}
	return endpoints, nil
}

func newMigrationEngine(logger *slog.Logger) *migration.Engine {
	layout := interfaces.DefaultLayout()
	supervisor := workload.EitherSupervisor{
		workload.SystemdSupervisor{Unit: workload.UnitFor(interfaces.BackendBinary)},
		workload.SystemdSupervisor{Unit: workload.UnitFor(interfaces.BackendSnap)},
	}
	return migration.NewEngine(layout, supervisor, logger)
}

var reverseFlag = &cli.BoolFlag{
	Name:  "reverse",
	Usage: "migrate from the snap layout back to the binary layout",
}
var dryRunFlag = &cli.BoolFlag{
	Name:  "dry-run",
	Usage: "print the migration plan without changing anything",
}

func migrateDataCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate-data",
		Usage: "Move the chain database between backend data layouts",
		Flags: append([]cli.Flag{reverseFlag, dryRunFlag}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			result, err := newMigrationEngine(logger).MigrateData(cCtx.Context,
				cCtx.Bool(reverseFlag.Name), cCtx.Bool(dryRunFlag.Name))
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func migrateNodeKeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate-node-key",
		Usage: "Move the network identity key between backend layouts",
		Flags: append([]cli.Flag{reverseFlag, dryRunFlag}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			result, err := newMigrationEngine(logger).MigrateNodeKey(cCtx.Context,
				cCtx.Bool(reverseFlag.Name), cCtx.Bool(dryRunFlag.Name))
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func dialManager(cCtx *cli.Context, logger *slog.Logger) (*sessionkeys.Manager, *noderpc.Client, error) {
	signer, err := configureSigner(cCtx)
	if err != nil {
		return nil, nil, err
	}
	client, err := noderpc.Dial(cCtx.Context, cCtx.String(flags.RPCEndpointFlag.Name), signer, logger)
	if err != nil {
		return nil, nil, err
	}
	return sessionkeys.NewManager(client, signer, logger), client, nil
}

func configureSigner(cCtx *cli.Context) (interfaces.ExtrinsicSigner, error) {
	tool := cCtx.String(flags.SignerToolFlag.Name)
	if tool == "" {
		return nil, nil
	}
	secretFile := cCtx.String(flags.SignerSecretFileFlag.Name)
	secret, err := os.ReadFile(secretFile)
	if err != nil {
		return nil, fmt.Errorf("%w: reading signer secret: %v", interfaces.ErrConfiguration, err)
	}
	return noderpc.NewCommandSigner(tool, strings.TrimSpace(string(secret)))
}

var rpcFlags = []cli.Flag{
	flags.RPCEndpointFlag,
	flags.SignerToolFlag,
	flags.SignerSecretFileFlag,
}

func sessionKeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "session-key",
		Usage: "Session key operations against the running node",
		Subcommands: []*cli.Command{
			{
				Name:  "rotate",
				Usage: "Rotate the node's session keys and print the new public key",
				Flags: append(append([]cli.Flag{}, rpcFlags...), flags.CommonFlags...),
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)
					mgr, client, err := dialManager(cCtx, logger)
					if err != nil {
						return err
					}
					defer client.Close()
					key, err := mgr.Rotate(cCtx.Context)
					if err != nil {
						return err
					}
					fmt.Println(key.String())
					return nil
				},
			},
			{
				Name:      "has",
				Usage:     "Check whether the node's keystore holds the given session key",
				ArgsUsage: "<session-key>",
				Flags:     append(append([]cli.Flag{}, rpcFlags...), flags.CommonFlags...),
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)
					mgr, client, err := dialManager(cCtx, logger)
					if err != nil {
						return err
					}
					defer client.Close()
					has, err := mgr.Has(cCtx.Context, cCtx.Args().First())
					if err != nil {
						return err
					}
					fmt.Println(has)
					return nil
				},
			},
			{
				Name:      "insert",
				Usage:     "Insert a keypair derived from a mnemonic into the keystore",
				ArgsUsage: "<address>",
				Flags: append(append([]cli.Flag{
					&cli.StringFlag{
						Name:     "mnemonic-file",
						Required: true,
						Usage:    "file holding the key mnemonic",
					},
				}, rpcFlags...), flags.CommonFlags...),
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)
					mnemonic, err := os.ReadFile(cCtx.String("mnemonic-file"))
					if err != nil {
						return fmt.Errorf("%w: reading mnemonic: %v", interfaces.ErrConfiguration, err)
					}
					mgr, client, err := dialManager(cCtx, logger)
					if err != nil {
						return err
					}
					defer client.Close()
					return mgr.Insert(cCtx.Context, strings.TrimSpace(string(mnemonic)), cCtx.Args().First())
				},
			},
		},
	}
}

func validatorCommand() *cli.Command {
	return &cli.Command{
		Name:  "validator",
		Usage: "Validator assignment operations",
		Subcommands: []*cli.Command{
			{
				Name:  "find-address",
				Usage: "Find the validator address whose queued session keys live in this node's keystore",
				Flags: append(append([]cli.Flag{}, rpcFlags...), flags.CommonFlags...),
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)
					mgr, client, err := dialManager(cCtx, logger)
					if err != nil {
						return err
					}
					defer client.Close()
					addr, found, err := mgr.FindValidatorAddress(cCtx.Context)
					if err != nil {
						return err
					}
					if !found {
						return fmt.Errorf("no queued validator address matches this node's keystore")
					}
					fmt.Println(addr.String())
					return nil
				},
			},
			{
				Name:      "next-era",
				Usage:     "Check whether the address validates with this node's keys next era",
				ArgsUsage: "<address>",
				Flags:     append(append([]cli.Flag{}, rpcFlags...), flags.CommonFlags...),
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)
					mgr, client, err := dialManager(cCtx, logger)
					if err != nil {
						return err
					}
					defer client.Close()
					validating, err := mgr.IsValidatingNextEra(cCtx.Context, cCtx.Args().First())
					if err != nil {
						return err
					}
					fmt.Println(validating)
					return nil
				},
			},
			{
				Name:      "start",
				Usage:     "Rotate a fresh session key and submit the set-keys extrinsic",
				ArgsUsage: "[address]",
				Flags:     append(append([]cli.Flag{}, rpcFlags...), flags.CommonFlags...),
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)
					mgr, client, err := dialManager(cCtx, logger)
					if err != nil {
						return err
					}
					defer client.Close()
					result, err := mgr.StartValidating(cCtx.Context, cCtx.Args().First())
					if err != nil {
						return err
					}
					return printJSON(result)
				},
			},
		},
	}
}

func nodeInfoCommand() *cli.Command {
	return &cli.Command{
		Name:  "node-info",
		Usage: "Print local workload facts and what the node reports about itself",
		Flags: append(append([]cli.Flag{}, rpcFlags...), flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			layout := interfaces.DefaultLayout()

			info := map[string]any{
				"local": workload.Collect(cCtx.Context, layout),
			}
			if client, err := noderpc.Dial(cCtx.Context, cCtx.String(flags.RPCEndpointFlag.Name), nil, logger); err == nil {
				defer client.Close()
				if health, err := client.Health(cCtx.Context); err == nil {
					info["health"] = health
				}
				if version, err := client.SystemVersion(cCtx.Context); err == nil {
					info["version"] = version
				}
				if height, err := client.BlockHeight(cCtx.Context); err == nil {
					info["blockHeight"] = height
				}
				if roles, err := client.NodeRoles(cCtx.Context); err == nil {
					info["roles"] = roles
				}
				if peers, err := client.Peers(cCtx.Context); err == nil {
					info["peers"] = peers
				}
			}
			return printJSON(info)
		},
	}
}

func setNodeKeyCommand() *cli.Command {
	return &cli.Command{
		Name:      "set-node-key",
		Usage:     "Write the network identity key to the managed key path",
		ArgsUsage: "<hex-key>",
		Flags:     append([]cli.Flag{flags.BackendFlag}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			layout := interfaces.DefaultLayout()
			backend, err := interfaces.ParseBackend(cCtx.String(flags.BackendFlag.Name))
			if err != nil {
				return err
			}
			return workload.WriteNodeKey(layout, backend, cCtx.Args().First(), logger)
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the operator action API",
		Flags: append([]cli.Flag{
			flags.ListenAddrFlag,
			flags.MetricsAddrFlag,
			flags.RPCEndpointFlag,
			flags.SignerToolFlag,
			flags.SignerSecretFileFlag,
			flags.PprofFlag,
			flags.DrainSecondsFlag,
		}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			layout := interfaces.DefaultLayout()

			signer, err := configureSigner(cCtx)
			if err != nil {
				return err
			}

			endpoint := cCtx.String(flags.RPCEndpointFlag.Name)
			logger.Info("Connecting to node RPC", slog.String("endpoint", endpoint))
			client, err := noderpc.Dial(context.Background(), endpoint, signer, logger)
			if err != nil {
				logger.Error("Failed to dial node RPC", "err", err)
				return err
			}
			defer client.Close()

			m := metrics.New(common.PackageName)
			engine := newMigrationEngine(logger)
			keys := sessionkeys.NewManager(client, signer, logger)
			handler := httpserver.NewHandler(keys, engine, client, layout, m, logger)

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))
			server, err := httpserver.New(cfg, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
