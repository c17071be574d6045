package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/dwellir/polkadot-node-manager/common"
	"github.com/dwellir/polkadot-node-manager/httpserver"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJSONFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUIDFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var BinaryURLFlag = &cli.StringFlag{
	Name:  "binary-url",
	Usage: "space-separated URLs of the node binary, archive or deb package",
}

var SHA256URLFlag = &cli.StringFlag{
	Name:  "sha256-url",
	Usage: "URL of a sha256 checksum listing, or one URL per binary URL",
}

var DockerTagFlag = &cli.StringFlag{
	Name:  "docker-tag",
	Usage: "container image tag to extract the node binary from, either a bare tag for alias chains or a full repo:tag reference",
}

var ServiceArgsFlag = &cli.StringFlag{
	Name:  "service-args",
	Usage: "raw service arguments, must carry --chain and --rpc-port",
}

var ChainSpecURLFlag = &cli.StringFlag{
	Name:  "chain-spec-url",
	Usage: "URL of a custom chain spec",
}

var RelaychainSpecURLFlag = &cli.StringFlag{
	Name:  "relaychain-spec-url",
	Usage: "URL of a custom relaychain spec for parachain nodes",
}

var WasmRuntimeURLFlag = &cli.StringFlag{
	Name:  "wasm-runtime-url",
	Usage: "URL of a tar.gz with wasm runtime overrides",
}

var AliasFileFlag = &cli.StringFlag{
	Name:  "alias-file",
	Usage: "YAML file with chain image aliases, built-in table when absent",
}

var BackendFlag = &cli.StringFlag{
	Name:  "backend",
	Value: "binary",
	Usage: "workload backend: binary or snap",
}

var RPCEndpointFlag = &cli.StringFlag{
	Name:  "rpc-endpoint",
	Value: "http://127.0.0.1:9944",
	Usage: "node RPC endpoint",
}

var SignerToolFlag = &cli.StringFlag{
	Name:  "signer-tool",
	Usage: "external tool used to sign extrinsics",
}

var SignerSecretFileFlag = &cli.StringFlag{
	Name:  "signer-secret-file",
	Usage: "file holding the signing secret passed to the signer tool",
}

var RelayEndpointsFlag = &cli.StringSliceFlag{
	Name:  "relay-endpoint",
	Usage: "relaychain RPC endpoint as order:url, repeatable",
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogJSONFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUIDFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "polkadot-node-manager",
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}

var CommonFlags = []cli.Flag{
	LogJSONFlag,
	LogDebugFlag,
	LogUIDFlag,
	LogServiceFlag,
}
