// Command spv-core is the air-gapped SPV signing core's command-line
// entrypoint. It speaks JSON over stdin/stdout for the three data-heavy
// operations (validate-envelope, verify-chain, build-tx) via a
// Request/Response harness, and plain flags for the small offline
// sanity-check helpers (wif-info, address-info, verify-snapshot). Every
// operation is a pure function of its input and the compiled-in (or
// config-overridden) checkpoint; there is no network and no retry.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
)

// logLevel is the shared handler level behind every logger this process
// creates. It starts at Info and is lowered or raised once a subcommand
// loads its Config, so early (pre-config) log lines and later ones share
// one handler instance instead of needing to be rebuilt.
var logLevel = new(slog.LevelVar)

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// applyLogLevel sets logLevel from a Config's log_level string, already
// validated by config.Validate against the same four values handled here.
func applyLogLevel(level string) {
	switch level {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "warn":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
	}
}

const usageCommands = "commands: validate-envelope | verify-chain | build-tx | wif-info --wif <s> | address-info --address <s> | verify-snapshot --signer-pubkeys <hex>[,<hex>...] [< stdin]"

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: spv-core <command> [args] (JSON request on stdin for validate-envelope/verify-chain/build-tx/verify-snapshot)")
	fmt.Fprintln(os.Stderr, usageCommands)
}

func main() {
	logger := newLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	command := os.Args[1]
	argv := os.Args[2:]
	var code int

	switch command {
	case "validate-envelope":
		code = cmdValidateEnvelopeMain(logger, argv)
	case "verify-chain":
		code = cmdVerifyChainMain(logger, argv)
	case "build-tx":
		code = cmdBuildTxMain(logger, argv)
	case "verify-snapshot":
		code = cmdVerifySnapshotMain(logger, argv)
	case "wif-info":
		code = cmdWIFInfoMain(logger, argv)
	case "address-info":
		code = cmdAddressInfoMain(logger, argv)
	default:
		fmt.Fprintln(os.Stderr, "unknown command:", command)
		printUsage()
		code = 2
	}

	if code != 0 {
		os.Exit(code)
	}
}

// registerConfigFlag adds the --config flag shared by every subcommand that
// can use a checkpoint override file; it is registered on each FlagSet individually since
// flag.FlagSet values aren't shared across subcommands.
func registerConfigFlag(fs *flag.FlagSet) *string {
	return fs.String("config", "", "path to a JSON config file overriding the compiled-in checkpoint")
}
