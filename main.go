package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"grimm.is/firegate/cmd"
	"grimm.is/firegate/internal/brand"
	"grimm.is/firegate/internal/i18n"
)

var printer = i18n.NewCLIPrinter()

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		startFlags := flag.NewFlagSet("start", flag.ExitOnError)
		configFile := configFlag(startFlags)
		startFlags.Parse(os.Args[2:])

		if err := cmd.RunStart(*configFile); err != nil {
			printer.Fprintf(os.Stderr, "Start failed: %v\n", err)
			os.Exit(1)
		}

	case "check":
		checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
		verbose := checkFlags.Bool("v", false, "Print the effective settings")
		checkFlags.Parse(os.Args[2:])

		configFile := brand.DefaultConfigPath()
		if checkFlags.NArg() > 0 {
			configFile = checkFlags.Arg(0)
		}
		if err := cmd.RunCheck(os.Stdout, configFile, *verbose); err != nil {
			printer.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "grants":
		grantsFlags := flag.NewFlagSet("grants", flag.ExitOnError)
		configFile := configFlag(grantsFlags)
		zone := grantsFlags.String("zone", "", "Only show this zone")
		grantsFlags.Parse(os.Args[2:])

		if err := cmd.RunGrants(os.Stdout, *configFile, *zone); err != nil {
			printer.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "revoke":
		revokeFlags := flag.NewFlagSet("revoke", flag.ExitOnError)
		configFile := configFlag(revokeFlags)
		revokeFlags.Parse(os.Args[2:])

		if revokeFlags.NArg() != 2 {
			printer.Fprintf(os.Stderr, "Usage: %s revoke [-c file] <zone> <source>\n", brand.BinaryName)
			os.Exit(1)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err := cmd.RunRevoke(ctx, os.Stdout, *configFile, revokeFlags.Arg(0), revokeFlags.Arg(1))
		stop()
		if err != nil {
			printer.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "diff":
		diffFlags := flag.NewFlagSet("diff", flag.ExitOnError)
		configFile := configFlag(diffFlags)
		zone := diffFlags.String("zone", "", "Only compare this zone")
		diffFlags.Parse(os.Args[2:])

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err := cmd.RunDiff(ctx, os.Stdout, *configFile, *zone)
		stop()
		if errors.Is(err, cmd.ErrDrift) {
			os.Exit(2)
		}
		if err != nil {
			printer.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "version", "-v", "--version":
		cmd.RunVersion(os.Stdout)

	case "help", "-h", "--help":
		printUsage()

	default:
		printer.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// configFlag registers -config and its -c shorthand on fs.
func configFlag(fs *flag.FlagSet) *string {
	configFile := fs.String("config", brand.DefaultConfigPath(), "Configuration file")
	fs.StringVar(configFile, "c", brand.DefaultConfigPath(), "Configuration file (short)")
	return configFile
}

func printUsage() {
	printer.Printf("%s - %s\n\n", brand.Name, brand.Description)
	printer.Printf("Usage: %s <command> [options]\n\n", brand.BinaryName)
	printer.Printf("Commands:\n")
	printer.Printf("  start  [-c file]               Run the webhook server in the foreground\n")
	printer.Printf("  check  [-v] [file]             Validate a configuration file\n")
	printer.Printf("  grants [-c file] [-zone z]     List persisted grants\n")
	printer.Printf("  revoke [-c file] zone source   Revoke one grant now (daemon stopped)\n")
	printer.Printf("  diff   [-c file] [-zone z]     Compare persisted grants with firewalld\n")
	printer.Printf("  version                        Print version information\n")
	printer.Printf("  help                           Show this help\n\n")
	printer.Printf("Configuration formats: .hcl, .json, .yaml. %s_* variables override file values.\n", brand.ConfigEnvPrefix)
}
