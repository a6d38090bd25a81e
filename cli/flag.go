package cli

import (
	"fmt"
	"os"

	"blackcnote/common/config"
	"blackcnote/payment"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	port         = pflag.IntP("port", "p", 3000, "the listening port")
	printVer     = pflag.BoolP("version", "v", false, "print version and exit")
	printHelp    = pflag.BoolP("help", "h", false, "print help and exit")
	logDir       = pflag.String("log-dir", "", "specify the log directory")
	configFile   = pflag.StringP("config", "c", "", "specify the config.yaml path")
	listGateways = pflag.Bool("list-gateways", false, "print supported payment gateway aliases and exit")
)

func InitCli() {
	pflag.Parse()

	if *printVer {
		fmt.Println(config.Version)
		os.Exit(0)
	}

	if *printHelp {
		help()
		os.Exit(0)
	}

	if *listGateways {
		for _, info := range payment.Aliases() {
			fmt.Printf("%-14s %s\n", info.Alias, info.Name)
		}
		os.Exit(0)
	}

	if *configFile != "" {
		viper.Set("config", *configFile)
	}
	if pflag.CommandLine.Changed("port") {
		viper.Set("port", *port)
	}
	if *logDir != "" {
		viper.Set("log_dir", *logDir)
	}
}

func help() {
	fmt.Println(config.SystemName + " " + config.Version + " - HYIP investment platform backend")
	fmt.Println("Usage: blackcnote [--port <port>] [--log-dir <log directory>] [--config <config.yaml>] [--list-gateways] [--version] [--help]")
	pflag.PrintDefaults()
}
