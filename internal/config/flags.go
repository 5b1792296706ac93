package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagServer    = flag.String("server", "", "Simulation server URL")
	flagTransport = flag.String("transport", "", "Snapshot transport: poll or stream")
	flagMap       = flag.String("map", "", "Path to the city map")
	flagAssets    = flag.String("assets", "", "Asset root directory or URL")
	flagAgents    = flag.Int("agents", 0, "Number of agents to request on init")
	flagLogFile   = flag.String("log-file", "", "Write logs to this file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagServer != "" {
		cfg.Server.URL = *flagServer
	}
	if *flagTransport != "" {
		cfg.Server.Transport = *flagTransport
	}
	if *flagMap != "" {
		cfg.Map.Path = *flagMap
	}
	if *flagAssets != "" {
		cfg.Assets.Root = *flagAssets
	}
	if *flagAgents > 0 {
		cfg.Server.Agents = *flagAgents
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
