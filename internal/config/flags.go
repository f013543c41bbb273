package config

import "flag"

// Flags holds command-line overrides for a FlagSet.
type Flags struct {
	Config    *string
	Debug     *bool
	LogFile   *string
	Workers   *int
	Budget    *int
	StaticSet *string
}

// RegisterFlags registers the shared overrides on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Config:    fs.String("config", "", "Path to config file"),
		Debug:     fs.Bool("debug", false, "Enable debug logging"),
		LogFile:   fs.String("log", "", "Log file path"),
		Workers:   fs.Int("workers", 0, "Parallel propagation workers"),
		Budget:    fs.Int("budget", 0, "Max probe updates per frame"),
		StaticSet: fs.String("static-set", "", "Active static light set (a or b)"),
	}
}

// Apply applies CLI flag overrides to the config.
func (f *Flags) Apply(cfg *Config) {
	if *f.Debug {
		cfg.Logging.Level = "debug"
	}
	if *f.LogFile != "" {
		cfg.Logging.LogFile = *f.LogFile
	}
	if *f.Workers > 0 {
		cfg.Build.Workers = *f.Workers
	}
	if *f.Budget > 0 {
		cfg.Runtime.MaxProbeUpdatesPerFrame = *f.Budget
	}
	if *f.StaticSet != "" {
		cfg.Runtime.StaticSet = *f.StaticSet
	}
}
