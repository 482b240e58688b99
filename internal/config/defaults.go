package config

const (
	defaultRecipesRoot    = "~/.config/cookbook/recipes"
	defaultStateDir       = "~/.local/share/cookbook/state"
	defaultLogDir         = "~/.local/share/cookbook/logs"
	defaultBuildBinary    = "make"
	defaultRequiresTarget = "require"
	defaultProvidesTarget = "provide"
	defaultBuildTimeout   = 30
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RecipesRoot: defaultRecipesRoot,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
		},
		Build: Build{
			Binary:         defaultBuildBinary,
			RequiresTarget: defaultRequiresTarget,
			ProvidesTarget: defaultProvidesTarget,
			TimeoutSeconds: defaultBuildTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
