package config

const (
	// EnvBorderlessConfigHome overrides the directory borderless keeps its configuration in
	EnvBorderlessConfigHome = "BORDERLESS_CONFIG_HOME"
	// EnvBorderlessPrivateKey overrides the path to the signing key
	EnvBorderlessPrivateKey = "BORDERLESS_PRIVATE_KEY"
	// EnvXdgConfigHome is the standard XDG base directory for configuration
	EnvXdgConfigHome = "XDG_CONFIG_HOME"
	// EnvXdgDataHome is the standard XDG base directory for user data
	EnvXdgDataHome = "XDG_DATA_HOME"
)

// NOTE: keep this up to date or the config loader won't load them
var envKeys = []string{
	EnvBorderlessConfigHome,
	EnvBorderlessPrivateKey,
	EnvXdgConfigHome,
	EnvXdgDataHome,
}
