package config

// Values injected at build time via ldflags.
// EmbeddedTVDBKey serves as a default and can be overridden by the
// environment or the config file.
//
// Build with:
//   go build -ldflags "-X 'github.com/missingtv/missingtv/internal/config.EmbeddedTVDBKey=xxx' \
//                      -X 'github.com/missingtv/missingtv/internal/config.Version=v1.2.0'"
var (
	EmbeddedTVDBKey string
	Version         = "dev"
)
