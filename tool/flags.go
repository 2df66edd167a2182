package tool

import (
	"flag"

	"github.com/ayato-h/albumdrop/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.StringVar(&cfg.UseHost, "useHost", "", "override advertised host for session grants")
	flag.IntVar(&cfg.UseFTPPort, "useFtpPort", 0, "override transfer engine listen port")
	flag.IntVar(&cfg.UseAPIPort, "useApiPort", 0, "override control API listen port")
	flag.StringVar(&cfg.UseDatabasePath, "useDatabasePath", "", "override sqlite database path")
	flag.StringVar(&cfg.UseUploadFolder, "useUploadFolder", "", "override remote upload folder")
	flag.Parse()
	return cfg
}
