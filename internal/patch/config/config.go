// Package config parses the pipeline's command-line flags into a
// directory-path record and provides the debug logger every stage writes
// through.
package config

import (
	"flag"
	"fmt"
	"os"
)

// Config holds the on-disk layout the pipeline reads from and writes to.
type Config struct {
	JPCC            string // directory of original compressed scripts
	ENCC            string // directory of rebuilt compressed scripts
	DecompressJPCC  string // decompressed JP intermediates
	DecompressENCC  string // decompressed EN intermediates
	JPTXT           string // extracted JP translator text
	ENTXT           string // translated EN translator text
	HDIFile         string // path to the disk image
	TextArchive     string // path to a bundled translator-text archive
	Operation       string // decompress | compress | extract | inject | import-to-image | archive-texts | restore-texts | all
	DebugMode       bool
	Parallel        bool
	ShowVersion     bool
}

const version = "0.1.0"

// ParseFlags reads os.Args[1:] into a Config.
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.JPCC, "jpcc", "jpcc", "directory of original compressed scripts")
	flag.StringVar(&cfg.ENCC, "encc", "encc", "directory of rebuilt compressed scripts")
	flag.StringVar(&cfg.DecompressJPCC, "decompress-jpcc", "decompress_jpcc", "directory of decompressed JP scripts")
	flag.StringVar(&cfg.DecompressENCC, "decompress-encc", "decompress_encc", "directory of decompressed EN scripts")
	flag.StringVar(&cfg.JPTXT, "jptxt", "jptxt", "directory of extracted JP translator text")
	flag.StringVar(&cfg.ENTXT, "entxt", "entxt", "directory of translated EN translator text")
	flag.StringVar(&cfg.HDIFile, "hdi", "", "path to the disk image")
	flag.StringVar(&cfg.TextArchive, "text-archive", "translations.onpair", "path to a bundled translator-text archive")
	flag.BoolVar(&cfg.DebugMode, "d", false, "enable debug logging")
	flag.BoolVar(&cfg.Parallel, "p", true, "process files in a batch concurrently")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <operation>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  operation: decompress | compress | extract | inject | import-to-image | archive-texts | restore-texts | all\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() > 0 {
		cfg.Operation = flag.Arg(0)
	}
	return cfg
}

// HandleVersion prints the version and reports whether the caller should
// exit immediately.
func (c *Config) HandleVersion() bool {
	if !c.ShowVersion {
		return false
	}
	fmt.Println("ccpatch " + version)
	return true
}

// DebugLogger implements interfaces.Logger, gated on Config.DebugMode.
type DebugLogger struct {
	enabled bool
}

func NewDebugLogger(enabled bool) *DebugLogger {
	return &DebugLogger{enabled: enabled}
}

func (l *DebugLogger) Printf(format string, args ...any) {
	if !l.enabled {
		return
	}
	fmt.Fprintf(os.Stderr, "[debug] "+format+"\n", args...)
}
