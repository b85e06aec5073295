// Package config initializes the application's configuration. It uses Viper
// to read settings from a config file and environment variables, providing
// a unified configuration system.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Init sets up Viper defaults, config file search paths, and environment
// variable handling. Call once at startup; cfgFile, when non-empty, pins an
// explicit config file.
func Init(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/ptc/")
		viper.AddConfigPath("$HOME/.ptc")
	}

	viper.SetDefault("crawler.seeds", []string{
		"https://www.ausschreibungen-aktuell.de/",
		"https://www.ausschreibungsmonitor.de/",
		"https://www.druckportal.de/",
		"https://www.auftragsboerse.de/",
		"https://www.bundesanzeiger.de/",
		"https://www.aumass.de/ausschreibungen?params=druck/",
		"https://www.ibau.de/auftraege-nach-branche/dienstleistungen/druckauftraege-druckdienstleistungen/",
		"https://oeffentlichevergabe.de/ui/de/search/",
	})
	viper.SetDefault("crawler.criteria", []string{
		"22000000-0", "22100000-1", "22110000-4", "22120000-7", "22450000-9",
		"22460000-2", "79800000-2", "79810000-5", "79820000-8", "79823000-9",
		"Bücher", "Magazine", "Broschüren", "Festschriften", "Zeitungen",
		"Druckerzeugnisse",
	})
	viper.SetDefault("crawler.user_agents", []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Safari/605.1.15",
	})
	viper.SetDefault("crawler.proxies", []string{})
	viper.SetDefault("crawler.concurrency", 10)
	viper.SetDefault("crawler.request_timeout", "15s")
	viper.SetDefault("crawler.max_attempts", 3)
	viper.SetDefault("crawler.backoff_base", "500ms")
	viper.SetDefault("crawler.backoff_cap", "60s")
	viper.SetDefault("crawler.retry_after_default", "60s")

	viper.SetDefault("robots.timeout", "10s")
	viper.SetDefault("robots.default_delay", "1s")
	viper.SetDefault("robots.max_domains", 256)

	viper.SetDefault("render.concurrency", 2)
	viper.SetDefault("render.domains", []string{})
	viper.SetDefault("render.wait_selector", "body")

	viper.SetDefault("output.path", "data/results.csv")
	viper.SetDefault("output.format", "csv")
	viper.SetDefault("output.locale", "de")

	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "crawler.log")

	viper.SetEnvPrefix("PTC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			// Defaults plus env vars are a complete configuration.
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}
