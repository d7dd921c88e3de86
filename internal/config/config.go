package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir        string
	OutputDir      string
	OutputEncoding string
	SourcesConfig  string

	HTTPTimeoutMs    int
	HTTPRateLimitRPS int
	HTTPMaxAttempts  int
	Workers          int

	HEBaseURL          string
	IXPDBBaseURL       string
	RIRAdoptionURL     string
	EconomyAdoptionURL string
	NROStatsURL        string

	PDBDriver string
	PDBDSN    string

	OutputS3Bucket string
	OutputS3Prefix string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DataDir:        getEnv("DATA_DIR", filepath.Join(cwd, "out")),
		OutputDir:      getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		OutputEncoding: getEnv("OUTPUT_ENCODING", "utf-8"),
		SourcesConfig:  getEnv("SOURCES_CONFIG", ""),

		HTTPTimeoutMs:    getEnvInt("HTTP_TIMEOUT_MS", 10000),
		HTTPRateLimitRPS: getEnvInt("HTTP_RATE_LIMIT_RPS", 20),
		HTTPMaxAttempts:  getEnvInt("HTTP_MAX_ATTEMPTS", 3),
		Workers:          getEnvInt("WORKERS", 20),

		HEBaseURL:          getEnv("HE_BASE_URL", "https://bgp.he.net"),
		IXPDBBaseURL:       getEnv("IXPDB_BASE_URL", "https://api.ixpdb.net/v1"),
		RIRAdoptionURL:     getEnv("RIR_ADOPTION_URL", "https://www.nro.net/wp-content/uploads/rpki-uploads/rir-adoption.csv"),
		EconomyAdoptionURL: getEnv("ECONOMY_ADOPTION_URL", "https://www.nro.net/wp-content/uploads/rpki-uploads/economy-adoption.csv"),
		NROStatsURL:        getEnv("NRO_STATS_URL", "https://ftp.ripe.net/pub/stats/ripencc/nro-stats/latest/nro-delegated-stats"),

		PDBDriver: getEnv("PDB_DRIVER", "mysql"),
		PDBDSN:    getEnv("PDB_DSN", ""),

		OutputS3Bucket: getEnv("OUTPUT_S3_BUCKET", ""),
		OutputS3Prefix: getEnv("OUTPUT_S3_PREFIX", ""),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
