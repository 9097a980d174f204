package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed clustering.yaml
var clusteringYAML []byte

type Config struct {
	Database   DatabaseConfig
	Embedding  EmbeddingConfig
	Library    LibraryConfig
	Clustering ClusteringConfig
}

type DatabaseConfig struct {
	URL           string // PostgreSQL connection URL
	MaxOpenConns  int    // Maximum open connections (default 25)
	MaxIdleConns  int    // Maximum idle connections (default 5)
	HNSWIndexPath string // Path to persist the face HNSW index (optional, rebuilt on startup if empty)
}

type EmbeddingConfig struct {
	URL      string  // face embedding server, defaults to http://localhost:8000
	Model    string  // model name for reference only
	MinScore float64 // faces below this detection score are discarded (default 0.5)
	MaxSize  int     // images larger than this are downscaled before upload (default 2048)
}

type LibraryConfig struct {
	Root         string // photo library root; image IDs are paths relative to it
	HEICProxyDir string // directory with pre-rendered HEIC proxies, keyed by file stem
	RawProxyDir  string // directory with pre-rendered RAW proxies, keyed by file stem
}

// ClusteringConfig holds the default DBSCAN and reconciliation parameters.
// Defaults ship in the embedded clustering.yaml; environment variables and
// CLI flags override them per run.
type ClusteringConfig struct {
	Full struct {
		Eps        float64 `yaml:"eps"`
		MinSamples int     `yaml:"min_samples"`
	} `yaml:"full"`
	Incremental struct {
		Eps            float64 `yaml:"eps"`
		MinSamples     int     `yaml:"min_samples"`
		MatchThreshold float64 `yaml:"match_threshold"`
		MaxIterations  int     `yaml:"max_iterations"`
	} `yaml:"incremental"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var clustering ClusteringConfig
	if err := yaml.Unmarshal(clusteringYAML, &clustering); err != nil {
		// Embedded file, so this can only happen if the defaults are broken at build time.
		panic("failed to unmarshal embedded clustering.yaml: " + err.Error())
	}

	clustering.Full.Eps = envFloat("CLUSTER_EPS", clustering.Full.Eps)
	clustering.Full.MinSamples = envInt("CLUSTER_MIN_SAMPLES", clustering.Full.MinSamples)
	clustering.Incremental.Eps = envFloat("CLUSTER_NEW_EPS", clustering.Incremental.Eps)
	clustering.Incremental.MinSamples = envInt("CLUSTER_NEW_MIN_SAMPLES", clustering.Incremental.MinSamples)
	clustering.Incremental.MatchThreshold = envFloat("CLUSTER_MATCH_THRESHOLD", clustering.Incremental.MatchThreshold)
	clustering.Incremental.MaxIterations = envInt("CLUSTER_MAX_ITERATIONS", clustering.Incremental.MaxIterations)

	return &Config{
		Database: DatabaseConfig{
			URL:           os.Getenv("DATABASE_URL"),
			MaxOpenConns:  envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  envInt("DATABASE_MAX_IDLE_CONNS", 5),
			HNSWIndexPath: os.Getenv("HNSW_INDEX_PATH"),
		},
		Embedding: EmbeddingConfig{
			URL:      os.Getenv("EMBEDDING_URL"),
			Model:    os.Getenv("EMBEDDING_MODEL"),
			MinScore: envFloat("EMBEDDING_MIN_SCORE", 0.5),
			MaxSize:  envInt("EMBEDDING_MAX_IMAGE_SIZE", 2048),
		},
		Library: LibraryConfig{
			Root:         os.Getenv("LIBRARY_ROOT"),
			HEICProxyDir: os.Getenv("LIBRARY_HEIC_PROXY_DIR"),
			RawProxyDir:  os.Getenv("LIBRARY_RAW_PROXY_DIR"),
		},
		Clustering: clustering,
	}
}
