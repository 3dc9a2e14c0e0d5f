package properties

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/split"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	CompletionLenient = "lenient"
	CompletionStrict  = "strict"

	CompressorGDAL    = "gdal"
	CompressorCommand = "gdal_translate"
)

type Discovery struct {
	Countries        []string `yaml:"countries"`
	PostgresURL      string   `yaml:"postgres_url"`
	PolygonTable     string   `yaml:"polygon_table"`
	OverpassEndpoint string   `yaml:"overpass_endpoint"`
}

type Config struct {
	AOIDir     string `yaml:"aoi_dir"`
	RasterRoot string `yaml:"raster_root"`
	SplitRoot  string `yaml:"split_root"`
	NumpyRoot  string `yaml:"numpy_root"`

	StartYear int `yaml:"start_year"`
	EndYear   int `yaml:"end_year"`
	MaxSites  int `yaml:"max_sites"`

	SplitRatios [3]float64 `yaml:"split_ratios"`
	Seed        uint64     `yaml:"seed"`

	Bands             []string      `yaml:"bands"`
	LabelBand         string        `yaml:"label_band"`
	CloudThreshold    float64       `yaml:"cloud_threshold"`
	ExportScale       float64       `yaml:"export_scale"`
	ImageryCollection string        `yaml:"imagery_collection"`
	LabelCollection   string        `yaml:"label_collection"`
	SearchWindowDays  int           `yaml:"search_window_days"`
	ProviderTimeout   time.Duration `yaml:"provider_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`

	SentinelBaseURL string `yaml:"sentinel_base_url"`
	ClientID        string `yaml:"-"`
	ClientSecret    string `yaml:"-"`
	TokenURL        string `yaml:"-"`

	CompletionPolicy string `yaml:"completion_policy"`
	Compressor       string `yaml:"compressor"`
	LedgerPath       string `yaml:"ledger_path"`
	SearchCacheDir   string `yaml:"search_cache_dir"`
	MetricsFile      string `yaml:"metrics_file"`

	CopyWorkers    int `yaml:"copy_workers"`
	ConvertWorkers int `yaml:"convert_workers"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Discovery Discovery `yaml:"discovery"`
}

func Default() Config {
	return Config{
		AOIDir:            "data/aois",
		RasterRoot:        "data/lucd2",
		SplitRoot:         "data/lucd_split",
		NumpyRoot:         "data/processed_numpy",
		StartYear:         2015,
		EndYear:           2024,
		MaxSites:          5,
		SplitRatios:       [3]float64{0.7, 0.15, 0.15},
		Seed:              42,
		Bands:             []string{"B02", "B03", "B04", "B08", "B11", "B12"},
		LabelBand:         "label",
		CloudThreshold:    20,
		ExportScale:       10,
		ImageryCollection: "sentinel-2-l2a",
		LabelCollection:   "byoc-dynamic-world",
		SearchWindowDays:  366,
		ProviderTimeout:   5 * time.Minute,
		RequestsPerMinute: 30,
		SentinelBaseURL:   "https://sh.dataspace.copernicus.eu",
		TokenURL:          "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token",
		CompletionPolicy:  CompletionLenient,
		Compressor:        CompressorGDAL,
		CopyWorkers:       4,
		ConvertWorkers:    4,
		LogLevel:          "info",
		LogFormat:         "text",
		Discovery: Discovery{
			Countries:        []string{"USA", "CAN", "MEX", "ZAF"},
			PolygonTable:     "global_mining_polygons",
			OverpassEndpoint: "https://overpass-api.de/api/interpreter",
		},
	}
}

// Load reads the optional YAML file at path, then the .env file and finally
// environment overrides. A missing YAML file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// .env is optional, same as running with a fully exported environment
	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		*dst = n
		return nil
	}

	str("LUCD_AOI_DIR", &cfg.AOIDir)
	str("LUCD_RASTER_ROOT", &cfg.RasterRoot)
	str("LUCD_SPLIT_ROOT", &cfg.SplitRoot)
	str("LUCD_NUMPY_ROOT", &cfg.NumpyRoot)
	str("LUCD_COMPLETION_POLICY", &cfg.CompletionPolicy)
	str("LUCD_LEDGER_PATH", &cfg.LedgerPath)
	str("LUCD_METRICS_FILE", &cfg.MetricsFile)
	str("LUCD_LOG_LEVEL", &cfg.LogLevel)
	str("LUCD_POSTGRES_URL", &cfg.Discovery.PostgresURL)
	str("COPERNICUS_CLIENT_ID", &cfg.ClientID)
	str("COPERNICUS_CLIENT_SECRET", &cfg.ClientSecret)
	str("COPERNICUS_TOKEN_URL", &cfg.TokenURL)

	for key, dst := range map[string]*int{
		"LUCD_START_YEAR": &cfg.StartYear,
		"LUCD_END_YEAR":   &cfg.EndYear,
		"LUCD_MAX_SITES":  &cfg.MaxSites,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}

	if v := os.Getenv("LUCD_BANDS"); v != "" {
		cfg.Bands = strings.Split(v, ",")
	}
	if v := os.Getenv("LUCD_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid LUCD_SEED value %q: %w", v, err)
		}
		cfg.Seed = seed
	}
	return nil
}

func (c Config) Validate() error {
	if c.EndYear <= c.StartYear {
		return fmt.Errorf("end_year (%d) must be greater than start_year (%d)", c.EndYear, c.StartYear)
	}
	if c.MaxSites < 0 {
		return fmt.Errorf("max_sites must not be negative, got %d", c.MaxSites)
	}
	if err := split.ValidateRatios(c.SplitRatios); err != nil {
		return err
	}
	switch c.CompletionPolicy {
	case CompletionLenient, CompletionStrict:
	default:
		return fmt.Errorf("unknown completion_policy %q", c.CompletionPolicy)
	}
	switch c.Compressor {
	case CompressorGDAL, CompressorCommand:
	default:
		return fmt.Errorf("unknown compressor %q", c.Compressor)
	}
	if c.ExportScale <= 0 {
		return fmt.Errorf("export_scale must be positive, got %v", c.ExportScale)
	}
	return nil
}

// Years returns every year in [StartYear, EndYear).
func (c Config) Years() []int {
	years := make([]int, 0, c.EndYear-c.StartYear)
	for y := c.StartYear; y < c.EndYear; y++ {
		years = append(years, y)
	}
	return years
}

func ConfigPath() string {
	if p := os.Getenv("LUCD_CONFIG"); p != "" {
		return p
	}
	return "lucd.yaml"
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}

type Color struct {
	R, G, B uint8
}

// ClassColors is the land-cover palette, indexed by class value.
var ClassColors = []Color{
	{65, 155, 223},  // water
	{57, 125, 73},   // trees
	{136, 176, 83},  // grass
	{122, 135, 198}, // flooded vegetation
	{228, 150, 53},  // crops
	{223, 195, 90},  // shrub and scrub
	{196, 40, 27},   // built
	{165, 155, 143}, // bare
	{179, 159, 225}, // snow and ice
}

var ChangedColor = Color{255, 0, 0}
