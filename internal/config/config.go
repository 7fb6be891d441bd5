package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/banshee-data/equipment.report/internal/equipment"
)

// DefaultConfigPath is the path to the canonical defaults file shipped
// with the repository.
const DefaultConfigPath = "config/equipment.defaults.json"

// EnvPrefix prefixes every environment override, e.g. EQUIPMENT_RETENTION.
const EnvPrefix = "EQUIPMENT"

// Defaults applied by the Get* accessors when a field is unset.
const (
	DefaultListenAddr     = ":8080"
	DefaultDBPath         = "equipment.db"
	DefaultRetention      = 5
	DefaultMaxUploadBytes = 10 << 20
	DefaultDetailRows     = 20
	DefaultNameWidth      = 25
)

// DefaultExtensions are the accepted upload file extensions.
var DefaultExtensions = []string{".csv"}

// Config is the process configuration. Pointer and slice fields left
// unset fall back to the documented defaults through the Get* methods,
// so partial files are safe.
type Config struct {
	ListenAddr *string `json:"listen_addr,omitempty" envconfig:"LISTEN"`
	DBPath     *string `json:"db_path,omitempty" envconfig:"DB_PATH"`

	RequiredColumns []string `json:"required_columns,omitempty" envconfig:"REQUIRED_COLUMNS" validate:"omitempty,dive,required"`
	NumericColumns  []string `json:"numeric_columns,omitempty" envconfig:"NUMERIC_COLUMNS" validate:"omitempty,dive,required"`
	Extensions      []string `json:"extensions,omitempty" envconfig:"EXTENSIONS" validate:"omitempty,dive,startswith=."`

	Retention      *int   `json:"retention,omitempty" envconfig:"RETENTION" validate:"omitempty,min=1,max=1000"`
	MaxUploadBytes *int64 `json:"max_upload_bytes,omitempty" envconfig:"MAX_UPLOAD_BYTES" validate:"omitempty,min=1"`

	// PruneIntervalSeconds schedules a background retention sweep in
	// addition to the prune after each upload. Zero disables it.
	PruneIntervalSeconds *int `json:"prune_interval_seconds,omitempty" envconfig:"PRUNE_INTERVAL_SECONDS" validate:"omitempty,min=0,max=604800"`

	// Report layout.
	DetailRows *int `json:"detail_rows,omitempty" envconfig:"DETAIL_ROWS" validate:"omitempty,min=1,max=1000"`
	NameWidth  *int `json:"name_width,omitempty" envconfig:"NAME_WIDTH" validate:"omitempty,min=1,max=255"`

	// EchartsAssetsHost is where the interactive chart page loads its
	// scripts from. Empty uses the go-echarts CDN.
	EchartsAssetsHost *string `json:"echarts_assets_host,omitempty" envconfig:"ECHARTS_ASSETS_HOST"`
}

var validate = validator.New()

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// LoadFile loads a Config from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadFile(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Load reads path (if non-empty), applies EQUIPMENT_* environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Empty()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s_* environment: %w", EnvPrefix, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}

	if c.ListenAddr != nil {
		if _, _, err := net.SplitHostPort(*c.ListenAddr); err != nil {
			return fmt.Errorf("invalid listen_addr %q: %w", *c.ListenAddr, err)
		}
	}

	// Records always carry the three measurements, so the numeric set is
	// fixed and the required set must cover every column a Record reads.
	numeric := c.GetNumericColumns()
	if !sameColumnSet(numeric, equipment.NumericColumns) {
		return fmt.Errorf("numeric_columns must be exactly %q, got %q", equipment.NumericColumns, numeric)
	}
	required := make(map[string]bool)
	for _, col := range c.GetRequiredColumns() {
		required[col] = true
	}
	for _, col := range equipment.RequiredColumns {
		if !required[col] {
			return fmt.Errorf("required_columns must include %q", col)
		}
	}
	return nil
}

func sameColumnSet(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	seen := make(map[string]bool, len(got))
	for _, col := range got {
		if seen[col] {
			return false
		}
		seen[col] = true
	}
	for _, col := range want {
		if !seen[col] {
			return false
		}
	}
	return true
}

// GetListenAddr returns the HTTP listen address or the default.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return *c.ListenAddr
}

// GetDBPath returns the SQLite database path or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return DefaultDBPath
	}
	return *c.DBPath
}

// GetRequiredColumns returns the required header names or the
// standard equipment header.
func (c *Config) GetRequiredColumns() []string {
	if len(c.RequiredColumns) == 0 {
		return append([]string(nil), equipment.RequiredColumns...)
	}
	return c.RequiredColumns
}

// GetNumericColumns returns the measurement columns or the default three.
func (c *Config) GetNumericColumns() []string {
	if len(c.NumericColumns) == 0 {
		return append([]string(nil), equipment.NumericColumns...)
	}
	return c.NumericColumns
}

// GetExtensions returns the accepted upload extensions, lower-cased.
func (c *Config) GetExtensions() []string {
	if len(c.Extensions) == 0 {
		return append([]string(nil), DefaultExtensions...)
	}
	out := make([]string, len(c.Extensions))
	for i, e := range c.Extensions {
		out[i] = strings.ToLower(e)
	}
	return out
}

// GetRetention returns how many datasets to keep.
func (c *Config) GetRetention() int {
	if c.Retention == nil {
		return DefaultRetention
	}
	return *c.Retention
}

// GetPruneInterval returns the background sweep interval, zero when disabled.
func (c *Config) GetPruneInterval() time.Duration {
	if c.PruneIntervalSeconds == nil {
		return 0
	}
	return time.Duration(*c.PruneIntervalSeconds) * time.Second
}

// GetMaxUploadBytes returns the upload size limit.
func (c *Config) GetMaxUploadBytes() int64 {
	if c.MaxUploadBytes == nil {
		return DefaultMaxUploadBytes
	}
	return *c.MaxUploadBytes
}

// GetDetailRows returns the report detail-table row limit.
func (c *Config) GetDetailRows() int {
	if c.DetailRows == nil {
		return DefaultDetailRows
	}
	return *c.DetailRows
}

// GetNameWidth returns how many characters of a name the detail table shows.
func (c *Config) GetNameWidth() int {
	if c.NameWidth == nil {
		return DefaultNameWidth
	}
	return *c.NameWidth
}

// GetEchartsAssetsHost returns the configured assets host, possibly empty.
func (c *Config) GetEchartsAssetsHost() string {
	if c.EchartsAssetsHost == nil {
		return ""
	}
	return *c.EchartsAssetsHost
}

// Effective is the fully resolved configuration, as served on /api/config.
type Effective struct {
	ListenAddr      string   `json:"listen_addr"`
	DBPath          string   `json:"db_path"`
	RequiredColumns []string `json:"required_columns"`
	NumericColumns  []string `json:"numeric_columns"`
	Extensions      []string `json:"extensions"`
	Retention       int      `json:"retention"`
	PruneInterval   string   `json:"prune_interval"`
	MaxUploadBytes  int64    `json:"max_upload_bytes"`
	DetailRows      int      `json:"detail_rows"`
	NameWidth       int      `json:"name_width"`
}

// Resolve applies every default.
func (c *Config) Resolve() Effective {
	return Effective{
		ListenAddr:      c.GetListenAddr(),
		DBPath:          c.GetDBPath(),
		RequiredColumns: c.GetRequiredColumns(),
		NumericColumns:  c.GetNumericColumns(),
		Extensions:      c.GetExtensions(),
		Retention:       c.GetRetention(),
		PruneInterval:   c.GetPruneInterval().String(),
		MaxUploadBytes:  c.GetMaxUploadBytes(),
		DetailRows:      c.GetDetailRows(),
		NameWidth:       c.GetNameWidth(),
	}
}
