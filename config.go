package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const defaultConnMaxLifetime = time.Hour

// runMode selects which config fields a command needs.
type runMode int

const (
	modeCatalog runMode = iota
	modeTable
	modeCorrelate
)

func (m runMode) String() string {
	switch m {
	case modeCatalog:
		return "catalog"
	case modeTable:
		return "table"
	case modeCorrelate:
		return "correlate"
	default:
		return fmt.Sprintf("runMode(%d)", int(m))
	}
}

// RunConfig holds the full configuration document for one dbsnap run.
type RunConfig struct {
	General    GeneralConfig    `yaml:"general" toml:"general"`
	QueryScope QueryScopeConfig `yaml:"query_scope" toml:"query_scope"`
	Files      FilesConfig      `yaml:"files" toml:"files"`

	// configDir is the directory containing the config file, used to resolve a relative data_dir.
	configDir string
}

// GeneralConfig identifies the database to connect to. The password is
// never read from here; it is prompted for at run time.
type GeneralConfig struct {
	Driver          string    `yaml:"driver" toml:"driver"` // postgres|mysql|sqlite
	User            string    `yaml:"user" toml:"user"`
	Password        string    `yaml:"password" toml:"password"` // placeholder only, ignored
	Host            string    `yaml:"host" toml:"host"`
	Port            portValue `yaml:"port" toml:"port"`
	Database        string    `yaml:"database" toml:"database"`
	ConnMaxLifetime string    `yaml:"conn_max_lifetime" toml:"conn_max_lifetime"`

	maxLifetime time.Duration
}

// QueryScopeConfig holds the SQL fragments the query builder composes.
type QueryScopeConfig struct {
	Cols       []string `yaml:"cols" toml:"cols"`
	ToDFTable  string   `yaml:"to_df_table" toml:"to_df_table"`
	FromTable  string   `yaml:"from_table" toml:"from_table"`
	Schema     string   `yaml:"schema" toml:"schema"`
	OrderByCol string   `yaml:"order_by_col" toml:"order_by_col"`
}

// FilesConfig names the artifacts a run reads and writes.
type FilesConfig struct {
	OutputPickleName        string `yaml:"output_pickle_name" toml:"output_pickle_name"`
	OutputTableDFPickleName string `yaml:"output_table_df_pickle_name" toml:"output_table_df_pickle_name"`
	OutputCatalogCSV        string `yaml:"output_catalog_csv" toml:"output_catalog_csv"`
	OutputTableCSV          string `yaml:"output_table_csv" toml:"output_table_csv"`
	OutputParquetName       string `yaml:"output_parquet_name" toml:"output_parquet_name"`
	Modifier                string `yaml:"modifier" toml:"modifier"`
	InputPickleName         string `yaml:"input_pickle_name" toml:"input_pickle_name"`
	DataDir                 string `yaml:"data_dir" toml:"data_dir"`
}

// portValue accepts a port written either as a number or as a string.
type portValue string

func (p *portValue) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case int64:
		*p = portValue(strconv.FormatInt(x, 10))
	case string:
		*p = portValue(x)
	default:
		return fmt.Errorf("port must be a number or string, got %T", v)
	}
	return nil
}

// loadConfig reads a YAML or TOML config file, rejects unknown keys, applies
// defaults and checks that every field the given mode uses is present.
func loadConfig(path string, mode runMode) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, stageErrorf(StageConfig, "read config: %w", err)
	}

	var cfg RunConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		if err := decodeYAMLConfig(data, &cfg); err != nil {
			return nil, stageErrorf(StageConfig, "parse config: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, stageErrorf(StageConfig, "parse config: %w", err)
		}
		if unknown := md.Undecoded(); len(unknown) > 0 {
			keys := make([]string, len(unknown))
			for i, k := range unknown {
				keys[i] = k.String()
			}
			return nil, stageErrorf(StageConfig, "unknown config keys: %s", strings.Join(keys, ", "))
		}
	default:
		return nil, stageErrorf(StageConfig, "unsupported config format %q (want .yml, .yaml or .toml)", ext)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, stageErrorf(StageConfig, "resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	if err := cfg.validate(mode); err != nil {
		return nil, &StageError{Stage: StageConfig, Err: err}
	}
	return &cfg, nil
}

func decodeYAMLConfig(data []byte, cfg *RunConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("config document is empty")
		}
		return err
	}
	return nil
}

func (c *RunConfig) validate(mode runMode) error {
	c.General.Driver = strings.ToLower(strings.TrimSpace(c.General.Driver))
	if c.General.Driver == "" {
		c.General.Driver = "postgres"
	}
	if _, err := newSourceDB(c.General.Driver); err != nil {
		return err
	}

	var missing []string
	require := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}

	if mode != modeCorrelate {
		require("general.database", c.General.Database)
		if c.General.Driver != "sqlite" {
			require("general.user", c.General.User)
			require("general.host", c.General.Host)
			require("general.port", string(c.General.Port))
		}
	}

	switch mode {
	case modeCatalog:
		if len(c.QueryScope.Cols) == 0 {
			missing = append(missing, "query_scope.cols")
		}
		for i, col := range c.QueryScope.Cols {
			if strings.TrimSpace(col) == "" {
				return fmt.Errorf("query_scope.cols[%d] is empty", i)
			}
		}
		require("query_scope.from_table", c.QueryScope.FromTable)
		require("query_scope.schema", c.QueryScope.Schema)
		require("query_scope.order_by_col", c.QueryScope.OrderByCol)
		require("files.output_pickle_name", c.Files.OutputPickleName)
		require("files.output_catalog_csv", c.Files.OutputCatalogCSV)
		require("files.modifier", c.Files.Modifier)
	case modeTable:
		require("query_scope.to_df_table", c.QueryScope.ToDFTable)
		require("files.output_table_df_pickle_name", c.Files.OutputTableDFPickleName)
		require("files.modifier", c.Files.Modifier)
		require("files.input_pickle_name", c.Files.InputPickleName)
	case modeCorrelate:
		require("files.input_pickle_name", c.Files.InputPickleName)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config keys: %s", strings.Join(missing, ", "))
	}

	if p := string(c.General.Port); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return fmt.Errorf("general.port must be a number between 1 and 65535, got %q", p)
		}
	}

	c.General.maxLifetime = defaultConnMaxLifetime
	if s := strings.TrimSpace(c.General.ConnMaxLifetime); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("general.conn_max_lifetime: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("general.conn_max_lifetime must be positive")
		}
		c.General.maxLifetime = d
	}
	return nil
}

// connParams returns the connection parameters for this run. The password is
// supplied separately.
func (c *RunConfig) connParams() ConnParams {
	return ConnParams{
		Driver:          c.General.Driver,
		User:            c.General.User,
		Host:            c.General.Host,
		Port:            string(c.General.Port),
		Database:        c.General.Database,
		ConnMaxLifetime: c.General.maxLifetime,
	}
}

// dataDir resolves the artifact directory: files.data_dir when set (relative
// to the config file), otherwise the "data" directory next to the working
// directory.
func (c *RunConfig) dataDir() (string, error) {
	if d := strings.TrimSpace(c.Files.DataDir); d != "" {
		if filepath.IsAbs(d) {
			return d, nil
		}
		return filepath.Join(c.configDir, d), nil
	}
	return defaultDataDir()
}
