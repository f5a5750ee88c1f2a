package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/dShare/lib/key"
	"github.com/ValentinKolb/dShare/lib/pool"
	"github.com/ValentinKolb/dShare/lib/retry"
)

// SettingsFileName is the name of the settings file written by `dshare setup`
const SettingsFileName = "settings.json"

// Storage engines a node can be configured with
const (
	StorageEngineMemory = "memory"
	StorageEngineBadger = "badger"
)

// --------------------------------------------------------------------------
// Node settings struct
// --------------------------------------------------------------------------

// Permissions control what remote nodes and clients may do with a node
type Permissions struct {
	// AllowMetadata allows clients to query the node's metadata
	AllowMetadata     bool `json:"allow_metadata"`
	// AllowInteractions answers sync requests with PROTO_SYNC_OK instead of PROTO_SYNC_NA
	AllowInteractions bool `json:"allow_interactions"`
}

// StorageConf selects and configures the storage backend
type StorageConf struct {
	Engine string `json:"engine"`
	Path   string `json:"path"`
}

// TCPConf holds socket options applied to accepted connections
type TCPConf struct {
	TCPNoDelay      bool `json:"tcp_nodelay"`
	TCPKeepAliveSec int  `json:"tcp_keepalive_sec"`
}

// Settings holds the configuration of a node. It is immutable once the node is
// constructed and shared read-only by every component.
type Settings struct {
	// Identity
	Name    string `json:"name"`
	Version string `json:"version"`

	// Network
	Address string   `json:"address"`
	Peers   []string `json:"peers"`

	Permissions Permissions `json:"permissions"`
	Storage     StorageConf `json:"storage"`
	TCP         TCPConf     `json:"tcp"`

	// Execution
	Workers              int `json:"workers"`
	RetryAttempts        int `json:"retry_attempts"`
	RetryUnitMillisecond int `json:"retry_unit_ms"`
	ReadGraceMillisecond int `json:"read_grace_ms"`
	DialTimeoutSecond    int `json:"dial_timeout_sec"`

	// Observability
	MetricsEndpoint string `json:"metrics_endpoint"`
	LogLevel        string `json:"log_level"`
}

// DefaultSettings returns the settings `dshare setup` writes for a new node
func DefaultSettings() *Settings {
	return &Settings{
		Name:    "dshare_" + strings.ToLower(key.New()),
		Version: Version,
		Address: "127.0.0.1:0",
		Peers:   []string{},
		Permissions: Permissions{
			AllowMetadata:     false,
			AllowInteractions: false,
		},
		Storage: StorageConf{
			Engine: StorageEngineMemory,
			Path:   "data",
		},
		TCP: TCPConf{
			TCPNoDelay:      true,
			TCPKeepAliveSec: 0,
		},
		Workers:              pool.DefaultWorkers,
		RetryAttempts:        retry.DefaultAttempts,
		RetryUnitMillisecond: int(retry.DefaultUnit / time.Millisecond),
		ReadGraceMillisecond: DefaultReadGraceMillisecond,
		DialTimeoutSecond:    DefaultDialTimeoutSecond,
		MetricsEndpoint:      "",
		LogLevel:             "info",
	}
}

// LoadSettings reads settings from a JSON file. If path is a directory the
// settings file inside it is used. Fields missing in the file keep their defaults.
func LoadSettings(path string) (*Settings, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, SettingsFileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	s := DefaultSettings()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	s.Version = Version
	return s, nil
}

// Save writes the settings as indented JSON to dir/settings.json and returns the file path
func (s *Settings) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode settings: %w", err)
	}

	path := filepath.Join(dir, SettingsFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write settings: %w", err)
	}
	return path, nil
}

// Validate checks the settings for values a node cannot run with
func (s *Settings) Validate() error {
	var errs []error

	if s.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if _, _, err := net.SplitHostPort(s.Address); err != nil {
		errs = append(errs, fmt.Errorf("invalid address %q: %w", s.Address, err))
	}
	for _, peer := range s.Peers {
		if _, _, err := net.SplitHostPort(peer); err != nil {
			errs = append(errs, fmt.Errorf("invalid peer address %q: %w", peer, err))
		}
	}
	switch s.Storage.Engine {
	case StorageEngineMemory:
	case StorageEngineBadger:
		if s.Storage.Path == "" {
			errs = append(errs, errors.New("storage path is required for the badger engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid storage engine %q (expected %s or %s)", s.Storage.Engine, StorageEngineMemory, StorageEngineBadger))
	}
	if s.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", s.Workers))
	}
	if s.RetryAttempts <= 0 {
		errs = append(errs, fmt.Errorf("retry attempts must be positive, got %d", s.RetryAttempts))
	}
	if s.RetryUnitMillisecond < 0 {
		errs = append(errs, fmt.Errorf("retry unit must not be negative, got %d", s.RetryUnitMillisecond))
	}
	if s.ReadGraceMillisecond <= 0 {
		errs = append(errs, fmt.Errorf("read grace must be positive, got %d", s.ReadGraceMillisecond))
	}
	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// RetryPolicy returns the retry policy used for peer synchronisation
func (s *Settings) RetryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.Attempts = s.RetryAttempts
	p.Unit = time.Duration(s.RetryUnitMillisecond) * time.Millisecond
	return p
}

// ReadGrace returns the continuation grace of the chunked reader
func (s *Settings) ReadGrace() time.Duration {
	return time.Duration(s.ReadGraceMillisecond) * time.Millisecond
}

// DialTimeout returns the timeout for outbound connections, 0 means none
func (s *Settings) DialTimeout() time.Duration {
	return time.Duration(s.DialTimeoutSecond) * time.Second
}

// String returns a formatted string representation of the settings
func (s *Settings) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Node")
	addField("Name", s.Name)
	addField("Version", s.Version)
	addField("Address", s.Address)

	addSection("Permissions")
	addField("Allow Metadata", strconv.FormatBool(s.Permissions.AllowMetadata))
	addField("Allow Interactions", strconv.FormatBool(s.Permissions.AllowInteractions))

	addSection("Storage")
	addField("Engine", s.Storage.Engine)
	if s.Storage.Engine == StorageEngineBadger {
		addField("Path", s.Storage.Path)
	}

	addSection("Execution")
	addField("Workers", strconv.Itoa(s.Workers))
	addField("Retry Attempts", strconv.Itoa(s.RetryAttempts))
	addField("Retry Unit", fmt.Sprintf("%d ms", s.RetryUnitMillisecond))
	addField("Read Grace", fmt.Sprintf("%d ms", s.ReadGraceMillisecond))
	addField("Dial Timeout", fmt.Sprintf("%d sec", s.DialTimeoutSecond))

	addSection("TCP")
	addField("No Delay", strconv.FormatBool(s.TCP.TCPNoDelay))
	addField("Keep Alive", fmt.Sprintf("%d sec", s.TCP.TCPKeepAliveSec))

	addSection("Logging & Metrics")
	addField("Log Level", s.LogLevel)
	if s.MetricsEndpoint != "" {
		addField("Metrics Endpoint", s.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}

	addSection("Peers")
	if len(s.Peers) == 0 {
		sb.WriteString("  (none)\n")
	}
	for i, peer := range s.Peers {
		addField(strconv.Itoa(i+1), peer)
	}

	return sb.String()
}
