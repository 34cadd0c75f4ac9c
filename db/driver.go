package db

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Driver knows how to address one database/sql driver. The driver itself is
// registered by blank-importing lib/pq or mattn/go-sqlite3 in the binary.
type Driver interface {
	Name() string
	DSN(opts DriverOptions) (string, error)
	ErrorMapper() ErrorMapper
}

// DriverOptions are connection parameters in driver-neutral form.
type DriverOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string // file path for sqlite3
	SSLMode  string
	// ConnectTimeout bounds connection setup (postgres) or lock waits
	// (sqlite3). Zero keeps the driver default.
	ConnectTimeout time.Duration
	Extra          map[string]string
}

var registry = struct {
	sync.RWMutex
	drivers map[string]Driver
}{drivers: map[string]Driver{}}

// RegisterDriver adds d to the registry. Registering a name twice panics.
func RegisterDriver(d Driver) {
	registry.Lock()
	defer registry.Unlock()
	if _, dup := registry.drivers[d.Name()]; dup {
		panic("todo/db: driver " + strconv.Quote(d.Name()) + " registered twice")
	}
	registry.drivers[d.Name()] = d
}

func LookupDriver(name string) (Driver, error) {
	registry.RLock()
	defer registry.RUnlock()
	if d, ok := registry.drivers[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("todo/db: unknown driver %q", name)
}

// BuildDSN renders opts for the named driver. The migration runner uses it
// to reach the same database as the server.
func BuildDSN(driverName string, opts DriverOptions) (string, error) {
	drv, err := LookupDriver(driverName)
	if err != nil {
		return "", err
	}
	dsn, err := drv.DSN(opts)
	if err != nil {
		return "", fmt.Errorf("todo/db: %s dsn: %w", driverName, err)
	}
	return dsn, nil
}

// OpenWithDriver builds the DSN for driverName, opens the pool with cfg and
// installs the driver's error mapper.
func OpenWithDriver(driverName string, opts DriverOptions, cfg Config) (*DB, error) {
	drv, err := LookupDriver(driverName)
	if err != nil {
		return nil, err
	}
	if cfg.DSN, err = BuildDSN(driverName, opts); err != nil {
		return nil, err
	}
	cfg.DriverName = drv.Name()

	d, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	d.SetErrorMapper(drv.ErrorMapper())
	return d, nil
}

// PostgresDriver renders lib/pq keyword/value connection strings.
type PostgresDriver struct{}

func (PostgresDriver) Name() string { return "postgres" }

func (PostgresDriver) DSN(o DriverOptions) (string, error) {
	if o.Host == "" || o.Database == "" {
		return "", fmt.Errorf("host and database are required")
	}
	port := o.Port
	if port == 0 {
		port = 5432
	}
	sslMode := o.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	var b strings.Builder
	add := func(key, value string) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(key + "=" + pqQuote(value))
	}
	add("host", o.Host)
	add("port", strconv.Itoa(port))
	add("user", o.User)
	add("password", o.Password)
	add("dbname", o.Database)
	add("sslmode", sslMode)
	if o.ConnectTimeout > 0 {
		add("connect_timeout", strconv.Itoa(max(int(o.ConnectTimeout.Round(time.Second)/time.Second), 1)))
	}
	for _, k := range sortedKeys(o.Extra) {
		add(k, o.Extra[k])
	}
	return b.String(), nil
}

func (PostgresDriver) ErrorMapper() ErrorMapper {
	return classifiers{classifyStd, classifyPostgres}
}

// pqQuote single-quotes values that are empty or contain a space, quote or
// backslash.
func pqQuote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

// SQLiteDriver renders mattn/go-sqlite3 file DSNs. Foreign keys are on
// unless Extra overrides _foreign_keys.
type SQLiteDriver struct{}

func (SQLiteDriver) Name() string { return "sqlite3" }

func (SQLiteDriver) DSN(o DriverOptions) (string, error) {
	if o.Database == "" {
		return "", fmt.Errorf("database file path is required")
	}
	params := map[string]string{"_foreign_keys": "1"}
	if o.ConnectTimeout > 0 {
		params["_busy_timeout"] = strconv.FormatInt(o.ConnectTimeout.Milliseconds(), 10)
	}
	for k, v := range o.Extra {
		params[k] = v
	}
	query := make([]string, 0, len(params))
	for _, k := range sortedKeys(params) {
		query = append(query, k+"="+params[k])
	}
	return o.Database + "?" + strings.Join(query, "&"), nil
}

func (SQLiteDriver) ErrorMapper() ErrorMapper {
	return classifiers{classifyStd, classifySQLite}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func init() {
	RegisterDriver(PostgresDriver{})
	RegisterDriver(SQLiteDriver{})
}
