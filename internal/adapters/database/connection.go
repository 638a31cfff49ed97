// Package database reads the captured Knex connection descriptor, maps it to
// an engine, and checks that the database is reachable.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"  // SQLite driver

	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/kerrors"
)

// Engine pairs the oracle backend of a client with its Go driver.
type Engine struct {
	// Oracle is the model backend name, e.g. "postgresql".
	Oracle string
	// Driver is the database/sql driver name.
	Driver string
}

var engines = map[string]Engine{
	"pg":             {Oracle: "postgresql", Driver: "postgres"},
	"postgres":       {Oracle: "postgresql", Driver: "postgres"},
	"postgresql":     {Oracle: "postgresql", Driver: "postgres"},
	"mysql":          {Oracle: "mysql", Driver: "mysql"},
	"mysql2":         {Oracle: "mysql", Driver: "mysql"},
	"sqlite3":        {Oracle: "sqlite3", Driver: "sqlite3"},
	"better-sqlite3": {Oracle: "sqlite3", Driver: "sqlite3"},
}

// EngineFor maps a Knex client name to an engine.
func EngineFor(client string) (Engine, error) {
	e, ok := engines[strings.ToLower(client)]
	if !ok {
		return Engine{}, kerrors.NewConfigurationError(fmt.Sprintf("unsupported knex client %q", client), nil)
	}
	return e, nil
}

type knexConfig struct {
	Client     string          `json:"client"`
	Connection json.RawMessage `json:"connection"`
}

type knexConnection struct {
	Host     string          `json:"host"`
	Port     json.RawMessage `json:"port"`
	User     string          `json:"user"`
	Password string          `json:"password"`
	Database string          `json:"database"`
	Filename string          `json:"filename"`
}

// ParseConnection decodes a captured Knex client config. The connection may
// be an object or a URL string.
func ParseConnection(data []byte) (*domain.Connection, error) {
	var cfg knexConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, kerrors.NewConfigurationError("invalid knex connection descriptor", err)
	}
	if cfg.Client == "" {
		return nil, kerrors.NewConfigurationError("knex connection descriptor has no client", nil)
	}
	if len(cfg.Connection) == 0 || string(cfg.Connection) == "null" {
		return nil, kerrors.NewConfigurationError("knex connection descriptor has no connection", nil)
	}

	var raw string
	if err := json.Unmarshal(cfg.Connection, &raw); err == nil {
		conn, err := parseURL(raw)
		if err != nil {
			return nil, err
		}
		conn.Client = cfg.Client
		return conn, nil
	}

	var kc knexConnection
	if err := json.Unmarshal(cfg.Connection, &kc); err != nil {
		return nil, kerrors.NewConfigurationError("invalid knex connection", err)
	}
	port, err := parsePort(kc.Port)
	if err != nil {
		return nil, err
	}
	return &domain.Connection{
		Client:   cfg.Client,
		Database: kc.Database,
		User:     kc.User,
		Password: kc.Password,
		Host:     kc.Host,
		Port:     port,
		Filename: kc.Filename,
	}, nil
}

func parsePort(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, kerrors.NewConfigurationError("invalid port", err)
	}
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, kerrors.NewConfigurationError("invalid port "+s, err)
	}
	return n, nil
}

func parseURL(raw string) (*domain.Connection, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, kerrors.NewConfigurationError("invalid connection url", err)
	}
	conn := &domain.Connection{
		Host:     u.Hostname(),
		Database: strings.TrimPrefix(u.Path, "/"),
	}
	if u.User != nil {
		conn.User = u.User.Username()
		conn.Password, _ = u.User.Password()
	}
	if p := u.Port(); p != "" {
		if conn.Port, err = strconv.Atoi(p); err != nil {
			return nil, kerrors.NewConfigurationError("invalid port "+p, err)
		}
	}
	if u.Scheme == "sqlite" || u.Scheme == "file" {
		conn.Filename = u.Path
		conn.Database = ""
	}
	return conn, nil
}

// DSN renders the driver specific data source name.
func DSN(conn *domain.Connection) (string, error) {
	engine, err := EngineFor(conn.Client)
	if err != nil {
		return "", err
	}
	switch engine.Driver {
	case "postgres":
		u := &url.URL{Scheme: "postgres", Host: conn.Host, Path: "/" + conn.Database}
		if conn.Port != 0 {
			u.Host = conn.Host + ":" + strconv.Itoa(conn.Port)
		}
		if conn.User != "" {
			u.User = url.UserPassword(conn.User, conn.Password)
		}
		return pq.ParseURL(u.String())
	case "mysql":
		cfg := mysql.NewConfig()
		cfg.User = conn.User
		cfg.Passwd = conn.Password
		cfg.Net = "tcp"
		cfg.Addr = conn.Host
		if conn.Port != 0 {
			cfg.Addr = conn.Host + ":" + strconv.Itoa(conn.Port)
		}
		cfg.DBName = conn.Database
		return cfg.FormatDSN(), nil
	}
	if conn.Filename == "" {
		return "", kerrors.NewConfigurationError("sqlite connection has no filename", nil)
	}
	return conn.Filename, nil
}

// Ping opens the database and checks it answers within timeout.
func Ping(ctx context.Context, conn *domain.Connection, timeout time.Duration) error {
	engine, err := EngineFor(conn.Client)
	if err != nil {
		return err
	}
	dsn, err := DSN(conn)
	if err != nil {
		return err
	}
	db, err := sql.Open(engine.Driver, dsn)
	if err != nil {
		return kerrors.NewConfigurationError("failed to open database", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return kerrors.NewConfigurationError("database is not reachable", err)
	}
	return nil
}
