// Package database opens the postgres pool used by the SQL state backend.
package database

import (
	"net"
	"net/url"
	"strings"
	"time"
)

// Config holds the postgres connection settings.
type Config struct {
	// DSN wins over the discrete fields when set.
	DSN      string `yaml:"dsn" envconfig:"DB_DSN"`
	Host     string `yaml:"host" envconfig:"DB_HOST"`
	Port     string `yaml:"port" envconfig:"DB_PORT"`
	User     string `yaml:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name     string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	// MaxConnections caps open and idle connections; 0 means 4.
	MaxConnections int `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// WaitSeconds keeps pinging a database that is still starting.
	WaitSeconds int `yaml:"wait_seconds" envconfig:"DB_WAIT_SECONDS"`
}

// ConnString renders a postgres:// URL, escaping credentials.
func (c Config) ConnString() string {
	if dsn := strings.TrimSpace(c.DSN); dsn != "" {
		return dsn
	}
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	if c.Port != "" {
		host = net.JoinHostPort(host, c.Port)
	}
	u := url.URL{Scheme: "postgres", Host: host, Path: "/" + c.Name}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u.RawQuery = url.Values{"sslmode": {sslmode}}.Encode()
	return u.String()
}

func (c Config) poolSize() int {
	if c.MaxConnections <= 0 {
		return 4
	}
	return c.MaxConnections
}

func (c Config) wait() time.Duration {
	return time.Duration(c.WaitSeconds) * time.Second
}

// target is the host and database for logs, never the credentials.
func (c Config) target() string {
	if c.DSN != "" {
		if u, err := url.Parse(c.DSN); err == nil && u.Host != "" {
			return u.Host + u.Path
		}
		return "dsn"
	}
	return net.JoinHostPort(c.Host, c.Port) + "/" + c.Name
}
