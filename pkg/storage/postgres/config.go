package postgres

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	User     string
	Password string
	Host     string
	Port     string
	DBName   string
}

// NewConfig reads POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_HOST, POSTGRES_PORT
// and POSTGRES_DB. User and database name default to "postgres" and "social".
func NewConfig() Config {
	conf := Config{
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     os.Getenv("POSTGRES_PORT"),
		DBName:   os.Getenv("POSTGRES_DB"),
	}
	if conf.User == "" {
		conf.User = "postgres"
	}
	if conf.DBName == "" {
		conf.DBName = "social"
	}
	return conf
}

func (c *Config) ConString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.User, c.Password, c.Host, c.Port, c.DBName)
}

func (c Config) String() string {
	c.Password = strings.Repeat("*", len([]rune(c.Password)))
	return fmt.Sprintf("%#v", c)
}

func (c *Config) IsValid() bool {
	if c.User == "" || c.Password == "" || c.Host == "" || c.Port == "" || c.DBName == "" {
		return false
	}
	return true
}
