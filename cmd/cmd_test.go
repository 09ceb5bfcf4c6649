package cmd

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestConfigLoad(t *testing.T) {
	c := qt.New(t)

	c.Run("secret is required", func(c *qt.C) {
		cfg := DefaultConfig()
		err := cfg.Load(nil)
		c.Assert(err, qt.ErrorMatches, "missing config 'server secret'")
	})

	c.Run("github credentials are required with github auth", func(c *qt.C) {
		c.Setenv("SERVER_SECRET", "secret")
		cfg := DefaultConfig()
		err := cfg.Load(nil)
		c.Assert(err, qt.ErrorMatches, "missing config 'github client id'")
	})

	c.Run("environment overrides defaults", func(c *qt.C) {
		c.Setenv("SERVER_SECRET", "secret")
		c.Setenv("AUTH", "fake")
		c.Setenv("STORE", "memory")
		c.Setenv("ALLOWED_ORIGINS", "https://a.com,https://b.com")
		c.Setenv("TRUST_PROXY", "true")

		cfg := DefaultConfig()
		c.Assert(cfg.Load(nil), qt.IsNil)
		c.Assert(cfg.Store, qt.Equals, "memory")
		c.Assert(cfg.PollsPerPage, qt.Equals, 20)
		c.Assert(cfg.TrustProxy, qt.IsTrue)
		c.Assert(cfg.AllowedOrigins, qt.DeepEquals, []string{"https://a.com", "https://b.com"})
	})

	c.Run("flags override environment", func(c *qt.C) {
		c.Setenv("SERVER_SECRET", "secret")
		c.Setenv("AUTH", "fake")
		c.Setenv("ADDR", "localhost:1")

		cfg := DefaultConfig()
		c.Assert(cfg.Load([]string{"--addr", "localhost:2"}), qt.IsNil)
		c.Assert(cfg.Addr, qt.Equals, "localhost:2")
	})

	c.Run("configuration file", func(c *qt.C) {
		path := filepath.Join(c.TempDir(), "config.json")
		err := os.WriteFile(path, []byte(`{"server_secret": "secret", "auth": "fake", "polls_per_page": 5, "site_url": "https://example.com"}`), 0o600)
		c.Assert(err, qt.IsNil)
		c.Setenv("SITE_URL", "https://env.example.com")

		cfg := DefaultConfig()
		c.Assert(cfg.Load([]string{"--config_file", path}), qt.IsNil)
		c.Assert(cfg.PollsPerPage, qt.Equals, 5)
		c.Assert(cfg.SiteURL, qt.Equals, "https://env.example.com")
		c.Assert(cfg.DatabaseName, qt.Equals, "thegoat")
	})

	c.Run("unknown store", func(c *qt.C) {
		c.Setenv("SERVER_SECRET", "secret")
		c.Setenv("AUTH", "fake")

		cfg := DefaultConfig()
		err := cfg.Load([]string{"--store", "mongo"})
		c.Assert(err, qt.ErrorMatches, `unknown store "mongo", expected postgres or memory`)
	})
}

func TestDatabaseURL(t *testing.T) {
	c := qt.New(t)
	cfg := DefaultConfig()
	c.Assert(cfg.DatabaseURL(), qt.Equals, "user=postgres dbname=thegoat sslmode=disable password=postgres host=127.0.0.1")
}
