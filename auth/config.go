package auth

import "fmt"

// Credential is one entry in the seeded user table.
type Credential struct {
	Username string `yaml:"username" mapstructure:"username"`
	// Password is a plaintext password, for development setups only.
	Password string `yaml:"password" mapstructure:"password"`
	// PasswordHash is a bcrypt hash; takes precedence over Password.
	PasswordHash string `yaml:"password_hash" mapstructure:"password_hash"`
	Role         string `yaml:"role" mapstructure:"role"`
	StorageLimit int64  `yaml:"storage_limit" mapstructure:"storage_limit"`
}

// Config holds the seeded user table.
type Config struct {
	Users []Credential `yaml:"users" mapstructure:"users"`
}

// ApplyDefaults seeds the default user when none are configured and fills
// per-user defaults.
func (c *Config) ApplyDefaults() {
	if len(c.Users) == 0 {
		c.Users = []Credential{{
			Username:     "carte1",
			Password:     "C@rter!23",
			Role:         "member",
			StorageLimit: 100 * 1024 * 1024 * 1024,
		}}
	}
	for i := range c.Users {
		if c.Users[i].Role == "" {
			c.Users[i].Role = "member"
		}
		if c.Users[i].StorageLimit == 0 {
			c.Users[i].StorageLimit = 100 * 1024 * 1024 * 1024
		}
	}
}

// Validate checks the user table.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Users))
	for _, u := range c.Users {
		if u.Username == "" {
			return fmt.Errorf("auth: user with empty username")
		}
		if seen[u.Username] {
			return fmt.Errorf("auth: duplicate username %q", u.Username)
		}
		seen[u.Username] = true
		if u.Password == "" && u.PasswordHash == "" {
			return fmt.Errorf("auth: user %q has no password or password_hash", u.Username)
		}
	}
	return nil
}
