package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/MrEthical07/iammetrics/jwt"
)

// TokenCmd implements the 'token' command.
type TokenCmd struct {
	Subject string        `short:"s" help:"Token subject" default:"prometheus"`
	TTL     time.Duration `help:"Token lifetime (defaults to auth.token_ttl)"`
	Scope   string        `help:"Space-separated scopes" default:"metrics:read"`
}

func (t *TokenCmd) Run(_ *Global, root *CLI) error {
	cfg, _, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Auth.Enabled {
		return errors.New("auth is disabled in the configuration")
	}

	tokenCfg, err := cfg.TokenConfig()
	if err != nil {
		return err
	}
	m, err := jwt.NewManager(tokenCfg)
	if err != nil {
		return err
	}

	ttl := t.TTL
	if ttl == 0 {
		ttl = cfg.Auth.TokenTTL
	}
	token, err := m.IssueScoped(t.Subject, t.Scope, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, token)
	return err
}
