package config

import (
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("EDITOR_DRAG_ACTIVATION_PX", "")
	t.Setenv("PREVIEW_SWEEP_SPEC", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Editor.DragActivationPx != 8 {
		t.Errorf("expected 8px activation, got %v", cfg.Editor.DragActivationPx)
	}
	if cfg.Preview.SweepSpec != "@every 5m" || cfg.Preview.IdleMinutes != 30 {
		t.Errorf("unexpected preview config %+v", cfg.Preview)
	}
	if !reflect.DeepEqual(cfg.JWT.EditorRoles, []string{"admin"}) {
		t.Errorf("unexpected roles %v", cfg.JWT.EditorRoles)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EDITOR_DRAG_ACTIVATION_PX", "12.5")
	t.Setenv("EDITOR_ROLES", "admin, editor")
	t.Setenv("DB_AUTO_MIGRATE", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Editor.DragActivationPx != 12.5 {
		t.Errorf("expected 12.5, got %v", cfg.Editor.DragActivationPx)
	}
	if !reflect.DeepEqual(cfg.JWT.EditorRoles, []string{"admin", "editor"}) {
		t.Errorf("unexpected roles %v", cfg.JWT.EditorRoles)
	}
	if cfg.Database.Migrate {
		t.Error("expected migrations disabled")
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "5432", DBName: "surveys", SSLMode: "disable"}
	if got := c.DSN(); got != "postgres://u:p@h:5432/surveys?sslmode=disable" {
		t.Errorf("unexpected dsn %q", got)
	}
	c.URL = "postgres://override"
	if got := c.DSN(); got != "postgres://override" {
		t.Errorf("URL should win, got %q", got)
	}
}
