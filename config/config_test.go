package config

import (
	"errors"
	"mars-rover/models"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadRoverDefaults(t *testing.T) {
	cfg, err := LoadRover()
	if err != nil {
		t.Fatalf("LoadRover: %v", err)
	}

	if cfg.Port != 8080 || cfg.RoverID != "curiosity-rover" {
		t.Errorf("unexpected defaults: port=%d id=%q", cfg.Port, cfg.RoverID)
	}
	want := []models.Position{{X: 3, Y: 3}, {X: 5, Y: 5}, {X: 7, Y: 1}, {X: 1, Y: 7}, {X: 8, Y: 8}}
	if !reflect.DeepEqual(cfg.Planet.Obstacles, want) {
		t.Errorf("obstacles = %v, want %v", cfg.Planet.Obstacles, want)
	}
	if cfg.Planet.Width != 10 || cfg.Planet.Height != 10 {
		t.Errorf("planet = %dx%d", cfg.Planet.Width, cfg.Planet.Height)
	}

	state, err := cfg.StartState()
	if err != nil {
		t.Fatal(err)
	}
	if state.Position != (models.Position{X: 2, Y: 2}) || state.Direction != models.DirectionNorth || state.Battery != 100 {
		t.Errorf("start state = %+v", state)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.LogFlushInterval != 10*time.Second {
		t.Errorf("database defaults = %+v", cfg.Database)
	}
}

func TestLoadRoverEnvOverrides(t *testing.T) {
	t.Setenv("ROVER_PORT", "9090")
	t.Setenv("ROVER_ID", "perseverance")
	t.Setenv("ROVER_START_X", "0")
	t.Setenv("ROVER_START_Y", "4")
	t.Setenv("ROVER_START_DIRECTION", "w")
	t.Setenv("PLANET_WIDTH", "5")
	t.Setenv("PLANET_HEIGHT", "5")
	t.Setenv("PLANET_OBSTACLES", "1,1; 2,3")
	t.Setenv("DB_DRIVER", "mysql")

	cfg, err := LoadRover()
	if err != nil {
		t.Fatalf("LoadRover: %v", err)
	}
	if cfg.Addr() != ":9090" || cfg.RoverID != "perseverance" {
		t.Errorf("addr=%s id=%s", cfg.Addr(), cfg.RoverID)
	}
	if !reflect.DeepEqual(cfg.Planet.Obstacles, []models.Position{{X: 1, Y: 1}, {X: 2, Y: 3}}) {
		t.Errorf("obstacles = %v", cfg.Planet.Obstacles)
	}
	state, _ := cfg.StartState()
	if state.Direction != models.DirectionWest {
		t.Errorf("direction = %s", state.Direction)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("driver = %s", cfg.Database.Driver)
	}
}

func TestLoadRoverPlanetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planet.yaml")
	content := "width: 6\nheight: 4\nobstacles:\n  - {x: 0, y: 0}\n  - {x: 5, y: 3}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PLANET_FILE", path)
	t.Setenv("ROVER_START_X", "1")
	t.Setenv("ROVER_START_Y", "1")

	cfg, err := LoadRover()
	if err != nil {
		t.Fatalf("LoadRover: %v", err)
	}
	want := models.PlanetConfig{Width: 6, Height: 4, Obstacles: []models.Position{{X: 0, Y: 0}, {X: 5, Y: 3}}}
	if !reflect.DeepEqual(cfg.Planet, want) {
		t.Errorf("planet = %+v, want %+v", cfg.Planet, want)
	}
}

func TestLoadPlanetFileMissing(t *testing.T) {
	if _, err := LoadPlanetFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadRoverValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port out of range", map[string]string{"ROVER_PORT": "70000"}},
		{"start outside planet", map[string]string{"ROVER_START_X": "10"}},
		{"start on obstacle", map[string]string{"ROVER_START_X": "3", "ROVER_START_Y": "3"}},
		{"obstacle outside planet", map[string]string{"PLANET_OBSTACLES": "12,1"}},
		{"bad direction", map[string]string{"ROVER_START_DIRECTION": "UP"}},
		{"bad obstacle syntax", map[string]string{"PLANET_OBSTACLES": "1-1"}},
		{"zero width", map[string]string{"PLANET_WIDTH": "0"}},
		{"battery too high", map[string]string{"ROVER_BATTERY": "150"}},
		{"unknown driver", map[string]string{"DB_DRIVER": "postgres"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadRover(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("LoadRover() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestRandomObstaclesSkipsListCheck(t *testing.T) {
	t.Setenv("PLANET_RANDOM_OBSTACLES", "true")
	t.Setenv("ROVER_START_X", "3")
	t.Setenv("ROVER_START_Y", "3")

	if _, err := LoadRover(); err != nil {
		t.Errorf("LoadRover: %v", err)
	}
}

func TestLoadMission(t *testing.T) {
	cfg, err := LoadMission()
	if err != nil {
		t.Fatalf("LoadMission: %v", err)
	}
	if cfg.RoverURL != "ws://localhost:8080/websocket/rover" || cfg.ReconnectDelay != 5*time.Second || cfg.PingInterval != 10*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	t.Setenv("ROVER_URL", "http://localhost:8080")
	if _, err := LoadMission(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for http url, got %v", err)
	}
}
