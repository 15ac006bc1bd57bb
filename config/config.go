package config

import (
	"errors"
	"fmt"
	"log"
	"mars-rover/models"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig - 설정 값 검증 실패
var ErrInvalidConfig = errors.New("invalid configuration")

// ========================================
// 설정 구조체
// ========================================

// DatabaseConfig - 텔레메트리 DB 설정
type DatabaseConfig struct {
	Driver     string `env:"DB_DRIVER" envDefault:"sqlite"` // sqlite | mysql
	SQLitePath string `env:"SQLITE_PATH" envDefault:"rover.db"`

	MySQLHost     string `env:"MYSQL_HOST"`
	MySQLPort     int    `env:"MYSQL_PORT" envDefault:"3306"`
	MySQLUser     string `env:"MYSQL_USER"`
	MySQLPassword string `env:"MYSQL_PASSWORD"`
	MySQLDatabase string `env:"MYSQL_DATABASE"`

	LogFlushSize     int           `env:"LOG_FLUSH_SIZE" envDefault:"50"`
	LogFlushInterval time.Duration `env:"LOG_FLUSH_INTERVAL" envDefault:"10s"`
}

// RoverConfig - 로버 프로세스 설정
type RoverConfig struct {
	Port    int    `env:"ROVER_PORT" envDefault:"8080"`
	RoverID string `env:"ROVER_ID" envDefault:"curiosity-rover"`

	StartX         int     `env:"ROVER_START_X" envDefault:"2"`
	StartY         int     `env:"ROVER_START_Y" envDefault:"2"`
	StartDirection string  `env:"ROVER_START_DIRECTION" envDefault:"NORTH"`
	Battery        float64 `env:"ROVER_BATTERY" envDefault:"100"`

	PlanetWidth  int `env:"PLANET_WIDTH" envDefault:"10"`
	PlanetHeight int `env:"PLANET_HEIGHT" envDefault:"10"`
	// "x,y;x,y" 형식
	Obstacles []string `env:"PLANET_OBSTACLES" envSeparator:";" envDefault:"3,3;5,5;7,1;1,7;8,8"`
	// true면 장애물 목록 대신 랜덤 배치
	RandomObstacles bool   `env:"PLANET_RANDOM_OBSTACLES"`
	ObstacleCount   int    `env:"PLANET_OBSTACLE_COUNT"` // 0이면 넓이의 5%
	PlanetSeed      int64  `env:"PLANET_SEED"`           // 0이면 현재 시각
	PlanetFile      string `env:"PLANET_FILE"`           // YAML, 지정 시 위 값보다 우선

	AllowOrigins string `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`

	Database DatabaseConfig

	// PLANET_FILE 또는 PLANET_OBSTACLES 에서 읽은 최종 행성
	Planet models.PlanetConfig `env:"-"`
}

// MissionConfig - 관제 프로세스 설정
type MissionConfig struct {
	RoverURL       string        `env:"ROVER_URL" envDefault:"ws://localhost:8080/websocket/rover"`
	ReconnectDelay time.Duration `env:"RECONNECT_DELAY" envDefault:"5s"`
	PingInterval   time.Duration `env:"PING_INTERVAL" envDefault:"10s"`
	DialTimeout    time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	MapWidth       int           `env:"MAP_WIDTH" envDefault:"10"`
	MapHeight      int           `env:"MAP_HEIGHT" envDefault:"10"`
	Source         string        `env:"MISSION_SOURCE" envDefault:"mission-control"`
}

// planetFile - PLANET_FILE YAML 형식
type planetFile struct {
	Width     int               `yaml:"width"`
	Height    int               `yaml:"height"`
	Obstacles []models.Position `yaml:"obstacles"`
}

// ========================================
// 로드
// ========================================

// LoadDotEnv - .env 파일이 있으면 환경 변수로 로드
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env 파일을 찾을 수 없습니다. 환경 변수와 기본값을 사용합니다.")
	}
}

// LoadRover - 환경 변수 + 행성 파일에서 로버 설정 로드
func LoadRover() (*RoverConfig, error) {
	cfg := &RoverConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.PlanetFile != "" {
		planet, err := LoadPlanetFile(cfg.PlanetFile)
		if err != nil {
			return nil, err
		}
		cfg.Planet = planet
	} else {
		obstacles, err := ParseObstacles(cfg.Obstacles)
		if err != nil {
			return nil, err
		}
		cfg.Planet = models.PlanetConfig{
			Width:     cfg.PlanetWidth,
			Height:    cfg.PlanetHeight,
			Obstacles: obstacles,
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadMission - 환경 변수에서 관제 설정 로드
func LoadMission() (*MissionConfig, error) {
	cfg := &MissionConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPlanetFile - YAML 행성 파일 읽기
func LoadPlanetFile(path string) (models.PlanetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.PlanetConfig{}, fmt.Errorf("read planet file: %w", err)
	}

	var pf planetFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return models.PlanetConfig{}, fmt.Errorf("parse planet file %s: %w", path, err)
	}

	return models.PlanetConfig{
		Width:     pf.Width,
		Height:    pf.Height,
		Obstacles: pf.Obstacles,
	}, nil
}

// ParseObstacles - ["3,3", "5,5"] 를 좌표 목록으로 변환
func ParseObstacles(raw []string) ([]models.Position, error) {
	obstacles := make([]models.Position, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: obstacle %q (use x,y)", ErrInvalidConfig, item)
		}
		x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
		y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("%w: obstacle %q (use x,y)", ErrInvalidConfig, item)
		}
		obstacles = append(obstacles, models.Position{X: x, Y: y})
	}
	return obstacles, nil
}

// ========================================
// 검증
// ========================================

// StartState - 설정에서 초기 로버 상태 구성
func (c *RoverConfig) StartState() (models.RoverState, error) {
	dir, err := models.ParseDirection(c.StartDirection)
	if err != nil {
		return models.RoverState{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return models.RoverState{
		Position:  models.Position{X: c.StartX, Y: c.StartY},
		Direction: dir,
		Battery:   c.Battery,
		State:     models.ActivityFor(c.Battery),
	}, nil
}

// Validate - 포트, 행성 크기, 시작 위치 검증
//
// 랜덤 장애물 모드에서는 설정된 장애물 목록을 검사하지 않는다.
func (c *RoverConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalidConfig, c.Port)
	}
	if c.RoverID == "" {
		return fmt.Errorf("%w: empty rover id", ErrInvalidConfig)
	}
	if c.Planet.Width <= 0 || c.Planet.Height <= 0 {
		return fmt.Errorf("%w: planet size %dx%d", ErrInvalidConfig, c.Planet.Width, c.Planet.Height)
	}

	state, err := c.StartState()
	if err != nil {
		return err
	}
	if !c.Planet.Contains(state.Position) {
		return fmt.Errorf("%w: start %s outside %dx%d planet", ErrInvalidConfig, state.Position, c.Planet.Width, c.Planet.Height)
	}
	if c.Battery < 0 || c.Battery > 100 {
		return fmt.Errorf("%w: battery %.1f", ErrInvalidConfig, c.Battery)
	}

	if !c.RandomObstacles {
		for _, o := range c.Planet.Obstacles {
			if !c.Planet.Contains(o) {
				return fmt.Errorf("%w: obstacle %s outside planet", ErrInvalidConfig, o)
			}
		}
		if c.Planet.HasObstacle(state.Position) {
			return fmt.Errorf("%w: start %s is an obstacle", ErrInvalidConfig, state.Position)
		}
	}

	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("%w: DB_DRIVER %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.LogFlushSize <= 0 || c.Database.LogFlushInterval <= 0 {
		return fmt.Errorf("%w: log flush size/interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// Addr - fiber Listen 주소
func (c *RoverConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate - 관제 설정 검증
func (c *MissionConfig) Validate() error {
	if !strings.HasPrefix(c.RoverURL, "ws://") && !strings.HasPrefix(c.RoverURL, "wss://") {
		return fmt.Errorf("%w: ROVER_URL %q must be ws:// or wss://", ErrInvalidConfig, c.RoverURL)
	}
	if c.ReconnectDelay <= 0 || c.PingInterval <= 0 || c.DialTimeout <= 0 {
		return fmt.Errorf("%w: delays must be positive", ErrInvalidConfig)
	}
	if c.MapWidth <= 0 || c.MapHeight <= 0 {
		return fmt.Errorf("%w: map size %dx%d", ErrInvalidConfig, c.MapWidth, c.MapHeight)
	}
	return nil
}
