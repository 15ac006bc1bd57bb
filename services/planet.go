package services

import (
	"fmt"
	"mars-rover/models"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Planet - 로버가 탐사하는 행성 (ID + 설정)
type Planet struct {
	ID        string              `json:"id"`
	Config    models.PlanetConfig `json:"config"`
	Generated bool                `json:"generated"` // 랜덤 장애물 여부
	CreatedAt time.Time           `json:"createdAt"`
}

// PlanetGenerator handles planet creation and random obstacle placement
type PlanetGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPlanetGenerator creates a generator seeded from the clock
func NewPlanetGenerator() *PlanetGenerator {
	return NewSeededPlanetGenerator(time.Now().UnixNano())
}

// NewSeededPlanetGenerator - 같은 seed면 같은 장애물 배치
func NewSeededPlanetGenerator(seed int64) *PlanetGenerator {
	return &PlanetGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// FromConfig wraps a configured obstacle list
func (pg *PlanetGenerator) FromConfig(config models.PlanetConfig) *Planet {
	return &Planet{
		ID:        uuid.New().String(),
		Config:    config.Clone(),
		CreatedAt: time.Now(),
	}
}

// Generate creates a planet with count random obstacles, never on the start cell
func (pg *PlanetGenerator) Generate(width, height, count int, start models.Position) (*Planet, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidPlanet, width, height)
	}

	free := width*height - 1
	if count > free {
		count = free
	}
	if count < 0 {
		count = 0
	}

	pg.mu.Lock()
	obstacles := pg.generateObstacles(width, height, count, start)
	pg.mu.Unlock()

	return &Planet{
		ID: uuid.New().String(),
		Config: models.PlanetConfig{
			Width:     width,
			Height:    height,
			Obstacles: obstacles,
		},
		Generated: true,
		CreatedAt: time.Now(),
	}, nil
}

// generateObstacles picks count distinct cells excluding start
func (pg *PlanetGenerator) generateObstacles(width, height, count int, start models.Position) []models.Position {
	obstacles := make([]models.Position, 0, count)
	taken := map[models.Position]bool{start: true}

	// 빈 칸을 섞어서 앞에서부터 사용 (작은 격자에서도 항상 종료)
	cells := pg.rng.Perm(width * height)
	for _, idx := range cells {
		if len(obstacles) == count {
			break
		}
		pos := models.Position{X: idx % width, Y: idx / width}
		if taken[pos] {
			continue
		}
		taken[pos] = true
		obstacles = append(obstacles, pos)
	}

	return obstacles
}

// DefaultObstacleCount - 격자 넓이의 5% (최소 1개)
func DefaultObstacleCount(width, height int) int {
	n := width * height / 20
	if n < 1 {
		n = 1
	}
	return n
}
