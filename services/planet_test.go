package services

import (
	"errors"
	"mars-rover/models"
	"reflect"
	"testing"
)

func TestGenerateExcludesStart(t *testing.T) {
	start := models.Position{X: 1, Y: 1}
	for seed := int64(0); seed < 20; seed++ {
		planet, err := NewSeededPlanetGenerator(seed).Generate(3, 3, 8, start)
		if err != nil {
			t.Fatal(err)
		}
		if len(planet.Config.Obstacles) != 8 {
			t.Fatalf("seed %d: %d obstacles, want 8", seed, len(planet.Config.Obstacles))
		}
		if planet.Config.HasObstacle(start) {
			t.Fatalf("seed %d: obstacle placed on start cell", seed)
		}
		if err := ValidateStart(planet.Config, models.RoverState{Position: start, Direction: models.DirectionNorth, Battery: 100}); err != nil {
			t.Fatalf("seed %d: generated planet invalid: %v", seed, err)
		}
	}
}

func TestGenerateDistinctCells(t *testing.T) {
	planet, err := NewSeededPlanetGenerator(42).Generate(10, 10, 30, models.Position{})
	if err != nil {
		t.Fatal(err)
	}
	seen := map[models.Position]bool{}
	for _, o := range planet.Config.Obstacles {
		if seen[o] {
			t.Fatalf("duplicate obstacle %v", o)
		}
		seen[o] = true
	}
	if !planet.Generated || planet.ID == "" {
		t.Errorf("unexpected planet metadata %+v", planet)
	}
}

func TestGenerateSameSeed(t *testing.T) {
	a, _ := NewSeededPlanetGenerator(7).Generate(10, 10, 5, models.Position{X: 2, Y: 2})
	b, _ := NewSeededPlanetGenerator(7).Generate(10, 10, 5, models.Position{X: 2, Y: 2})
	if !reflect.DeepEqual(a.Config.Obstacles, b.Config.Obstacles) {
		t.Errorf("same seed produced %v and %v", a.Config.Obstacles, b.Config.Obstacles)
	}
}

func TestGenerateClampsCount(t *testing.T) {
	planet, err := NewSeededPlanetGenerator(1).Generate(2, 2, 10, models.Position{})
	if err != nil {
		t.Fatal(err)
	}
	if len(planet.Config.Obstacles) != 3 {
		t.Errorf("got %d obstacles on a 2x2 planet, want 3", len(planet.Config.Obstacles))
	}
}

func TestGenerateInvalidSize(t *testing.T) {
	if _, err := NewPlanetGenerator().Generate(0, 5, 1, models.Position{}); !errors.Is(err, ErrInvalidPlanet) {
		t.Errorf("Generate(0, 5) error = %v", err)
	}
}

func TestFromConfigCopies(t *testing.T) {
	config := models.PlanetConfig{Width: 5, Height: 5, Obstacles: []models.Position{{X: 1, Y: 1}}}
	planet := NewPlanetGenerator().FromConfig(config)
	config.Obstacles[0] = models.Position{X: 4, Y: 4}
	if planet.Config.Obstacles[0] != (models.Position{X: 1, Y: 1}) {
		t.Errorf("FromConfig shares the obstacle slice")
	}
	if planet.Generated {
		t.Errorf("configured planet marked as generated")
	}
}
