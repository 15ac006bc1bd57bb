package services

import (
	"errors"
	"fmt"
	"mars-rover/algorithms"
	"mars-rover/models"
	"sync"
)

// BatteryCostPerCommand - 명령 1개당 배터리 소모량 (회전, 이동, 막힌 이동 모두 동일)
const BatteryCostPerCommand = 0.5

// ErrInvalidPlanet - 행성/초기 상태 설정 오류
var ErrInvalidPlanet = errors.New("invalid planet configuration")

// SequenceResult - 명령 시퀀스 실행 결과
type SequenceResult struct {
	Success          bool
	Message          string
	FinalState       models.RoverState
	ObstacleDetected *models.Position
	Path             []models.Position // 실제로 이동한 칸들 (시작 칸 제외)
	CommandsExecuted int               // 막힌 명령도 포함
	Moved            bool
	Turned           bool
}

// NavigationEngine - 로버 항법 엔진 (로버 상태의 유일한 소유자)
type NavigationEngine struct {
	planet    models.PlanetConfig
	obstacles map[models.Position]bool

	position  models.Position
	direction models.Direction
	battery   float64

	mu sync.RWMutex
}

// NewNavigationEngine - 엔진 생성
func NewNavigationEngine(planet models.PlanetConfig, initial models.RoverState) (*NavigationEngine, error) {
	if err := ValidateStart(planet, initial); err != nil {
		return nil, err
	}

	planet = planet.Clone()
	obstacles := make(map[models.Position]bool, len(planet.Obstacles))
	for _, o := range planet.Obstacles {
		obstacles[o] = true
	}

	return &NavigationEngine{
		planet:    planet,
		obstacles: obstacles,
		position:  initial.Position,
		direction: initial.Direction,
		battery:   initial.Battery,
	}, nil
}

// ValidateStart - 행성 크기, 시작 위치, 방향, 배터리 검증
func ValidateStart(planet models.PlanetConfig, initial models.RoverState) error {
	if planet.Width <= 0 || planet.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidPlanet, planet.Width, planet.Height)
	}
	for _, o := range planet.Obstacles {
		if !planet.Contains(o) {
			return fmt.Errorf("%w: obstacle %s outside planet", ErrInvalidPlanet, o)
		}
	}
	if !planet.Contains(initial.Position) {
		return fmt.Errorf("%w: start %s outside planet", ErrInvalidPlanet, initial.Position)
	}
	if planet.HasObstacle(initial.Position) {
		return fmt.Errorf("%w: start %s is an obstacle", ErrInvalidPlanet, initial.Position)
	}
	if !initial.Direction.Valid() {
		return fmt.Errorf("%w: direction %q", ErrInvalidPlanet, initial.Direction)
	}
	if initial.Battery < 0 || initial.Battery > 100 {
		return fmt.Errorf("%w: battery %.1f", ErrInvalidPlanet, initial.Battery)
	}
	return nil
}

// ExecuteSequence - 명령을 순서대로 실행한다
//
// 장애물에 막히면 남은 명령은 모두 버리고 즉시 반환한다.
// 배터리가 0이면 더 이상 명령을 처리하지 않는다.
func (e *NavigationEngine) ExecuteSequence(commands []models.Command) SequenceResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	initialDirection := e.direction
	result := SequenceResult{Path: []models.Position{}}

	for _, cmd := range commands {
		if e.battery <= 0 {
			result.Message = fmt.Sprintf("%d/%d 명령 후 중단: battery depleted", result.CommandsExecuted, len(commands))
			return e.finish(result, initialDirection)
		}

		if !cmd.Valid() {
			result.Message = fmt.Sprintf("%d/%d 명령 후 중단: %v %q", result.CommandsExecuted, len(commands), models.ErrUnknownCommand, string(cmd))
			return e.finish(result, initialDirection)
		}

		result.CommandsExecuted++
		e.battery -= BatteryCostPerCommand
		if e.battery < 0 {
			e.battery = 0
		}

		switch cmd {
		case models.CommandTurnLeft:
			e.direction = e.direction.Left()
		case models.CommandTurnRight:
			e.direction = e.direction.Right()
		case models.CommandForward, models.CommandBackward:
			heading := e.direction
			if cmd == models.CommandBackward {
				heading = heading.Opposite()
			}
			candidate := e.next(heading)
			if e.obstacles[candidate] {
				blocked := candidate
				result.ObstacleDetected = &blocked
				result.Message = fmt.Sprintf("%d/%d 명령 후 중단: obstacle at %s", result.CommandsExecuted, len(commands), candidate)
				return e.finish(result, initialDirection)
			}
			e.position = candidate
			result.Path = append(result.Path, candidate)
		}
	}

	result.Success = true
	result = e.finish(result, initialDirection)
	result.Message = fmt.Sprintf("%d 명령 실행 완료", len(commands))
	switch {
	case result.Moved && result.Turned:
		result.Message += " - 이동 및 회전"
	case result.Moved:
		result.Message += " - 이동"
	case result.Turned:
		result.Message += " - 회전"
	}
	return result
}

// next - heading 방향으로 한 칸 (가장자리는 반대편으로 감싸짐)
func (e *NavigationEngine) next(heading models.Direction) models.Position {
	dx, dy := heading.Delta()
	p := algorithms.Step(algorithms.Point{X: e.position.X, Y: e.position.Y}, dx, dy, e.planet.Width, e.planet.Height)
	return models.Position{X: p.X, Y: p.Y}
}

func (e *NavigationEngine) finish(result SequenceResult, initialDirection models.Direction) SequenceResult {
	result.FinalState = e.stateLocked()
	result.Moved = len(result.Path) > 0 // 한 바퀴 돌아 제자리여도 이동
	result.Turned = e.direction != initialDirection
	return result
}

func (e *NavigationEngine) stateLocked() models.RoverState {
	return models.RoverState{
		Position:  e.position,
		Direction: e.direction,
		Battery:   e.battery,
		State:     models.ActivityFor(e.battery),
	}
}

// State - 현재 상태 스냅샷 (복사본)
func (e *NavigationEngine) State() models.RoverState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stateLocked()
}

// Planet - 행성 설정 복사본
func (e *NavigationEngine) Planet() models.PlanetConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.planet.Clone()
}
