package models

import (
	"errors"
	"fmt"
	"strings"
)

// ========================================
// 방향 / 명령 상수
// ========================================

// Direction - 로버가 바라보는 방위 (4방향)
type Direction string

const (
	DirectionNorth Direction = "NORTH" // y-1
	DirectionEast  Direction = "EAST"  // x+1
	DirectionSouth Direction = "SOUTH" // y+1
	DirectionWest  Direction = "WEST"  // x-1
)

// Command - 로버 이동 명령 (한 글자)
type Command string

const (
	CommandForward   Command = "F"
	CommandBackward  Command = "B"
	CommandTurnLeft  Command = "L"
	CommandTurnRight Command = "R"
)

// Activity - 로버 활동 상태
type Activity string

const (
	ActivityActive   Activity = "ACTIVE"   // 배터리 잔량 있음
	ActivityInactive Activity = "INACTIVE" // 배터리 소진
)

// ErrUnknownCommand - 알 수 없는 명령 문자
var ErrUnknownCommand = errors.New("unknown command")

// ErrUnknownDirection - 알 수 없는 방향 문자열
var ErrUnknownDirection = errors.New("unknown direction")

// 왼쪽 회전은 NORTH → WEST → SOUTH → EAST 순환
var leftOf = map[Direction]Direction{
	DirectionNorth: DirectionWest,
	DirectionWest:  DirectionSouth,
	DirectionSouth: DirectionEast,
	DirectionEast:  DirectionNorth,
}

var rightOf = map[Direction]Direction{
	DirectionNorth: DirectionEast,
	DirectionEast:  DirectionSouth,
	DirectionSouth: DirectionWest,
	DirectionWest:  DirectionNorth,
}

// Left - 반시계 방향 90° 회전
func (d Direction) Left() Direction {
	return leftOf[d]
}

// Right - 시계 방향 90° 회전
func (d Direction) Right() Direction {
	return rightOf[d]
}

// Opposite - 반대 방향 (후진용)
func (d Direction) Opposite() Direction {
	return d.Right().Right()
}

// Delta - 한 칸 이동 시 (dx, dy)
func (d Direction) Delta() (int, int) {
	switch d {
	case DirectionNorth:
		return 0, -1
	case DirectionSouth:
		return 0, 1
	case DirectionEast:
		return 1, 0
	case DirectionWest:
		return -1, 0
	}
	return 0, 0
}

// Valid - 4방향 중 하나인지
func (d Direction) Valid() bool {
	_, ok := leftOf[d]
	return ok
}

// Symbol - 콘솔 맵에 표시할 로버 기호
func (d Direction) Symbol() string {
	switch d {
	case DirectionNorth:
		return "^"
	case DirectionSouth:
		return "v"
	case DirectionEast:
		return ">"
	case DirectionWest:
		return "<"
	}
	return "R"
}

// ParseDirection - "NORTH" / "N" 형식 모두 허용
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NORTH", "N":
		return DirectionNorth, nil
	case "EAST", "E":
		return DirectionEast, nil
	case "SOUTH", "S":
		return DirectionSouth, nil
	case "WEST", "W":
		return DirectionWest, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// ParseCommands - ["F","L",...] 를 명령 리스트로 변환
//
// 하나라도 알 수 없는 문자가 있으면 전체를 거부한다.
func ParseCommands(raw []string) ([]Command, error) {
	commands := make([]Command, 0, len(raw))
	for i, r := range raw {
		c := Command(strings.ToUpper(strings.TrimSpace(r)))
		if !c.Valid() {
			return nil, fmt.Errorf("%w at index %d: %q", ErrUnknownCommand, i, r)
		}
		commands = append(commands, c)
	}
	return commands, nil
}

// Valid - F/B/L/R 중 하나인지
func (c Command) Valid() bool {
	switch c {
	case CommandForward, CommandBackward, CommandTurnLeft, CommandTurnRight:
		return true
	}
	return false
}

// CommandString - 로그용 "FFLR" 형식
func CommandString(commands []Command) string {
	var sb strings.Builder
	for _, c := range commands {
		sb.WriteString(string(c))
	}
	return sb.String()
}

// ========================================
// 좌표 / 상태
// ========================================

// Position - 격자 좌표 (항상 행성 크기로 정규화됨)
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// PlanetConfig - 행성 크기와 장애물 (로버 프로세스 수명 동안 불변)
type PlanetConfig struct {
	Width     int        `json:"width" yaml:"width"`
	Height    int        `json:"height" yaml:"height"`
	Obstacles []Position `json:"obstacles" yaml:"obstacles"`
}

// HasObstacle - 해당 칸이 장애물인지
func (p PlanetConfig) HasObstacle(pos Position) bool {
	for _, o := range p.Obstacles {
		if o == pos {
			return true
		}
	}
	return false
}

// Contains - 좌표가 행성 범위 안인지
func (p PlanetConfig) Contains(pos Position) bool {
	return pos.X >= 0 && pos.X < p.Width && pos.Y >= 0 && pos.Y < p.Height
}

// Clone - 장애물 슬라이스까지 복사
func (p PlanetConfig) Clone() PlanetConfig {
	obstacles := make([]Position, len(p.Obstacles))
	copy(obstacles, p.Obstacles)
	return PlanetConfig{Width: p.Width, Height: p.Height, Obstacles: obstacles}
}

// RoverState - 로버 상태 스냅샷
type RoverState struct {
	Position  Position  `json:"position"`
	Direction Direction `json:"direction"`
	Battery   float64   `json:"battery"` // 0-100
	State     Activity  `json:"state"`
}

// ActivityFor - 배터리로부터 활동 상태 계산 (0이면 INACTIVE)
func ActivityFor(battery float64) Activity {
	if battery <= 0 {
		return ActivityInactive
	}
	return ActivityActive
}
