package services

import (
	"errors"
	"fmt"
	"log"
	"mars-rover/algorithms"
	"mars-rover/models"
	"math"
	"sort"
	"sync"
	"time"
)

// ErrUnhandledMessage - 관제 측에서 처리하지 않는 메시지 타입
var ErrUnhandledMessage = errors.New("unhandled message type")

// MapReconstructor - 수신 메시지만으로 화성 지도를 재구성한다
//
// 연결이 끊기면 BeginNewEpoch 로 재설정을 예약하고,
// 재연결 후 첫 STATUS 에서 탐사/장애물 기록을 한 번만 초기화한다.
type MapReconstructor struct {
	mu sync.RWMutex

	width  int
	height int

	explored    map[models.Position]bool
	obstacles   []models.Position
	obstacleSet map[models.Position]bool

	rover        *models.KnownRover
	lastContact  time.Time
	resetPending bool

	now func() time.Time
}

// NewMapReconstructor creates an empty mission map of the given size
func NewMapReconstructor(width, height int) *MapReconstructor {
	return &MapReconstructor{
		width:       width,
		height:      height,
		explored:    make(map[models.Position]bool),
		obstacleSet: make(map[models.Position]bool),
		now:         time.Now,
	}
}

// Apply - 수신 메시지 하나를 지도에 반영
func (m *MapReconstructor) Apply(msg models.Message) error {
	switch msg.Type {
	case models.MessageTypeStatus:
		var p models.StatusPayload
		if err := msg.DecodePayload(&p); err != nil {
			return err
		}
		m.applyStatus(p)

	case models.MessageTypeCommandResponse:
		var p models.CommandResponsePayload
		if err := msg.DecodePayload(&p); err != nil {
			return err
		}
		m.applyCommandResponse(p)

	case models.MessageTypeObstacleDiscovered:
		var p models.ObstaclePayload
		if err := msg.DecodePayload(&p); err != nil {
			return err
		}
		m.applyObstacle(p.Position)

	case models.MessageTypePong:
		m.touch()

	case models.MessageTypeError:
		var p models.ErrorPayload
		if err := msg.DecodePayload(&p); err != nil {
			return err
		}
		log.Printf("❌ 로버 오류: %s", p.Error)
		m.touch()

	default:
		return fmt.Errorf("%w: %s", ErrUnhandledMessage, msg.Type)
	}
	return nil
}

// BeginNewEpoch - 연결 종료 시 호출: 마지막 로버 상태를 잊고 다음 STATUS 에서 초기화
func (m *MapReconstructor) BeginNewEpoch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rover = nil
	m.resetPending = true
}

func (m *MapReconstructor) applyStatus(p models.StatusPayload) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.resetPending {
		m.explored = make(map[models.Position]bool)
		m.obstacles = nil
		m.obstacleSet = make(map[models.Position]bool)
		m.rover = nil
		m.resetPending = false
		log.Println("🗺️ 재연결: 지도 초기화")
	}

	state := p.RoverState()
	state.Position = m.normalize(state.Position)

	if m.rover != nil && m.rover.State.Position != state.Position {
		// 마지막 위치에서 새 위치까지의 경로를 추정해서 표시
		trace := algorithms.TracePath(toPoint(m.rover.State.Position), toPoint(state.Position), m.width, m.height)
		for _, pt := range trace {
			m.explored[fromPoint(pt)] = true
		}
	} else {
		m.explored[state.Position] = true
	}

	m.lastContact = m.now()
	m.rover = &models.KnownRover{
		RoverID:     p.RoverID,
		State:       state,
		LastContact: m.lastContact,
	}
}

func (m *MapReconstructor) applyCommandResponse(p models.CommandResponsePayload) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, pos := range p.PathTaken {
		m.explored[m.normalize(pos)] = true
	}
	m.explored[m.normalize(p.FinalPosition)] = true
	m.lastContact = m.now()
}

func (m *MapReconstructor) applyObstacle(pos models.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos = m.normalize(pos)
	if !m.obstacleSet[pos] {
		m.obstacleSet[pos] = true
		m.obstacles = append(m.obstacles, pos)
		log.Printf("🚧 장애물 발견: %s", pos)
	}
	m.lastContact = m.now()
}

func (m *MapReconstructor) touch() {
	m.mu.Lock()
	m.lastContact = m.now()
	m.mu.Unlock()
}

func (m *MapReconstructor) normalize(p models.Position) models.Position {
	return models.Position{
		X: algorithms.Wrap(p.X, m.width),
		Y: algorithms.Wrap(p.Y, m.height),
	}
}

// Snapshot - 렌더링/경로 계획용 복사본
func (m *MapReconstructor) Snapshot() models.MissionSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	explored := make([]models.Position, 0, len(m.explored))
	for p := range m.explored {
		explored = append(explored, p)
	}
	sort.Slice(explored, func(i, j int) bool {
		if explored[i].Y != explored[j].Y {
			return explored[i].Y < explored[j].Y
		}
		return explored[i].X < explored[j].X
	})

	obstacles := make([]models.Position, len(m.obstacles))
	copy(obstacles, m.obstacles)

	return models.MissionSnapshot{
		Width:     m.width,
		Height:    m.height,
		Explored:  explored,
		Obstacles: obstacles,
		Rover:     m.roverCopy(),
	}
}

// Status - 탐사 진행 요약
func (m *MapReconstructor) Status(connected bool) models.MissionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := m.width * m.height
	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(len(m.explored)) * 100 / float64(total)))
	}

	return models.MissionStatus{
		Connected:             connected,
		Rover:                 m.roverCopy(),
		ExploredArea:          len(m.explored),
		TotalArea:             total,
		ExplorationPercentage: percentage,
		ObstaclesFound:        len(m.obstacles),
	}
}

// LastContact - 마지막 수신 시각 (수신 기록이 없으면 zero)
func (m *MapReconstructor) LastContact() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastContact
}

func (m *MapReconstructor) roverCopy() *models.KnownRover {
	if m.rover == nil {
		return nil
	}
	r := *m.rover
	r.LastContact = m.lastContact
	return &r
}

func toPoint(p models.Position) algorithms.Point {
	return algorithms.Point{X: p.X, Y: p.Y}
}

func fromPoint(p algorithms.Point) models.Position {
	return models.Position{X: p.X, Y: p.Y}
}
