package services

import (
	"encoding/json"
	"log"
	"mars-rover/models"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// LogStore - 텔레메트리 로그 저장소
type LogStore interface {
	SaveBatch(logs []models.RoverLog) error
	Recent(roverID string, limit int) ([]models.RoverLog, error)
	ByTimeRange(roverID string, start, end time.Time, limit int) ([]models.RoverLog, error)
	ByEventType(roverID string, eventType string, limit int) ([]models.RoverLog, error)
	Stats(roverID string, since time.Time) (models.LogStats, error)
}

// LogBuffer - 로깅 버퍼 (비동기 일괄 처리)
//
// nil LogBuffer 에 대한 호출은 모두 무시된다.
type LogBuffer struct {
	store     LogStore
	roverID   string
	logs      []models.RoverLog
	mu        sync.Mutex
	flushSize int           // 일괄 저장 크기
	flushTime time.Duration // 자동 플러시 시간

	flushMu  sync.Mutex    // 저장소 쓰기는 한 번에 하나
	flushNow chan struct{} // 크기 도달 시 autoFlush 깨우기

	stopChan chan struct{}
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// NewLogBuffer - 로깅 버퍼 생성 (Start 호출 전까지 자동 플러시 없음)
func NewLogBuffer(store LogStore, roverID string, flushSize int, flushInterval time.Duration) *LogBuffer {
	if flushSize <= 0 {
		flushSize = 1
	}
	return &LogBuffer{
		store:     store,
		roverID:   roverID,
		logs:      make([]models.RoverLog, 0, flushSize*2),
		flushSize: flushSize,
		flushTime: flushInterval,
		flushNow:  make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start - 자동 플러시 고루틴 시작
func (lb *LogBuffer) Start() {
	if lb == nil {
		return
	}
	lb.mu.Lock()
	if lb.started {
		lb.mu.Unlock()
		return
	}
	lb.started = true
	lb.mu.Unlock()

	go lb.autoFlush()
	log.Printf("✅ 로깅 시스템 초기화 완료 (flushSize: %d, flushInterval: %v)", lb.flushSize, lb.flushTime)
}

// autoFlush - 주기적 로그 저장
func (lb *LogBuffer) autoFlush() {
	defer close(lb.done)

	ticker := time.NewTicker(lb.flushTime)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lb.Flush()
		case <-lb.flushNow:
			lb.Flush()
		case <-lb.stopChan:
			lb.Flush() // 종료 시 남은 로그 저장
			return
		}
	}
}

// Stop - 자동 플러시 종료 후 남은 로그 저장
func (lb *LogBuffer) Stop() {
	if lb == nil {
		return
	}
	lb.stopOnce.Do(func() {
		close(lb.stopChan)

		lb.mu.Lock()
		started := lb.started
		lb.mu.Unlock()

		if started {
			select {
			case <-lb.done:
			case <-time.After(5 * time.Second):
				log.Println("⚠️ 로그 플러시 대기 시간 초과")
			}
		}
		lb.Flush()
		log.Println("🛑 로깅 시스템 종료")
	})
}

// Add - 로그 버퍼에 추가 (비동기)
func (lb *LogBuffer) Add(entry models.RoverLog) {
	if lb == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.RoverID == "" {
		entry.RoverID = lb.roverID
	}

	lb.mu.Lock()
	lb.logs = append(lb.logs, entry)
	size := len(lb.logs)
	started := lb.started
	lb.mu.Unlock()

	// 버퍼 크기가 차면 즉시 플러시
	if size >= lb.flushSize {
		if !started {
			go lb.Flush()
			return
		}
		select {
		case lb.flushNow <- struct{}{}:
		default: // 이미 깨워 둠
		}
	}
}

// Pending - 아직 저장되지 않은 로그 수
func (lb *LogBuffer) Pending() int {
	if lb == nil {
		return 0
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return len(lb.logs)
}

// Flush - 버퍼의 모든 로그를 저장소에 저장
//
// 진행 중인 다른 플러시가 있으면 그 저장이 끝날 때까지 기다린다.
func (lb *LogBuffer) Flush() {
	if lb == nil {
		return
	}
	lb.flushMu.Lock()
	defer lb.flushMu.Unlock()

	lb.mu.Lock()
	if len(lb.logs) == 0 {
		lb.mu.Unlock()
		return
	}

	// 로그 복사 및 버퍼 초기화
	logsToSave := make([]models.RoverLog, len(lb.logs))
	copy(logsToSave, lb.logs)
	lb.logs = lb.logs[:0]
	lb.mu.Unlock()

	if lb.store == nil {
		return
	}
	if err := lb.store.SaveBatch(logsToSave); err != nil {
		log.Printf("❌ 로그 저장 실패: %v", err)
		return
	}
	log.Printf("💾 로그 %d개 저장 완료", len(logsToSave))
}

// ========================================
// 이벤트별 기록 헬퍼
// ========================================

func stateLog(eventType string, msgType models.MessageType, connID string, state models.RoverState) models.RoverLog {
	return models.RoverLog{
		CreatedAt:    time.Now(),
		EventType:    eventType,
		MessageType:  string(msgType),
		PositionX:    state.Position.X,
		PositionY:    state.Position.Y,
		Direction:    string(state.Direction),
		Battery:      state.Battery,
		State:        string(state.State),
		ConnectionID: connID,
	}
}

// RecordStatus - STATUS 전송 기록
func (lb *LogBuffer) RecordStatus(connID string, state models.RoverState) {
	lb.Add(stateLog(models.EventStatusSent, models.MessageTypeStatus, connID, state))
}

// RecordCommand - 명령 실행 결과 기록
func (lb *LogBuffer) RecordCommand(connID string, commands []models.Command, result SequenceResult) {
	entry := stateLog(models.EventCommandExecuted, models.MessageTypeCommand, connID, result.FinalState)
	entry.Commands = models.CommandString(commands)
	entry.Success = result.Success
	entry.CommandsExecuted = result.CommandsExecuted
	entry.Detail = result.Message
	if result.ObstacleDetected != nil {
		x, y := result.ObstacleDetected.X, result.ObstacleDetected.Y
		entry.ObstacleX = &x
		entry.ObstacleY = &y
	}
	if data, err := json.Marshal(result.Path); err == nil {
		entry.DataJSON = string(data)
	}
	lb.Add(entry)
}

// RecordObstacle - 장애물 발견 기록
func (lb *LogBuffer) RecordObstacle(connID string, obstacle models.Position, state models.RoverState) {
	entry := stateLog(models.EventObstacleDiscovered, models.MessageTypeObstacleDiscovered, connID, state)
	x, y := obstacle.X, obstacle.Y
	entry.ObstacleX = &x
	entry.ObstacleY = &y
	lb.Add(entry)
}

// RecordProtocolError - 잘못된 메시지 기록
func (lb *LogBuffer) RecordProtocolError(connID string, raw []byte, detail string) {
	lb.Add(models.RoverLog{
		CreatedAt:    time.Now(),
		EventType:    models.EventProtocolError,
		MessageType:  string(models.MessageTypeError),
		ConnectionID: connID,
		Detail:       strings.ToValidUTF8(detail, ""),
		DataJSON:     truncate(string(raw), 1024),
	})
}

// RecordConnection - 연결 열림/닫힘 기록
func (lb *LogBuffer) RecordConnection(connID string, opened bool, total int) {
	eventType := models.EventConnectionClosed
	if opened {
		eventType = models.EventConnectionOpened
	}
	lb.Add(models.RoverLog{
		CreatedAt:    time.Now(),
		EventType:    eventType,
		ConnectionID: connID,
		Detail:       connectionDetail(total),
	})
}

func connectionDetail(total int) string {
	data, _ := json.Marshal(map[string]int{"connections": total})
	return string(data)
}

// truncate - 최대 n 바이트, 잘못된 UTF-8 은 제거하고 문자 경계에서 자른다
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
