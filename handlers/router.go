package handlers

import (
	"context"
	"fmt"
	"log"
	"mars-rover/models"
	"mars-rover/services"
	"time"

	"github.com/gofiber/websocket/v2"
)

// Router - 로버 측 메시지 라우터
//
// 연결/메시지/종료 이벤트는 하나의 루프 고루틴에서 순서대로 처리되고,
// 모든 소켓 쓰기도 그 고루틴에서만 일어난다.
type Router struct {
	engine   *services.NavigationEngine
	registry *ConnectionRegistry
	logs     *services.LogBuffer
	roverID  string

	events  chan routerEvent
	stopped chan struct{}
}

type routerEventKind int

const (
	routerConnect routerEventKind = iota
	routerMessage
	routerDisconnect
)

type routerEvent struct {
	kind routerEventKind
	id   string
	conn Conn
	data []byte
	done chan struct{} // routerDisconnect: 처리 완료 알림
}

// NewRouter creates a router around the navigation engine
func NewRouter(engine *services.NavigationEngine, roverID string, logs *services.LogBuffer) *Router {
	return &Router{
		engine:   engine,
		registry: NewConnectionRegistry(),
		logs:     logs,
		roverID:  roverID,
		events:   make(chan routerEvent, 64),
		stopped:  make(chan struct{}),
	}
}

// Registry - 연결 목록 (HTTP 상태 조회용)
func (r *Router) Registry() *ConnectionRegistry {
	return r.registry
}

// Engine - 항법 엔진
func (r *Router) Engine() *services.NavigationEngine {
	return r.engine
}

// RoverID - 로버 ID
func (r *Router) RoverID() string {
	return r.roverID
}

// Run - 이벤트 루프, ctx 취소 시 남은 연결을 모두 닫고 반환
func (r *Router) Run(ctx context.Context) {
	defer close(r.stopped)

	for {
		select {
		case <-ctx.Done():
			for _, id := range r.registry.IDs() {
				if conn, ok := r.registry.Remove(id); ok {
					_ = conn.Close()
				}
			}
			log.Println("🛑 라우터 종료")
			return

		case ev := <-r.events:
			switch ev.kind {
			case routerConnect:
				r.handleConnect(ev.id, ev.conn)
			case routerMessage:
				r.handleMessage(ev.id, ev.data)
			case routerDisconnect:
				r.handleDisconnect(ev.id)
				close(ev.done)
			}
		}
	}
}

// Connect - 새 연결을 큐에 넣고 연결 ID를 돌려준다
func (r *Router) Connect(conn Conn) string {
	id := NewConnectionID()
	r.post(routerEvent{kind: routerConnect, id: id, conn: conn})
	return id
}

// Dispatch - 수신 프레임을 큐에 넣는다
func (r *Router) Dispatch(id string, data []byte) {
	r.post(routerEvent{kind: routerMessage, id: id, data: data})
}

// Disconnect - 연결 종료를 처리하고 루프가 반영할 때까지 기다린다
//
// 반환 후에는 이 연결로 더 이상 쓰기가 일어나지 않는다.
func (r *Router) Disconnect(id string) {
	done := make(chan struct{})
	if !r.post(routerEvent{kind: routerDisconnect, id: id, done: done}) {
		return
	}
	select {
	case <-done:
	case <-r.stopped:
	}
}

func (r *Router) post(ev routerEvent) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.stopped:
		return false
	}
}

// ========================================
// 이벤트 처리 (루프 고루틴 전용)
// ========================================

func (r *Router) handleConnect(id string, conn Conn) {
	r.registry.Add(id, conn)
	log.Printf("🔗 관제 연결: %s (총 %d개)", id, r.registry.Count())
	r.logs.RecordConnection(id, true, r.registry.Count())

	r.unicast(id, models.MessageTypeStatus, r.statusPayload())
}

func (r *Router) handleDisconnect(id string) {
	if _, ok := r.registry.Remove(id); !ok {
		return
	}
	log.Printf("🔌 관제 연결 해제: %s (총 %d개)", id, r.registry.Count())
	r.logs.RecordConnection(id, false, r.registry.Count())
}

func (r *Router) handleMessage(id string, data []byte) {
	if _, ok := r.registry.Get(id); !ok {
		return
	}

	msg, err := models.ParseMessage(data)
	if err != nil {
		r.protocolError(id, data, fmt.Sprintf("invalid message: %v", err))
		return
	}

	switch msg.Type {
	case models.MessageTypeCommand:
		r.handleCommand(id, msg, data)

	case models.MessageTypePing:
		r.unicast(id, models.MessageTypePong, models.PongPayload{Status: "alive"})

	default:
		r.protocolError(id, data, fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

func (r *Router) handleCommand(id string, msg models.Message, raw []byte) {
	var payload models.CommandPayload
	if err := msg.DecodePayload(&payload); err != nil {
		r.protocolError(id, raw, fmt.Sprintf("invalid command payload: %v", err))
		return
	}
	commands, err := models.ParseCommands(payload.Commands)
	if err != nil {
		r.protocolError(id, raw, err.Error())
		return
	}

	result := r.engine.ExecuteSequence(commands)
	r.logs.RecordCommand(id, commands, result)
	log.Printf("🎮 명령 %s → %s %s (배터리 %.1f%%)",
		models.CommandString(commands), result.FinalState.Position, result.FinalState.Direction, result.FinalState.Battery)

	r.unicast(id, models.MessageTypeCommandResponse, models.CommandResponsePayload{
		Success:          result.Success,
		Message:          result.Message,
		FinalPosition:    result.FinalState.Position,
		FinalDirection:   result.FinalState.Direction,
		ObstacleDetected: result.ObstacleDetected,
		PathTaken:        result.Path,
	})

	if result.ObstacleDetected != nil {
		log.Printf("🚧 장애물 발견: %s", *result.ObstacleDetected)
		r.logs.RecordObstacle(id, *result.ObstacleDetected, result.FinalState)
		r.unicast(id, models.MessageTypeObstacleDiscovered, models.ObstaclePayload{
			Position:     *result.ObstacleDetected,
			DiscoveredAt: time.Now().UnixMilli(),
		})
	}

	r.broadcast(models.MessageTypeStatus, r.statusPayload())
}

func (r *Router) protocolError(id string, raw []byte, detail string) {
	log.Printf("⚠️ 프로토콜 오류 (%s): %s", id, detail)
	r.logs.RecordProtocolError(id, raw, detail)
	r.unicast(id, models.MessageTypeError, models.ErrorPayload{Error: detail})
}

func (r *Router) statusPayload() models.StatusPayload {
	state := r.engine.State()
	return models.StatusPayload{
		RoverID:   r.roverID,
		Position:  state.Position,
		Direction: state.Direction,
		Battery:   state.Battery,
		State:     state.State,
	}
}

// ========================================
// 전송
// ========================================

func (r *Router) unicast(id string, msgType models.MessageType, payload interface{}) {
	conn, ok := r.registry.Get(id)
	if !ok {
		return
	}
	data, err := r.encode(msgType, payload)
	if err != nil {
		log.Printf("❌ %s 직렬화 실패: %v", msgType, err)
		return
	}
	r.write(id, conn, msgType, data)
}

func (r *Router) broadcast(msgType models.MessageType, payload interface{}) {
	data, err := r.encode(msgType, payload)
	if err != nil {
		log.Printf("❌ %s 직렬화 실패: %v", msgType, err)
		return
	}
	for _, id := range r.registry.IDs() {
		if conn, ok := r.registry.Get(id); ok {
			r.write(id, conn, msgType, data)
		}
	}
}

// write - 실패하면 해당 연결만 제거하고 닫는다
func (r *Router) write(id string, conn Conn, msgType models.MessageType, data []byte) {
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("전송 실패 (%s): %v", id, err)
		r.registry.Remove(id)
		_ = conn.Close()
		r.logs.RecordConnection(id, false, r.registry.Count())
		return
	}
	if msgType == models.MessageTypeStatus {
		r.logs.RecordStatus(id, r.engine.State())
	}
}

func (r *Router) encode(msgType models.MessageType, payload interface{}) ([]byte, error) {
	msg, err := models.NewMessage(msgType, r.roverID, payload)
	if err != nil {
		return nil, err
	}
	return msg.Marshal()
}
