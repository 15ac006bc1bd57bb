package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType - 와이어 메시지 타입
type MessageType string

// ========================================
// 메시지 타입 상수
// ========================================
const (
	// Mission Control → Rover
	MessageTypeCommand MessageType = "COMMAND" // 이동 명령 시퀀스

	// Rover → Mission Control
	MessageTypeStatus             MessageType = "STATUS"              // 로버 상태 스냅샷
	MessageTypeCommandResponse    MessageType = "COMMAND_RESPONSE"    // 명령 실행 결과
	MessageTypeObstacleDiscovered MessageType = "OBSTACLE_DISCOVERED" // 장애물 발견
	MessageTypePong               MessageType = "PONG"                // PING 응답
	MessageTypeError              MessageType = "ERROR"               // 프로토콜 오류

	// 양방향
	MessageTypePing MessageType = "PING" // keepalive
)

// ErrEmptyPayload - payload 필드가 없음
var ErrEmptyPayload = errors.New("empty payload")

// ========================================
// 공통 메시지 봉투
// ========================================
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"` // Unix timestamp (ms)
	Source    string          `json:"source"`
}

// NewMessage - payload를 직렬화해서 봉투 생성
func NewMessage(msgType MessageType, source string, payload interface{}) (Message, error) {
	if payload == nil {
		payload = struct{}{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
		Source:    source,
	}, nil
}

// ParseMessage - JSON 텍스트 프레임을 봉투로 파싱
func ParseMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("parse message: %w", err)
	}
	if msg.Type == "" {
		return Message{}, errors.New("parse message: missing type")
	}
	return msg, nil
}

// Marshal - 텍스트 프레임으로 직렬화
func (m Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// DecodePayload - payload를 타입별 구조체로 디코딩
func (m Message) DecodePayload(v interface{}) error {
	if len(m.Payload) == 0 || string(m.Payload) == "null" {
		return fmt.Errorf("%s: %w", m.Type, ErrEmptyPayload)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// ========================================
// 타입별 payload
// ========================================

// CommandPayload - COMMAND
type CommandPayload struct {
	Commands []string `json:"commands"`
}

// StatusPayload - STATUS
type StatusPayload struct {
	RoverID   string    `json:"roverId"`
	Position  Position  `json:"position"`
	Direction Direction `json:"direction"`
	Battery   float64   `json:"battery"`
	State     Activity  `json:"state"`
}

// RoverState - payload에서 로버 상태만 추출
func (p StatusPayload) RoverState() RoverState {
	return RoverState{
		Position:  p.Position,
		Direction: p.Direction,
		Battery:   p.Battery,
		State:     p.State,
	}
}

// CommandResponsePayload - COMMAND_RESPONSE
type CommandResponsePayload struct {
	Success          bool       `json:"success"`
	Message          string     `json:"message"`
	FinalPosition    Position   `json:"finalPosition"`
	FinalDirection   Direction  `json:"finalDirection"`
	ObstacleDetected *Position  `json:"obstacleDetected,omitempty"`
	PathTaken        []Position `json:"pathTaken,omitempty"`
}

// ObstaclePayload - OBSTACLE_DISCOVERED
type ObstaclePayload struct {
	Position     Position `json:"position"`
	DiscoveredAt int64    `json:"discoveredAt"` // Unix timestamp (ms)
}

// PongPayload - PONG
type PongPayload struct {
	Status string `json:"status"`
}

// ErrorPayload - ERROR
type ErrorPayload struct {
	Error string `json:"error"`
}
