package models

import (
	"time"
)

// 텔레메트리 이벤트 타입
const (
	EventStatusSent         = "status_sent"
	EventCommandExecuted    = "command_executed"
	EventObstacleDiscovered = "obstacle_discovered"
	EventProtocolError      = "protocol_error"
	EventConnectionOpened   = "connection_opened"
	EventConnectionClosed   = "connection_closed"
)

// RoverLog - 로버 행동 로그 (텔레메트리)
type RoverLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	EventType   string    `gorm:"index" json:"event_type"` // "command_executed", "obstacle_discovered", ...
	MessageType string    `json:"message_type"`

	// 로버 상태
	RoverID   string  `gorm:"index" json:"rover_id"`
	PositionX int     `json:"position_x"`
	PositionY int     `json:"position_y"`
	Direction string  `json:"direction"`
	Battery   float64 `json:"battery"`
	State     string  `json:"state"`

	// 명령 정보
	Commands         string `json:"commands"` // "FFLR"
	Success          bool   `json:"success"`
	CommandsExecuted int    `json:"commands_executed"`

	// 장애물 정보 (없으면 nil)
	ObstacleX *int `json:"obstacle_x"`
	ObstacleY *int `json:"obstacle_y"`

	// 메타데이터
	ConnectionID string `json:"connection_id"`
	Detail       string `json:"detail"`    // 오류 메시지 등
	DataJSON     string `json:"data_json"` // 원본 메시지 JSON
}

// LogStats - 이벤트 타입별 로그 통계
type LogStats struct {
	TotalLogs   int64            `json:"total_logs"`
	EventCounts map[string]int64 `json:"event_counts"`
	Since       time.Time        `json:"since"`
}
