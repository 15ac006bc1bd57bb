package models

import "time"

// KnownRover - Mission Control이 마지막으로 관측한 로버 정보
type KnownRover struct {
	RoverID     string     `json:"rover_id"`
	State       RoverState `json:"state"`
	LastContact time.Time  `json:"last_contact"`
}

// MissionSnapshot - 재구성된 화성 지도의 읽기 전용 복사본
//
// Explored는 (y, x) 순으로 정렬되어 있다.
type MissionSnapshot struct {
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Explored  []Position  `json:"explored"`
	Obstacles []Position  `json:"obstacles"`
	Rover     *KnownRover `json:"rover,omitempty"`
}

// MissionStatus - 탐사 진행 요약
type MissionStatus struct {
	Connected             bool        `json:"connected"`
	Rover                 *KnownRover `json:"rover,omitempty"`
	ExploredArea          int         `json:"explored_area"`
	TotalArea             int         `json:"total_area"`
	ExplorationPercentage int         `json:"exploration_percentage"`
	ObstaclesFound        int         `json:"obstacles_found"`
}
