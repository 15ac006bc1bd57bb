package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mars-rover/models"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/hashicorp/go-multierror"
)

// ErrNotConnected - 로버와 연결되지 않은 상태에서 명령 전송 시도
var ErrNotConnected = errors.New("not connected to rover")

// ErrSupervisorStopped - Run 이 종료된 뒤 명령 전송 시도
var ErrSupervisorStopped = errors.New("supervisor stopped")

// ConnectionState - 관제 측 연결 상태
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	}
	return fmt.Sprintf("ConnectionState(%d)", int(s))
}

// ========================================
// 전송 계층 추상화
// ========================================

// WSConn - 관제 측 WebSocket 연결
type WSConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer - 로버 접속
type Dialer interface {
	Dial(ctx context.Context, url string) (WSConn, error)
}

// WebSocketDialer - fasthttp/websocket 기반 Dialer
type WebSocketDialer struct {
	dialer  *websocket.Dialer
	timeout time.Duration
}

// NewWebSocketDialer creates a dialer with a per-attempt timeout
func NewWebSocketDialer(timeout time.Duration) *WebSocketDialer {
	return &WebSocketDialer{
		dialer: &websocket.Dialer{
			HandshakeTimeout: timeout,
		},
		timeout: timeout,
	}
}

// Dial - 로버 WebSocket 엔드포인트에 접속
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (WSConn, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	conn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// ========================================
// ConnectionSupervisor
// ========================================

// SupervisorOptions - 연결 관리 설정
type SupervisorOptions struct {
	URL            string
	Source         string
	ReconnectDelay time.Duration
	PingInterval   time.Duration

	// OnMessage - 지도에 반영된 수신 메시지 알림 (이벤트 루프에서 호출됨)
	OnMessage func(models.Message)
}

// ConnectionSupervisor - 로버 연결 / keepalive / 재연결 관리
//
// 모든 소켓 쓰기와 상태 전이는 Run 의 이벤트 루프 고루틴에서만 일어난다.
type ConnectionSupervisor struct {
	opts    SupervisorOptions
	dialer  Dialer
	mission *MapReconstructor

	mu       sync.RWMutex
	state    ConnectionState
	attempts int

	events   chan supervisorEvent
	requests chan sendRequest
	stopped  chan struct{}
}

type eventKind int

const (
	eventDialed eventKind = iota
	eventMessage
	eventReadError
)

// supervisorEvent - 다이얼/리더 고루틴이 루프로 보내는 이벤트
type supervisorEvent struct {
	kind eventKind
	gen  int // 연결 세대, 이전 연결의 늦은 이벤트는 무시
	conn WSConn
	data []byte
	err  error
}

type sendRequest struct {
	msg   models.Message
	reply chan error
}

// NewConnectionSupervisor creates a supervisor feeding the given mission map
func NewConnectionSupervisor(opts SupervisorOptions, dialer Dialer, mission *MapReconstructor) *ConnectionSupervisor {
	return &ConnectionSupervisor{
		opts:     opts,
		dialer:   dialer,
		mission:  mission,
		state:    StateDisconnected,
		events:   make(chan supervisorEvent, 16),
		requests: make(chan sendRequest),
		stopped:  make(chan struct{}),
	}
}

// State - 현재 연결 상태
func (s *ConnectionSupervisor) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Connected - CONNECTED 상태인지
func (s *ConnectionSupervisor) Connected() bool {
	return s.State() == StateConnected
}

// Attempts - 지금까지 연결 시도 횟수
func (s *ConnectionSupervisor) Attempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempts
}

func (s *ConnectionSupervisor) setState(state ConnectionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// SendCommand - COMMAND 메시지 전송
//
// 연결되지 않았으면 네트워크를 건드리지 않고 ErrNotConnected 를 반환한다.
func (s *ConnectionSupervisor) SendCommand(ctx context.Context, commands []models.Command) error {
	if !s.Connected() {
		return ErrNotConnected
	}

	raw := make([]string, len(commands))
	for i, c := range commands {
		raw[i] = string(c)
	}
	msg, err := models.NewMessage(models.MessageTypeCommand, s.opts.Source, models.CommandPayload{Commands: raw})
	if err != nil {
		return err
	}

	req := sendRequest{msg: msg, reply: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-s.stopped:
		return ErrSupervisorStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		if err == nil {
			log.Printf("📤 명령 전송: %s", models.CommandString(commands))
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run - 이벤트 루프 (ctx 취소 시 타이머를 멈추고 소켓을 닫은 뒤 반환)
func (s *ConnectionSupervisor) Run(ctx context.Context) error {
	defer close(s.stopped)

	var (
		conn       WSConn
		gen        int
		pingTicker *time.Ticker
		pingC      <-chan time.Time
		reconnect  *time.Timer
		reconnectC <-chan time.Time
	)

	stopPing := func() {
		if pingTicker != nil {
			pingTicker.Stop()
			pingTicker = nil
			pingC = nil
		}
	}
	stopReconnect := func() {
		if reconnect != nil {
			reconnect.Stop()
			reconnect = nil
			reconnectC = nil
		}
	}
	scheduleReconnect := func() {
		stopReconnect()
		log.Printf("⏳ %v 후 재연결 시도", s.opts.ReconnectDelay)
		reconnect = time.NewTimer(s.opts.ReconnectDelay)
		reconnectC = reconnect.C
	}

	startDial := func() {
		gen++
		g := gen
		s.mu.Lock()
		s.state = StateConnecting
		s.attempts++
		attempt := s.attempts
		s.mu.Unlock()

		log.Printf("🔗 연결 시도 #%d → %s", attempt, s.opts.URL)
		go func() {
			c, err := s.dialer.Dial(ctx, s.opts.URL)
			select {
			case s.events <- supervisorEvent{kind: eventDialed, gen: g, conn: c, err: err}:
			case <-ctx.Done():
				if c != nil {
					_ = c.Close()
				}
			}
		}()
	}

	// dropConnection - CONNECTED 상태에서 벗어날 때
	dropConnection := func(reason error) {
		stopPing()
		s.mission.BeginNewEpoch()
		if conn != nil {
			if err := conn.Close(); err != nil {
				log.Printf("⚠️ 소켓 종료 오류: %v", err)
			}
			conn = nil
		}
		gen++ // 이전 리더의 이벤트 무시
		s.setState(StateDisconnected)
		log.Printf("🔌 로버 연결 종료: %v", reason)
		scheduleReconnect()
	}

	send := func(msg models.Message) error {
		data, err := msg.Marshal()
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			dropConnection(err)
			return fmt.Errorf("write %s: %w", msg.Type, err)
		}
		return nil
	}

	startDial()

	for {
		select {
		case <-ctx.Done():
			stopPing()
			stopReconnect()
			err := s.closeConn(conn)
			s.setState(StateDisconnected)
			log.Println("🛑 연결 관리 종료")
			return err

		case ev := <-s.events:
			if ev.gen != gen {
				if ev.kind == eventDialed && ev.conn != nil {
					_ = ev.conn.Close()
				}
				continue
			}

			switch ev.kind {
			case eventDialed:
				if ev.err != nil {
					log.Printf("❌ 연결 실패: %v", ev.err)
					s.setState(StateDisconnected)
					scheduleReconnect()
					continue
				}
				conn = ev.conn
				stopReconnect()
				s.setState(StateConnected)
				pingTicker = time.NewTicker(s.opts.PingInterval)
				pingC = pingTicker.C
				log.Println("✅ 로버 연결 완료")
				go s.readLoop(ctx, conn, gen)

			case eventMessage:
				s.handleInbound(ev.data)

			case eventReadError:
				dropConnection(ev.err)
			}

		case <-pingC:
			ping, err := models.NewMessage(models.MessageTypePing, s.opts.Source, nil)
			if err == nil {
				if err := send(ping); err != nil {
					log.Printf("❌ PING 전송 실패: %v", err)
				}
			}

		case <-reconnectC:
			reconnect = nil
			reconnectC = nil
			startDial()

		case req := <-s.requests:
			if conn == nil {
				req.reply <- ErrNotConnected
				continue
			}
			req.reply <- send(req.msg)
		}
	}
}

// readLoop - 소켓 읽기 전용 고루틴
func (s *ConnectionSupervisor) readLoop(ctx context.Context, conn WSConn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		ev := supervisorEvent{kind: eventMessage, gen: gen, data: data}
		if err != nil {
			ev = supervisorEvent{kind: eventReadError, gen: gen, err: err}
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// handleInbound - 수신 프레임 파싱 후 지도에 반영
func (s *ConnectionSupervisor) handleInbound(data []byte) {
	msg, err := models.ParseMessage(data)
	if err != nil {
		log.Printf("⚠️ 잘못된 메시지 무시: %v", err)
		return
	}
	if err := s.mission.Apply(msg); err != nil {
		log.Printf("⚠️ 메시지 처리 실패 (%s): %v", msg.Type, err)
		return
	}
	if s.opts.OnMessage != nil {
		s.opts.OnMessage(msg)
	}
}

// closeConn - 종료 프레임 전송 후 소켓 닫기
func (s *ConnectionSupervisor) closeConn(conn WSConn) error {
	if conn == nil {
		return nil
	}
	var result *multierror.Error
	closeFrame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "mission control shutdown")
	if err := conn.WriteMessage(websocket.CloseMessage, closeFrame); err != nil {
		result = multierror.Append(result, fmt.Errorf("send close frame: %w", err))
	}
	if err := conn.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close socket: %w", err))
	}
	return result.ErrorOrNil()
}
