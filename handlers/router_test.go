package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mars-rover/models"
	"mars-rover/services"
	"sync"
	"testing"
)

// recordingConn - 쓰기를 기록하는 가짜 연결
type recordingConn struct {
	mu       sync.Mutex
	messages []models.Message
	closed   bool
	failing  bool
}

func (c *recordingConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("broken pipe")
	}
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.messages = append(c.messages, msg)
	return nil
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) types() []models.MessageType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.MessageType, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.Type
	}
	return out
}

func (c *recordingConn) last() models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[len(c.messages)-1]
}

func (c *recordingConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

func (c *recordingConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestRouter(t *testing.T) (*Router, func()) {
	t.Helper()
	engine, err := services.NewNavigationEngine(
		models.PlanetConfig{Width: 5, Height: 5, Obstacles: []models.Position{{X: 2, Y: 2}}},
		models.RoverState{Position: models.Position{X: 0, Y: 2}, Direction: models.DirectionEast, Battery: 100},
	)
	if err != nil {
		t.Fatal(err)
	}
	router := NewRouter(engine, "curiosity-rover", nil)
	ctx, cancel := context.WithCancel(context.Background())
	go router.Run(ctx)
	t.Cleanup(cancel)

	// 존재하지 않는 ID의 Disconnect 는 앞선 이벤트가 모두 처리될 때까지 기다린다
	drain := func() { router.Disconnect("barrier") }
	return router, drain
}

func frame(t *testing.T, msgType models.MessageType, payload interface{}) []byte {
	t.Helper()
	msg, err := models.NewMessage(msgType, "mission-control", payload)
	if err != nil {
		t.Fatal(err)
	}
	data, err := msg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func equalTypes(got []models.MessageType, want ...models.MessageType) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestConnectSendsStatusToNewConnectionOnly(t *testing.T) {
	router, drain := newTestRouter(t)
	a, b := &recordingConn{}, &recordingConn{}

	router.Connect(a)
	drain()
	router.Connect(b)
	drain()

	if !equalTypes(a.types(), models.MessageTypeStatus) {
		t.Errorf("a received %v", a.types())
	}
	if !equalTypes(b.types(), models.MessageTypeStatus) {
		t.Errorf("b received %v", b.types())
	}

	var status models.StatusPayload
	if err := b.last().DecodePayload(&status); err != nil {
		t.Fatal(err)
	}
	if status.RoverID != "curiosity-rover" || status.Position != (models.Position{X: 0, Y: 2}) || status.State != models.ActivityActive {
		t.Errorf("status = %+v", status)
	}
	if router.Registry().Count() != 2 {
		t.Errorf("registry count = %d", router.Registry().Count())
	}
}

func TestCommandFanOut(t *testing.T) {
	router, drain := newTestRouter(t)
	sender, observer := &recordingConn{}, &recordingConn{}
	id := router.Connect(sender)
	router.Connect(observer)
	drain()
	sender.reset()
	observer.reset()

	router.Dispatch(id, frame(t, models.MessageTypeCommand, models.CommandPayload{Commands: []string{"F", "F", "F"}}))
	drain()

	if !equalTypes(sender.types(), models.MessageTypeCommandResponse, models.MessageTypeObstacleDiscovered, models.MessageTypeStatus) {
		t.Fatalf("sender received %v", sender.types())
	}
	if !equalTypes(observer.types(), models.MessageTypeStatus) {
		t.Errorf("observer received %v", observer.types())
	}

	var resp models.CommandResponsePayload
	if err := sender.messages[0].DecodePayload(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.FinalPosition != (models.Position{X: 1, Y: 2}) || resp.ObstacleDetected == nil || *resp.ObstacleDetected != (models.Position{X: 2, Y: 2}) {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.PathTaken) != 1 || resp.PathTaken[0] != (models.Position{X: 1, Y: 2}) {
		t.Errorf("pathTaken = %v", resp.PathTaken)
	}

	var obstacle models.ObstaclePayload
	if err := sender.messages[1].DecodePayload(&obstacle); err != nil {
		t.Fatal(err)
	}
	if obstacle.Position != (models.Position{X: 2, Y: 2}) || obstacle.DiscoveredAt == 0 {
		t.Errorf("obstacle = %+v", obstacle)
	}
	if sender.messages[0].Source != "curiosity-rover" {
		t.Errorf("source = %q", sender.messages[0].Source)
	}
}

func TestCommandWithoutObstacle(t *testing.T) {
	router, drain := newTestRouter(t)
	conn := &recordingConn{}
	id := router.Connect(conn)
	drain()
	conn.reset()

	router.Dispatch(id, frame(t, models.MessageTypeCommand, models.CommandPayload{Commands: []string{"L", "F"}}))
	drain()

	if !equalTypes(conn.types(), models.MessageTypeCommandResponse, models.MessageTypeStatus) {
		t.Fatalf("received %v", conn.types())
	}
	var status models.StatusPayload
	_ = conn.last().DecodePayload(&status)
	if status.Position != (models.Position{X: 0, Y: 1}) || status.Direction != models.DirectionNorth || status.Battery != 99 {
		t.Errorf("status = %+v", status)
	}
}

func TestPingPong(t *testing.T) {
	router, drain := newTestRouter(t)
	conn := &recordingConn{}
	id := router.Connect(conn)
	drain()
	conn.reset()

	router.Dispatch(id, frame(t, models.MessageTypePing, nil))
	drain()

	if !equalTypes(conn.types(), models.MessageTypePong) {
		t.Fatalf("received %v", conn.types())
	}
	var pong models.PongPayload
	_ = conn.last().DecodePayload(&pong)
	if pong.Status != "alive" {
		t.Errorf("pong = %+v", pong)
	}
}

func TestProtocolErrors(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
	}{
		{"malformed json", func(t *testing.T) []byte { return []byte("{not json") }},
		{"missing type", func(t *testing.T) []byte { return []byte(`{"id":"1","payload":{}}`) }},
		{"unknown type", func(t *testing.T) []byte { return frame(t, "TELEPORT", nil) }},
		{"unknown command letter", func(t *testing.T) []byte {
			return frame(t, models.MessageTypeCommand, models.CommandPayload{Commands: []string{"F", "X"}})
		}},
		{"bad payload", func(t *testing.T) []byte {
			return []byte(`{"id":"1","type":"COMMAND","payload":{"commands":"FF"},"timestamp":0,"source":"x"}`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, drain := newTestRouter(t)
			conn, other := &recordingConn{}, &recordingConn{}
			id := router.Connect(conn)
			router.Connect(other)
			drain()
			conn.reset()
			other.reset()

			router.Dispatch(id, tt.data(t))
			drain()

			if !equalTypes(conn.types(), models.MessageTypeError) {
				t.Fatalf("received %v", conn.types())
			}
			var payload models.ErrorPayload
			_ = conn.last().DecodePayload(&payload)
			if payload.Error == "" {
				t.Error("empty error text")
			}
			if len(other.types()) != 0 {
				t.Errorf("other connection received %v", other.types())
			}
			if router.Registry().Count() != 2 || conn.isClosed() {
				t.Error("protocol error closed the connection")
			}
			if state := router.Engine().State(); state.Battery != 100 || state.Position != (models.Position{X: 0, Y: 2}) {
				t.Errorf("engine changed: %+v", state)
			}
		})
	}
}

func TestDisconnectRemovesWithoutBroadcast(t *testing.T) {
	router, drain := newTestRouter(t)
	a, b := &recordingConn{}, &recordingConn{}
	idA := router.Connect(a)
	router.Connect(b)
	drain()
	b.reset()

	router.Disconnect(idA)

	if _, ok := router.Registry().Get(idA); ok {
		t.Error("connection still registered")
	}
	if len(b.types()) != 0 {
		t.Errorf("disconnect broadcast %v", b.types())
	}
	if router.Engine().State().Battery != 100 {
		t.Error("disconnect mutated engine")
	}
}

func TestBroadcastDropsFailingConnection(t *testing.T) {
	router, drain := newTestRouter(t)
	sender, broken, healthy := &recordingConn{}, &recordingConn{}, &recordingConn{}
	id := router.Connect(sender)
	brokenID := router.Connect(broken)
	router.Connect(healthy)
	drain()
	healthy.reset()

	broken.mu.Lock()
	broken.failing = true
	broken.mu.Unlock()

	router.Dispatch(id, frame(t, models.MessageTypeCommand, models.CommandPayload{Commands: []string{"R"}}))
	drain()

	if _, ok := router.Registry().Get(brokenID); ok {
		t.Error("failing connection still registered")
	}
	if !broken.isClosed() {
		t.Error("failing connection not closed")
	}
	if !equalTypes(healthy.types(), models.MessageTypeStatus) {
		t.Errorf("healthy received %v", healthy.types())
	}
}

func TestRunClosesConnectionsOnCancel(t *testing.T) {
	engine, _ := services.NewNavigationEngine(
		models.PlanetConfig{Width: 3, Height: 3},
		models.RoverState{Direction: models.DirectionNorth, Battery: 100},
	)
	router := NewRouter(engine, "r", nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		router.Run(ctx)
		close(done)
	}()

	conn := &recordingConn{}
	router.Connect(conn)
	router.Disconnect("barrier")
	cancel()
	<-done

	if !conn.isClosed() || router.Registry().Count() != 0 {
		t.Error("connections not closed on shutdown")
	}
	// 종료 후 호출은 막히지 않는다
	router.Disconnect("after-stop")
	router.Dispatch("x", nil)
}
