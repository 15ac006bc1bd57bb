package services

import (
	"context"
	"fmt"
	"io"
	"mars-rover/models"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// InputKind - 콘솔 입력 종류
type InputKind int

const (
	InputEmpty InputKind = iota
	InputCommands
	InputMap
	InputStatus
	InputGoto
	InputHelp
	InputClear
	InputQuit
)

// ConsoleInput - 파싱된 콘솔 한 줄
type ConsoleInput struct {
	Kind     InputKind
	Commands []models.Command // InputCommands
	Target   models.Position  // InputGoto
}

// 키보드 배치: f/b/l/r 과 z/s/q/d 모두 허용
var keyCommands = map[rune]models.Command{
	'f': models.CommandForward,
	'z': models.CommandForward,
	'b': models.CommandBackward,
	's': models.CommandBackward,
	'l': models.CommandTurnLeft,
	'q': models.CommandTurnLeft,
	'r': models.CommandTurnRight,
	'd': models.CommandTurnRight,
}

// ConsoleHelp - help 명령 출력
const ConsoleHelp = `
🎮 === 명령어 ===
  f/z  - 전진        b/s  - 후진
  l/q  - 좌회전      r/d  - 우회전
  여러 글자를 한 줄에 입력하면 순서대로 실행 (예: ffrff)

  map/m      - 지도 표시
  status     - 미션 상태
  goto X Y   - 알려진 장애물을 피해 (X, Y)로 이동
  clear/c    - 화면 지우기
  help/h     - 도움말
  quit/exit  - 종료
`

// ParseInput - 콘솔 한 줄을 명령으로 변환
//
// 알 수 없는 글자가 하나라도 있으면 줄 전체를 거부한다.
func ParseInput(line string) (ConsoleInput, error) {
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return ConsoleInput{Kind: InputEmpty}, nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "map", "m":
		return ConsoleInput{Kind: InputMap}, nil
	case "status":
		return ConsoleInput{Kind: InputStatus}, nil
	case "help", "h":
		return ConsoleInput{Kind: InputHelp}, nil
	case "clear", "c":
		return ConsoleInput{Kind: InputClear}, nil
	case "quit", "exit":
		return ConsoleInput{Kind: InputQuit}, nil
	case "goto":
		return parseGoto(fields[1:])
	}

	commands := make([]models.Command, 0, len(line))
	for _, ch := range line {
		if unicode.IsSpace(ch) {
			continue
		}
		cmd, ok := keyCommands[ch]
		if !ok {
			return ConsoleInput{}, fmt.Errorf("%w: '%c' ('help' 로 도움말 확인)", models.ErrUnknownCommand, ch)
		}
		commands = append(commands, cmd)
	}
	return ConsoleInput{Kind: InputCommands, Commands: commands}, nil
}

func parseGoto(args []string) (ConsoleInput, error) {
	if len(args) != 2 {
		return ConsoleInput{}, fmt.Errorf("usage: goto X Y")
	}
	x, errX := strconv.Atoi(args[0])
	y, errY := strconv.Atoi(args[1])
	if errX != nil || errY != nil {
		return ConsoleInput{}, fmt.Errorf("usage: goto X Y (정수 좌표)")
	}
	return ConsoleInput{Kind: InputGoto, Target: models.Position{X: x, Y: y}}, nil
}

// ========================================
// 콘솔 세션
// ========================================

// CommandSender - 로버로 명령을 보내는 쪽 (ConnectionSupervisor)
type CommandSender interface {
	SendCommand(ctx context.Context, commands []models.Command) error
	Connected() bool
}

// Console - 관제 콘솔 한 세션
type Console struct {
	sender  CommandSender
	mission *MapReconstructor
	out     io.Writer
	now     func() time.Time
}

// NewConsole creates a console writing to out
func NewConsole(sender CommandSender, mission *MapReconstructor, out io.Writer) *Console {
	return &Console{sender: sender, mission: mission, out: out, now: time.Now}
}

// Handle - 한 줄을 처리한다. quit 이면 false
func (c *Console) Handle(ctx context.Context, line string) bool {
	input, err := ParseInput(line)
	if err != nil {
		fmt.Fprintf(c.out, "❌ %v\n", err)
		return true
	}

	switch input.Kind {
	case InputEmpty:
	case InputMap:
		fmt.Fprint(c.out, RenderMap(c.mission.Snapshot()))
	case InputStatus:
		fmt.Fprint(c.out, RenderStatus(c.mission.Status(c.sender.Connected()), c.now()))
	case InputHelp:
		fmt.Fprint(c.out, ConsoleHelp)
	case InputClear:
		fmt.Fprint(c.out, "\033[H\033[2J")
	case InputQuit:
		return false
	case InputGoto:
		commands, err := PlanRoute(c.mission.Snapshot(), input.Target)
		if err != nil {
			fmt.Fprintf(c.out, "❌ 경로 계획 실패: %v\n", err)
			return true
		}
		fmt.Fprintf(c.out, "🧭 %s 로 이동: %s\n", input.Target, models.CommandString(commands))
		c.send(ctx, commands)
	case InputCommands:
		c.send(ctx, input.Commands)
	}
	return true
}

func (c *Console) send(ctx context.Context, cmds []models.Command) {
	if len(cmds) == 0 {
		return
	}
	if err := c.sender.SendCommand(ctx, cmds); err != nil {
		fmt.Fprintf(c.out, "❌ 전송 실패: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "📤 전송: %s\n", models.CommandString(cmds))
}
