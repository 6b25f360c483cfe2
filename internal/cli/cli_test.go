package cli

import (
	"bytes"
	"context"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/park285/cheese-replay/internal/api"
	"github.com/park285/cheese-replay/internal/chessrules"
	"github.com/park285/cheese-replay/internal/cuebus"
	"github.com/park285/cheese-replay/internal/render"
	"github.com/park285/cheese-replay/internal/wsstream"
	"github.com/park285/cheese-replay/pkg/replaydto"
	"github.com/valyala/fasthttp"
)

const ruyLopez = `[White "Ann"]
[Black "Bo"]
[WhiteElo "2100"]

1.e4 e5 2.Nf3 Nc6 3.Bb5 1-0`

// syncBuffer guards output written from stream callbacks.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeRecord(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game.pgn")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write record: %v", err)
	}
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := Root()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetIn(strings.NewReader(stdin))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	out, err := run(t, "", "classify", "Qxf7#", "O-O", "e8=Q+", "hello")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", out)
	}
	for i, want := range []string{"capture,checkmate", "castle-kingside", "promotion,check", " - "} {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d %q does not contain %q", i, lines[i], want)
		}
	}
	if !strings.HasSuffix(lines[0], "capture + checkmate") {
		t.Fatalf("unexpected cue label: %q", lines[0])
	}
}

func TestOutcomeCommand(t *testing.T) {
	out, err := run(t, "1.e4 e5 0-1", "outcome", "-")
	if err != nil {
		t.Fatalf("outcome: %v", err)
	}
	if !strings.Contains(out, "Black wins") || !strings.Contains(out, "(0-1)") {
		t.Fatalf("unexpected outcome output: %q", out)
	}
}

func TestPlayCommand(t *testing.T) {
	path := writeRecord(t, ruyLopez)
	out, err := run(t, "n\n\ng 5\nd\nzz\nq\n", "play", path)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	for _, want := range []string{
		"Loaded 5 plies (1-0)",
		"1. e4 [move]",
		"2. e5 [move]",
		"Ann (2100) vs Bo | ply 5/5 | last Bb5",
		"White wins",
		"unknown command: zz",
		"8  r . b q k b n r",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "3. Nf3") {
		t.Fatalf("seek must not dispatch cues:\n%s", out)
	}
}

func TestPlayCommand_IllegalMove(t *testing.T) {
	path := writeRecord(t, "1.e4 e5 2.Ke3 *")
	out, err := run(t, "n\nn\nn\nq\n", "play", "--no-board", path)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if !strings.Contains(out, "Move 3 (Ke3) is not legal") {
		t.Fatalf("expected illegal move message:\n%s", out)
	}
	if !strings.Contains(out, "ply 2/3") {
		t.Fatalf("cursor should stay at ply 2:\n%s", out)
	}
}

func TestPlayCommand_Errors(t *testing.T) {
	if _, err := run(t, "", "play", "-"); err == nil {
		t.Fatalf("expected error for stdin record")
	}
	path := writeRecord(t, "1. e4 e5 2. Zz9")
	if _, err := run(t, "q\n", "play", path); err == nil || !strings.Contains(err.Error(), "Could not read the game record") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestRenderCommand(t *testing.T) {
	path := writeRecord(t, ruyLopez)
	dst := filepath.Join(t.TempDir(), "board.png")
	if _, err := run(t, "", "render", path, "--ply", "2", "--size", "16", "-o", dst); err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("output is not a PNG")
	}
	if _, err := run(t, "", "render", path); err == nil {
		t.Fatalf("expected error without --output")
	}
}

func TestPlayersFor(t *testing.T) {
	w, b := playersFor(ruyLopez, "", "Zed")
	if w.Name != "Ann" || w.Rating != 2100 {
		t.Fatalf("unexpected white: %+v", w)
	}
	if b.Name != "Zed" || b.Rating != 0 {
		t.Fatalf("unexpected black: %+v", b)
	}
}

func startAPI(t *testing.T) (string, *cuebus.Hub) {
	t.Helper()
	hub := cuebus.NewHub(16, nil)
	reg, err := api.NewRegistry(api.RegistryOptions{
		Factory: api.NewSessionFactory(chessrules.NewEngine(), hub, true, nil),
		OnEvict: hub.CloseSession,
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	srv, err := api.NewServer(api.ServerOptions{Registry: reg, Boards: render.NewBoardRenderer(16)})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = fasthttp.Serve(ln, srv.Handler) }()
	t.Cleanup(func() { _ = ln.Close() })
	return "http://" + ln.Addr().String(), hub
}

func TestRemoteCommands(t *testing.T) {
	server, _ := startAPI(t)
	path := writeRecord(t, ruyLopez)

	out, err := run(t, "", "remote", "--server", server, "new", path)
	if err != nil {
		t.Fatalf("remote new: %v", err)
	}
	id := strings.SplitN(out, "\n", 2)[0]
	if id == "" || !strings.Contains(out, "ply 0/5") {
		t.Fatalf("unexpected new output: %q", out)
	}

	out, err = run(t, "", "remote", "--server", server, "step", id, "seek", "3")
	if err != nil || !strings.Contains(out, "ply 3/5 | last Nf3") {
		t.Fatalf("remote step seek: %v %q", err, out)
	}
	out, err = run(t, "", "remote", "--server", server, "step", id, "end")
	if err != nil || !strings.Contains(out, "White wins") {
		t.Fatalf("remote step end: %v %q", err, out)
	}
	if _, err := run(t, "", "remote", "--server", server, "step", id, "sideways"); err == nil {
		t.Fatalf("expected error for unknown step")
	}

	out, err = run(t, "", "remote", "--server", server, "show", id)
	if err != nil || !strings.Contains(out, "   a b c d e f g h") {
		t.Fatalf("remote show: %v %q", err, out)
	}

	dst := filepath.Join(t.TempDir(), "remote.png")
	if _, err := run(t, "", "remote", "--server", server, "board", id, "-o", dst); err != nil {
		t.Fatalf("remote board: %v", err)
	}

	saved, err := run(t, ruyLopez, "remote", "--server", server, "save", "--id", "g-1", "-")
	if err != nil || strings.TrimSpace(saved) != "g-1" {
		t.Fatalf("remote save: %v %q", err, saved)
	}
	out, err = run(t, "", "remote", "--server", server, "records")
	if err != nil || !strings.Contains(out, "g-1") || !strings.Contains(out, "Ann vs Bo") {
		t.Fatalf("remote records: %v %q", err, out)
	}
	out, err = run(t, "", "remote", "--server", server, "new", "--record", "g-1")
	if err != nil || !strings.Contains(out, "ply 0/5") {
		t.Fatalf("remote new --record: %v %q", err, out)
	}

	if _, err := run(t, "", "remote", "--server", server, "close", id); err != nil {
		t.Fatalf("remote close: %v", err)
	}
	if _, err := run(t, "", "remote", "--server", server, "show", id); err == nil {
		t.Fatalf("expected error for closed session")
	}
}

func TestWatchCommand(t *testing.T) {
	hub := cuebus.NewHub(16, nil)
	ws := httptest.NewServer(wsstream.NewHandler(hub))
	defer ws.Close()
	stream := "ws" + strings.TrimPrefix(ws.URL, "http")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	root := Root()
	root.SetArgs([]string{"watch", "--stream", stream, "--reconnect", "0", "s1"})
	root.SetOut(out)

	errCh := make(chan error, 1)
	go func() { errCh <- root.ExecuteContext(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for hub.Subscribers("s1") == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("watch never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	hub.Publish(replaydto.Frame{Type: replaydto.FrameCue, SessionID: "s1", Cue: &replaydto.MoveEvent{Ply: 1, Token: "e4", Sound: "move"}})

	for !strings.Contains(out.String(), "1. e4 [move]") {
		if time.Now().After(deadline) {
			t.Fatalf("cue line never printed: %q", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("watch: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("watch did not stop after cancel")
	}
}
