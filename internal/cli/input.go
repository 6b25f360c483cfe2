package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/park285/cheese-replay/internal/domain"
	"github.com/park285/cheese-replay/internal/replay"
)

// readRecord loads move text from path, or from stdin when path is "-".
func readRecord(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read game record: %w", err)
	}
	return string(data), nil
}

// playersFor takes names and Elo ratings from the record headers; non-empty overrides win.
func playersFor(record, whiteName, blackName string) (domain.Player, domain.Player) {
	white, black := replay.HeaderPlayers(record)
	if s := strings.TrimSpace(whiteName); s != "" {
		white = domain.Player{Name: s}
	}
	if s := strings.TrimSpace(blackName); s != "" {
		black = domain.Player{Name: s}
	}
	return white, black
}
