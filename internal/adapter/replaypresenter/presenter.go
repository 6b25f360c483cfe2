package replaypresenter

import (
	"strings"

	"github.com/park285/cheese-replay/internal/replay"
)

// Presenter delivers formatted lines and board images without coupling to the caller's transport.
type Presenter struct {
	sendMessage func(message string) error
	sendImage   func(png []byte) error
	formatter   *Formatter
}

func NewPresenter(formatter *Formatter, sendMessage func(message string) error, sendImage func(png []byte) error) *Presenter {
	if formatter == nil {
		formatter = NewFormatter(nil)
	}
	return &Presenter{sendMessage: sendMessage, sendImage: sendImage, formatter: formatter}
}

// Board sends message (when non-empty) and then the image (when non-empty).
func (p *Presenter) Board(message string, image []byte) error {
	if p == nil {
		return nil
	}
	if text := strings.TrimSpace(message); text != "" && p.sendMessage != nil {
		if err := p.sendMessage(message); err != nil {
			return err
		}
	}
	if len(image) > 0 && p.sendImage != nil {
		if err := p.sendImage(image); err != nil {
			return err
		}
	}
	return nil
}

// OnClassifiedMove prints each cue line; it makes the presenter a replay.CueDispatcher.
func (p *Presenter) OnClassifiedMove(ev replay.MoveEvent) {
	if p == nil || p.sendMessage == nil {
		return
	}
	_ = p.sendMessage(p.formatter.Cue(ToDTOEvent(ev)))
}

var _ replay.CueDispatcher = (*Presenter)(nil)
