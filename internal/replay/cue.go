package replay

import "go.uber.org/zap"

// Sound is the primary move-type cue played for a forward step.
type Sound string

const (
	SoundMove      Sound = "move"
	SoundCapture   Sound = "capture"
	SoundCastle    Sound = "castle"
	SoundPromotion Sound = "promotion"
)

// Accent is layered on top of the primary sound.
type Accent string

const (
	AccentNone      Accent = ""
	AccentCheck     Accent = "check"
	AccentCheckmate Accent = "checkmate"
)

// Cue is at most one move-type sound plus at most one check accent.
type Cue struct {
	Sound  Sound
	Accent Accent
}

// SelectCue picks the cue for a classification.
// Priority: promotion > capture > castle > plain move. The accent is independent.
func SelectCue(c Classification) Cue {
	cue := Cue{Sound: SoundMove}
	switch {
	case c.Has(TagPromotion):
		cue.Sound = SoundPromotion
	case c.Has(TagCapture):
		cue.Sound = SoundCapture
	case c.IsCastle():
		cue.Sound = SoundCastle
	}
	switch {
	case c.Has(TagCheckmate):
		cue.Accent = AccentCheckmate
	case c.Has(TagCheck):
		cue.Accent = AccentCheck
	}
	return cue
}

// MoveEvent is emitted once per forward step, after the cursor has advanced.
type MoveEvent struct {
	Ply            int // 1-based ply number of the move just played
	Token          string
	Classification Classification
	Cue            Cue
}

// CueDispatcher receives classified forward moves. Fire-and-forget.
type CueDispatcher interface {
	OnClassifiedMove(ev MoveEvent)
}

// DispatcherFunc adapts a plain function to CueDispatcher.
type DispatcherFunc func(ev MoveEvent)

func (f DispatcherFunc) OnClassifiedMove(ev MoveEvent) {
	if f != nil {
		f(ev)
	}
}

type nopDispatcher struct{}

func (nopDispatcher) OnClassifiedMove(MoveEvent) {}

// NopDispatcher discards every event.
func NopDispatcher() CueDispatcher { return nopDispatcher{} }

// MultiDispatcher fans an event out to each dispatcher in order.
type MultiDispatcher []CueDispatcher

func (m MultiDispatcher) OnClassifiedMove(ev MoveEvent) {
	for _, d := range m {
		if d != nil {
			d.OnClassifiedMove(ev)
		}
	}
}

// safeDispatch shields navigation from a misbehaving dispatcher.
func safeDispatch(d CueDispatcher, ev MoveEvent, logger *zap.Logger) {
	if d == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("replay_cue_dispatch_panic",
				zap.Int("ply", ev.Ply),
				zap.String("token", ev.Token),
				zap.Any("panic", r),
			)
		}
	}()
	d.OnClassifiedMove(ev)
}
