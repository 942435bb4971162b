package screens

import (
	"sync"

	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a transient message for the user, like an alert or toast.
type Notice struct {
	Level   Level
	Message string
}

type Notifier interface {
	Notify(Notice)
}

// LogNotifier writes notices to the log; used by the CLI.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) Notify(x Notice) {
	if x.Level == LevelError {
		n.Log.Warn(x.Message, zap.String("notice", string(x.Level)))
		return
	}
	n.Log.Info(x.Message, zap.String("notice", string(x.Level)))
}

// Recorder keeps every notice in order.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(x Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, x)
	r.mu.Unlock()
}

func (r *Recorder) All() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}
