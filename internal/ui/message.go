package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodify/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSnapshot MsgKind = iota
	MsgQueryDone
	MsgLoadMoreDone
	MsgSignInDone
	MsgOpened
	MsgHistoryRecorded
)

// snapshotMsg is the constructor for [MsgSnapshot]
func snapshotMsg(v tasks.View) Msg {
	return Msg{kind: MsgSnapshot, data: v}
}

// queryDoneMsg is the constructor for [MsgQueryDone]
func queryDoneMsg(err error) Msg {
	return Msg{kind: MsgQueryDone, data: err}
}

// loadMoreDoneMsg is the constructor for [MsgLoadMoreDone]
func loadMoreDoneMsg(err error) Msg {
	return Msg{kind: MsgLoadMoreDone, data: err}
}

// signInDoneMsg is the constructor for [MsgSignInDone]
func signInDoneMsg(err error) Msg {
	return Msg{kind: MsgSignInDone, data: err}
}

// openedMsg is the constructor for [MsgOpened]
func openedMsg(err error) Msg {
	return Msg{kind: MsgOpened, data: err}
}

// historyRecordedMsg is the constructor for [MsgHistoryRecorded]
func historyRecordedMsg(err error) Msg {
	return Msg{kind: MsgHistoryRecorded, data: err}
}

func (m Msg) err() error {
	if err, ok := m.data.(error); ok {
		return err
	}
	return nil
}
