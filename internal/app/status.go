package app

import (
	"github.com/ayusman/posematch/internal/pose"
)

// Status is a snapshot of the app for the UI.
type Status struct {
	Mode         Mode             `json:"mode"`
	RoutineID    string           `json:"routine_id,omitempty"`
	RoutineName  string           `json:"routine_name,omitempty"`
	Recorded     int              `json:"recorded,omitempty"`
	Frame        int              `json:"frame"`
	Frames       int              `json:"frames"`
	Score        int              `json:"score"`
	MaxScore     int              `json:"max_score"`
	LastDistance float64          `json:"last_distance"`
	Line         string           `json:"line"`
	Check        *pose.BoneReport `json:"check,omitempty"`
	Bones        []pose.Bone      `json:"bones,omitempty"`
}

// Status returns the current state.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := Status{
		Mode:  a.mode,
		Line:  a.line,
		Bones: a.live.Bones(),
	}

	switch a.mode {
	case ModeRecording:
		st.RoutineName = a.recordName
		st.Recorded = a.recorder.Len()
	case ModePlaying:
		st.RoutineID = a.routine.ID
		st.RoutineName = a.routine.Name
		st.Frame = a.refIndex
		st.Frames = a.comparer.Len()
		st.Score = a.comparer.Score()
		st.MaxScore = a.comparer.MaxScore()
		st.LastDistance = a.comparer.LastDistance()
	case ModeChecking:
		if a.report != nil {
			r := *a.report
			st.Check = &r
			st.LastDistance = r.Distance
		}
	}
	return st
}

// StatusLine returns the one-line status shown in the tray.
func (a *App) StatusLine() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.line
}
