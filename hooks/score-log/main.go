// Package main provides a posematch hook that appends every finished session
// to a CSV file.
//
// The file defaults to scores.csv next to the hook and can be moved with the
// POSEMATCH_SCORE_LOG environment variable.
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Request represents the input from the hook executor.
type Request struct {
	Event   string   `json:"event"`
	Routine *Routine `json:"routine"`
	Session *Session `json:"session"`
}

type Routine struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Session struct {
	ID           string    `json:"id"`
	UseWeights   bool      `json:"use_weights"`
	Score        int       `json:"score"`
	MaxScore     int       `json:"max_score"`
	Frames       int       `json:"frames"`
	Matched      int       `json:"matched"`
	MeanDistance float64   `json:"mean_distance"`
	EndedAt      time.Time `json:"ended_at"`
}

// Response represents the output to the hook executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

var header = []string{"ended_at", "routine", "session", "weighted", "score", "max_score", "percent", "frames", "matched", "mean_distance"}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Event != "session.finished" {
		writeErrorResponse(fmt.Sprintf("unknown event: %s", req.Event))
		return
	}
	if req.Routine == nil || req.Session == nil {
		writeErrorResponse("routine and session are required")
		return
	}

	path := os.Getenv("POSEMATCH_SCORE_LOG")
	if path == "" {
		path = "scores.csv"
	}

	if err := appendRow(path, row(req.Routine, req.Session)); err != nil {
		writeErrorResponse(err.Error())
		return
	}

	writeSuccessResponse()
}

func row(r *Routine, s *Session) []string {
	percent := 0.0
	if s.MaxScore > 0 {
		percent = 100 * float64(s.Score) / float64(s.MaxScore)
	}
	return []string{
		s.EndedAt.Format(time.RFC3339),
		r.Name,
		s.ID,
		strconv.FormatBool(s.UseWeights),
		strconv.Itoa(s.Score),
		strconv.Itoa(s.MaxScore),
		strconv.FormatFloat(percent, 'f', 1, 64),
		strconv.Itoa(s.Frames),
		strconv.Itoa(s.Matched),
		strconv.FormatFloat(s.MeanDistance, 'f', 4, 64),
	}
}

// appendRow appends record to the CSV at path, writing the header first when
// the file is new.
func appendRow(path string, record []string) error {
	_, err := os.Stat(path)
	fresh := os.IsNotExist(err)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		w.Write(header)
	}
	w.Write(record)
	w.Flush()
	return w.Error()
}

func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

func writeErrorResponse(msg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: msg})
}
