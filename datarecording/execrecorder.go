package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExecInfoTable is the table that holds the execution properties.
const ExecInfoTable = "exec_info"

// ExecInfo is one property of a program execution.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecRecorder records when and how the program was run.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

// NewExecRecorder creates the execution table in recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	recorder.CreateTable(ExecInfoTable, ExecInfo{})

	return &ExecRecorder{recorder: recorder}
}

// Start logs the current execution.
func (e *ExecRecorder) Start() {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", time.Now().Format("2006-01-02 15:04:05.000000000")},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	ex, err := os.Executable()
	if err == nil {
		e.entries = append(e.entries, ExecInfo{"Working Directory", filepath.Dir(ex)})
	}
}

// Set adds a property of the execution.
func (e *ExecRecorder) Set(property, value string) {
	e.entries = append(e.entries, ExecInfo{property, value})
}

// End writes the properties along with the exit time.
func (e *ExecRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(ExecInfoTable, entry)
	}

	e.recorder.InsertData(ExecInfoTable,
		ExecInfo{"End Time", time.Now().Format("2006-01-02 15:04:05.000000000")})

	e.entries = nil

	e.recorder.Flush()
}
