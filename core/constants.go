package core

import "github.com/0xRadioAc7iv/go-filelog/internal/entry"

const (
	OneKilobyte = 1024
	OneMegabyte = 1024 * OneKilobyte

	// CopyWindowBytes bounds each read performed while streaming a payload.
	CopyWindowBytes = 64 * OneKilobyte

	// ReplayBufferBytes is the read-ahead used while replaying a log on startup.
	ReplayBufferBytes = 1 * OneMegabyte

	DefaultFileMode = 0644
	LockFileExt     = ".lock"

	// MaxEntryID is the largest identifier a log can hand out.
	MaxEntryID = entry.MaxID
)
