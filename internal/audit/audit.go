// Package audit records apply sessions as JSON files so every file
// write, backup, and restore the tool performs can be reviewed later.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

type OperationType string

const (
	OpWrite   OperationType = "write"
	OpBackup  OperationType = "backup"
	OpRestore OperationType = "restore"
	OpSkip    OperationType = "skip"
)

type OperationRecord struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Type      OperationType `json:"type"`
	File      string        `json:"file"`
	Detail    string        `json:"detail,omitempty"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

type SessionMetadata struct {
	CommandArgs   []string  `json:"command_args"`
	WorkingDir    string    `json:"working_dir"`
	Timestamp     time.Time `json:"timestamp"`
	SessionID     string    `json:"session_id"`
	TotalOps      int       `json:"total_operations"`
	SuccessfulOps int       `json:"successful_operations"`
	FailedOps     int       `json:"failed_operations"`
}

type Session struct {
	Metadata   SessionMetadata   `json:"metadata"`
	Operations []OperationRecord `json:"operations"`
}

var (
	currentSession *Session
	sessionMutex   sync.Mutex
	loggingEnabled = true
)

// Initialize enables or disables session recording and prunes sessions
// older than retentionDays.
func Initialize(enabled bool, retentionDays int) {
	sessionMutex.Lock()
	defer sessionMutex.Unlock()

	loggingEnabled = enabled

	if enabled {
		if err := cleanupOldSessionsUnsafe(retentionDays); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to clean up old audit logs: %v\n", err)
		}
	}
}

// StartSession opens a new session tagged with the invoking command.
func StartSession(command string, args []string) error {
	sessionMutex.Lock()
	defer sessionMutex.Unlock()

	if !loggingEnabled {
		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	now := time.Now()
	sessionID := fmt.Sprintf("%s_%s", now.Format("20060102_150405"), fmt.Sprintf("%03d", now.Nanosecond()/1000000))

	currentSession = &Session{
		Metadata: SessionMetadata{
			CommandArgs: append([]string{command}, args...),
			WorkingDir:  wd,
			Timestamp:   now,
			SessionID:   sessionID,
		},
		Operations: []OperationRecord{},
	}

	return nil
}

// EndSession saves the current session to disk.
func EndSession() error {
	sessionMutex.Lock()
	defer sessionMutex.Unlock()

	if !loggingEnabled || currentSession == nil {
		return nil
	}

	updateStats()
	err := WriteSession(currentSession)
	currentSession = nil
	return err
}

// Record appends one operation to the current session.
func Record(opType OperationType, file, detail string, success bool, err error) {
	sessionMutex.Lock()
	defer sessionMutex.Unlock()

	if !loggingEnabled || currentSession == nil {
		return
	}

	op := OperationRecord{
		ID:        fmt.Sprintf("%s_%d", currentSession.Metadata.SessionID, len(currentSession.Operations)),
		Timestamp: time.Now(),
		Type:      opType,
		File:      file,
		Detail:    detail,
		Success:   success,
	}

	if err != nil {
		op.Error = err.Error()
	}

	currentSession.Operations = append(currentSession.Operations, op)
}

func updateStats() {
	if currentSession == nil {
		return
	}

	successful := 0
	failed := 0

	for _, op := range currentSession.Operations {
		if op.Success {
			successful++
		} else {
			failed++
		}
	}

	currentSession.Metadata.TotalOps = len(currentSession.Operations)
	currentSession.Metadata.SuccessfulOps = successful
	currentSession.Metadata.FailedOps = failed
}

func sessionDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".kometa-resolve", "logs"), nil
}

func sessionPath() (string, error) {
	dir, err := sessionDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create audit log directory: %w", err)
	}

	now := time.Now()
	filename := fmt.Sprintf("%s.%03d.json",
		now.Format("2006-01-02_150405"),
		now.Nanosecond()/1000000)

	return filepath.Join(dir, filename), nil
}

func WriteSession(session *Session) error {
	if session == nil {
		return nil
	}

	path, err := sessionPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	return nil
}

func ReadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// ReadSessions returns the most recent sessions, newest first.
func ReadSessions(limit int) ([]*Session, error) {
	dir, err := sessionDir()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*Session{}, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	sessions := make([]*Session, 0, len(files))
	for _, file := range files {
		session, err := ReadSession(file)
		if err != nil {
			// Skip corrupted files
			continue
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}

func cleanupOldSessionsUnsafe(retentionDays int) error {
	dir, err := sessionDir()
	if err != nil {
		return err
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list audit logs: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to remove old audit log %s: %v\n", file, err)
				continue
			}
		}
	}

	return nil
}
