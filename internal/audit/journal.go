package audit

import (
    "bufio"
    "encoding/json"
    "os"
    "path/filepath"
    "sync"
    "time"

    "github.com/Baaaki/daily-report/pkg/logger"
    "go.uber.org/zap"
)

type Action string

const (
    ActionCreated Action = "created"
    ActionUpdated Action = "updated"
    ActionDeleted Action = "deleted"
)

// Entry records one committed employee mutation. Digests are never written here.
type Entry struct {
    EmployeeID      uint      `json:"employee_id"`
    Code            string    `json:"code"`
    Action          Action    `json:"action"`
    CodeChanged     bool      `json:"code_changed,omitempty"`
    PasswordChanged bool      `json:"password_changed,omitempty"`
    Timestamp       time.Time `json:"timestamp"`
}

// Journal is an append-only JSON-lines file of employee mutations. Soft-deleted
// employees keep their history here after they disappear from listings.
type Journal struct {
    filePath string
    file     *os.File
    mu       sync.Mutex
}

// Open creates the journal file (and its directory) if needed and opens it for append
func Open(filePath string) (*Journal, error) {
    if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
        return nil, err
    }

    file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
    if err != nil {
        return nil, err
    }

    return &Journal{
        filePath: filePath,
        file:     file,
    }, nil
}

// Record appends entry and syncs it to disk
func (j *Journal) Record(entry Entry) error {
    start := time.Now()
    j.mu.Lock()
    defer j.mu.Unlock()

    data, err := json.Marshal(entry)
    if err != nil {
        return err
    }

    if _, err := j.file.Write(append(data, '\n')); err != nil {
        logger.Log.Error("Audit: failed to write entry",
            zap.Uint("employee_id", entry.EmployeeID),
            zap.String("action", string(entry.Action)),
            zap.Error(err),
        )
        return err
    }

    // Force sync to disk (durability)
    if err := j.file.Sync(); err != nil {
        logger.Log.Error("Audit: failed to sync to disk",
            zap.Uint("employee_id", entry.EmployeeID),
            zap.Error(err),
        )
        return err
    }

    logger.Log.Debug("Audit: entry written",
        zap.Uint("employee_id", entry.EmployeeID),
        zap.String("action", string(entry.Action)),
        zap.Duration("duration", time.Since(start)),
    )

    return nil
}

// ReadAll returns every entry in file order. Lines that fail to decode are skipped.
func (j *Journal) ReadAll() ([]Entry, error) {
    j.mu.Lock()
    defer j.mu.Unlock()

    file, err := os.Open(j.filePath)
    if err != nil {
        if os.IsNotExist(err) {
            return []Entry{}, nil
        }
        return nil, err
    }
    defer file.Close()

    entries := []Entry{}
    scanner := bufio.NewScanner(file)
    for scanner.Scan() {
        var entry Entry
        if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
            continue
        }
        entries = append(entries, entry)
    }

    return entries, scanner.Err()
}

// History returns the entries for one employee, oldest first
func (j *Journal) History(employeeID uint) ([]Entry, error) {
    all, err := j.ReadAll()
    if err != nil {
        return nil, err
    }

    var history []Entry
    for _, entry := range all {
        if entry.EmployeeID == employeeID {
            history = append(history, entry)
        }
    }
    return history, nil
}

// Close closes the journal file
func (j *Journal) Close() error {
    j.mu.Lock()
    defer j.mu.Unlock()
    return j.file.Close()
}
