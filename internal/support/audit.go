package support

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// AuditEntry is one line of .antislop/audit.log. Every command that grades
// or writes something appends one.
type AuditEntry struct {
	TimestampUtc string `json:"timestampUtc"`
	Command      string `json:"command"`
	Files        int    `json:"files,omitempty"`
	Errors       int    `json:"errors,omitempty"`
	Score        int    `json:"score"`
	Grade        string `json:"grade,omitempty"`
	Critical     int    `json:"critical,omitempty"`
	Warning      int    `json:"warning,omitempty"`
	Info         int    `json:"info,omitempty"`
	Catalog      string `json:"catalogVersion,omitempty"`
	Result       string `json:"result,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

// AppendAudit appends entry to <outputDir>/audit.log as a JSON line.
func AppendAudit(outputDir string, entry AuditEntry) error {
	if entry.TimestampUtc == "" {
		entry.TimestampUtc = time.Now().UTC().Format(time.RFC3339)
	}
	path := filepath.Join(outputDir, "audit.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}
