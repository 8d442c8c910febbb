package review

import (
	"sync"

	"github.com/theimaginaryfoundation/recap-o-matic/review/fileutils"
)

// OracleExchange is one recorded round trip to a generation oracle.
type OracleExchange struct {
	Stage    string `json:"stage"`
	Prompt   string `json:"prompt"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// AuditLog collects raw oracle exchanges for later inspection. All methods
// are nil-safe so components can record unconditionally whether or not the
// run asked for an audit trail.
type AuditLog struct {
	mu        sync.Mutex
	exchanges []OracleExchange
}

func (a *AuditLog) Record(stage, prompt, response string, err error) {
	if a == nil {
		return
	}
	ex := OracleExchange{Stage: stage, Prompt: prompt, Response: response}
	if err != nil {
		ex.Error = err.Error()
	}
	a.mu.Lock()
	a.exchanges = append(a.exchanges, ex)
	a.mu.Unlock()
}

func (a *AuditLog) Exchanges() []OracleExchange {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]OracleExchange(nil), a.exchanges...)
}

// AuditDump is the machine-readable sidecar artifact: every oracle exchange
// plus the period × topic matrix the streamgraph was built from.
type AuditDump struct {
	Exchanges []OracleExchange `json:"exchanges"`
	Matrix    PeriodMatrix     `json:"matrix"`
	Labels    map[int]string   `json:"labels"`
}

// WriteAuditDump writes the dump atomically.
func WriteAuditDump(path string, dump AuditDump, pretty bool) error {
	return fileutils.WriteJSONFileAtomic(path, dump, pretty)
}
