package domain

import "time"

// Mapping ローカルイベントID → リモートイベントIDの対応表
type Mapping map[string]string

// Clone マッピングのコピーを返す
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SyncState 一括同期の状態
type SyncState string

const (
	SyncIdle      SyncState = "idle"
	SyncRunning   SyncState = "running"
	SyncCompleted SyncState = "completed"
	SyncAborted   SyncState = "aborted"
)

// SyncResult 一括同期1回分の結果
type SyncResult struct {
	RunID    string    `json:"runId"`
	State    SyncState `json:"state"`
	Created  int       `json:"created"`
	Updated  int       `json:"updated"`
	Skipped  int       `json:"skipped"`
	Errors   int       `json:"errors"`
	LastSync time.Time `json:"lastSync"`
}

// Progress 一括同期の進捗
type Progress struct {
	Current    int `json:"current"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// NewProgress current/totalから進捗率を計算する
func NewProgress(current, total int) Progress {
	p := Progress{Current: current, Total: total}
	if total > 0 {
		p.Percentage = current * 100 / total
	}
	return p
}
