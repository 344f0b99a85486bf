package model

import "time"

// 入库流水的状态。
const (
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusPartial   = "PARTIAL"
	RunStatusFailed    = "FAILED"
)

// IngestionRun 对应于数据库中的 ingestion_runs 表，每次文件入库记录一行。
type IngestionRun struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	IndexName  string    `gorm:"type:varchar(128);not null;index" json:"index_name"`
	IndexKind  string    `gorm:"type:varchar(32);not null" json:"index_kind"`
	SourceFile string    `gorm:"type:varchar(512);not null" json:"source_file"`
	Chunks     int       `gorm:"not null;default:0" json:"chunks"`
	Attempted  int       `gorm:"not null;default:0" json:"attempted"`
	Succeeded  int       `gorm:"not null;default:0" json:"succeeded"`
	Batches    int       `gorm:"not null;default:0" json:"batches"`
	Status     string    `gorm:"type:varchar(16);not null" json:"status"`
	Error      string    `gorm:"type:text" json:"error,omitempty"`
	StartedAt  time.Time `gorm:"not null" json:"started_at"`
	FinishedAt time.Time `gorm:"not null" json:"finished_at"`
}

func (IngestionRun) TableName() string {
	return "ingestion_runs"
}
