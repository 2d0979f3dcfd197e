package models

import "time"

type AnalysisTaskStatus string

const (
	AnalysisTaskStatusPending    AnalysisTaskStatus = "pending"
	AnalysisTaskStatusInProgress AnalysisTaskStatus = "in_progress"
	AnalysisTaskStatusDelivered  AnalysisTaskStatus = "delivered"
)

// AnalysisTask is one financial-analysis credit. Exactly one task per
// analysis payment unit; the unique index on payment_id keeps replays
// from minting extra credits.
type AnalysisTask struct {
	ID         string             `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID     string             `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	PaymentID  string             `gorm:"column:payment_id;type:uuid;not null;uniqueIndex" json:"payment_id"`
	TicketCode string             `gorm:"column:ticket_code;type:varchar(32);not null;uniqueIndex" json:"ticket_code"`
	Status     AnalysisTaskStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func (AnalysisTask) TableName() string {
	return "analysis_task"
}
