package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type WorkflowExecution struct {
	Id           uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantId     uuid.UUID         `gorm:"type:uuid;not null;index"`
	SessionId    uuid.UUID         `gorm:"type:uuid;not null;index"`
	ThreadId     string            `gorm:"type:varchar(128);not null;index"`
	Status       string            `gorm:"type:varchar(32);not null;index"`
	Input        datatypes.JSONMap `gorm:"type:jsonb"`
	Output       datatypes.JSONMap `gorm:"type:jsonb"`
	ErrorMessage string            `gorm:"type:text"`
	CreatedAt    time.Time         `gorm:"autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime"`
}

func (WorkflowExecution) TableName() string {
	return "workflow_executions"
}

type HitlApproval struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantId       uuid.UUID         `gorm:"type:uuid;not null;index"`
	ExecutionId    uuid.UUID         `gorm:"type:uuid;not null;index"`
	Prompt         string            `gorm:"type:text"`
	ContextPayload datatypes.JSONMap `gorm:"type:jsonb"`
	Status         string            `gorm:"type:varchar(16);not null;default:'pending';index"`
	Feedback       string            `gorm:"type:text"`
	CreatedAt      time.Time         `gorm:"autoCreateTime"`
	ResolvedAt     *time.Time
}

func (HitlApproval) TableName() string {
	return "hitl_approvals"
}
