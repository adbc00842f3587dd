package entity

import (
	"time"

	"github.com/google/uuid"
)

type WorkflowExecution struct {
	Id           uuid.UUID
	TenantId     uuid.UUID
	SessionId    uuid.UUID
	ThreadId     string
	Status       string
	Input        map[string]interface{}
	Output       map[string]interface{}
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

type HitlApprovalStatus string

const (
	HitlApprovalPending  HitlApprovalStatus = "pending"
	HitlApprovalApproved HitlApprovalStatus = "approved"
	HitlApprovalRejected HitlApprovalStatus = "rejected"
)

type HitlApproval struct {
	Id             uuid.UUID
	TenantId       uuid.UUID
	ExecutionId    uuid.UUID
	Prompt         string
	ContextPayload map[string]interface{}
	Status         HitlApprovalStatus
	Feedback       string
	CreatedAt      time.Time
	ResolvedAt     *time.Time
}
