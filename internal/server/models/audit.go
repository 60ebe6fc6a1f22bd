package models

import "time"

// AuditAction enumerates the security-relevant actions that are recorded.
type AuditAction string

const (
	ActionLogin     AuditAction = "login"
	ActionLogout    AuditAction = "logout"
	ActionSync      AuditAction = "sync"
	ActionLoad      AuditAction = "load"
	ActionCreate    AuditAction = "create"
	ActionSetTarget AuditAction = "set-target"
	ActionDelete    AuditAction = "delete-account"
)

// AuditStatus is the outcome of an audited action.
type AuditStatus string

const (
	StatusSuccess AuditStatus = "success"
	StatusError   AuditStatus = "error"
)

// AuditEntry is immutable once written.
type AuditEntry struct {
	ID         string
	IdentityID string
	Action     AuditAction
	Status     AuditStatus
	FileID     string
	// ErrorMessage never contains secret material.
	ErrorMessage string
	IP           string
	Timestamp    time.Time
}
