package service

import "github.com/ikkim/bizmarket-backend/internal/app/model"

// Actor identifies who triggered a state change. A nil AdminID means the system.
type Actor struct {
	AdminID   *uint
	Name      string
	Role      string
	IPAddress string
	UserAgent string
}

// SystemActor is used for scheduler and payment-callback driven changes
var SystemActor = Actor{Name: "system", Role: "system"}

func (a Actor) IsSystem() bool {
	return a.AdminID == nil
}

// Trigger describes the fact that caused a recompute
type Trigger struct {
	Actor  Actor
	Action model.AuditAction // 기본값 Recompute
	Reason string
	// Force records an audit entry even when the trust snapshot is unchanged
	Force bool
}

func (t Trigger) action() model.AuditAction {
	if t.Action == "" {
		return model.AuditActionRecompute
	}
	return t.Action
}

func (a Actor) applyTo(entry *model.AuditLog) {
	entry.ActorID = a.AdminID
	entry.ActorName = a.Name
	entry.ActorRole = a.Role
	entry.IPAddress = a.IPAddress
	entry.UserAgent = a.UserAgent
}
