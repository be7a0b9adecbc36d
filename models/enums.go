package models

// Stage is the production stage an order currently sits in
type Stage string

const (
	StagePending   Stage = "PENDING"
	StageMetal     Stage = "METAL"
	StageVeneer    Stage = "VENEER"
	StageAssy      Stage = "ASSY"
	StageFinishing Stage = "FINISHING"
	StagePacking   Stage = "PACKING"
	StageCompleted Stage = "COMPLETED"
)

// Stages lists every stage value in pipeline order
var Stages = []Stage{
	StagePending,
	StageMetal,
	StageVeneer,
	StageAssy,
	StageFinishing,
	StagePacking,
	StageCompleted,
}

// ProductionStages are the five stages that carry In/Out timestamps, in pipeline order
var ProductionStages = []Stage{
	StageMetal,
	StageVeneer,
	StageAssy,
	StageFinishing,
	StagePacking,
}

// Valid reports whether s is one of the known stages
func (s Stage) Valid() bool {
	for _, known := range Stages {
		if s == known {
			return true
		}
	}
	return false
}

// Status is the order's lifecycle status
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusOnHold     Status = "ON_HOLD"
)

// Statuses lists every status value
var Statuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusOnHold,
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Closed reports whether the order no longer expects a delivery
func (s Status) Closed() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Priority of an order
type Priority string

const (
	PriorityUrgent   Priority = "URGENT"
	PriorityStandard Priority = "STANDARD"
	PriorityLow      Priority = "LOW"
)

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	return p == PriorityUrgent || p == PriorityStandard || p == PriorityLow
}

// User roles
const (
	RoleSuperAdmin = "SUPERADMIN"
	RoleAdmin      = "ADMIN"
	RoleWorker     = "WORKER"
)

// ValidRole reports whether role is one of the known user roles
func ValidRole(role string) bool {
	return role == RoleSuperAdmin || role == RoleAdmin || role == RoleWorker
}
