package models

// BinStatus is the coarse visual state of a bin
type BinStatus string

const (
	BinStatusEmpty       BinStatus = "empty"
	BinStatusHalfFilled  BinStatus = "half-filled"
	BinStatusOverflowing BinStatus = "overflowing"
)

// OverflowFillLevel is the fill percentage from which a bin counts as overflowing.
const OverflowFillLevel = 75

// StatusForFill derives the visual status from a fill percentage.
func StatusForFill(fill int) BinStatus {
	switch {
	case fill < 25:
		return BinStatusEmpty
	case fill < OverflowFillLevel:
		return BinStatusHalfFilled
	default:
		return BinStatusOverflowing
	}
}

// Priority is the urgency tier of a complaint
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// DerivePriority is used when the assessment carries no explicit priority.
func DerivePriority(status BinStatus, fill int) Priority {
	switch status {
	case BinStatusOverflowing:
		if fill >= 90 {
			return PriorityCritical
		}
		return PriorityHigh
	case BinStatusHalfFilled:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ComplaintStatus is the workflow state of a complaint
type ComplaintStatus string

const (
	ComplaintPending    ComplaintStatus = "pending"
	ComplaintInProgress ComplaintStatus = "in_progress"
	ComplaintEscalated  ComplaintStatus = "escalated"
	ComplaintResolved   ComplaintStatus = "resolved"
)

func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintPending, ComplaintInProgress, ComplaintEscalated, ComplaintResolved:
		return true
	}
	return false
}

// rank orders workflow states; in_progress and escalated share a tier.
func (s ComplaintStatus) rank() int {
	switch s {
	case ComplaintPending:
		return 0
	case ComplaintInProgress, ComplaintEscalated:
		return 1
	case ComplaintResolved:
		return 2
	}
	return -1
}

// CanAdminMoveTo reports whether an administrator may move a complaint from s
// to next. Escalation is reserved for the scheduler and resolved is terminal.
func (s ComplaintStatus) CanAdminMoveTo(next ComplaintStatus) bool {
	if !next.Valid() || s == ComplaintResolved {
		return s == next
	}
	if next == ComplaintEscalated {
		return s == ComplaintEscalated
	}
	return next.rank() >= s.rank()
}

// RiskLevel is shared by health risks and area risk tiers
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Department is the party responsible for a complaint at an escalation level
type Department string

const (
	DepartmentSanitation            Department = "sanitation"
	DepartmentSanitationSupervisor  Department = "sanitation_supervisor"
	DepartmentHealth                Department = "health_department"
	DepartmentMunicipalCommissioner Department = "municipal_commissioner"
)

// MaxEscalationLevel is the highest escalation tier.
const MaxEscalationLevel = 3

var departmentsByLevel = [MaxEscalationLevel + 1]Department{
	DepartmentSanitation,
	DepartmentSanitationSupervisor,
	DepartmentHealth,
	DepartmentMunicipalCommissioner,
}

// DepartmentForLevel maps an escalation level to its department; levels are clamped to 0..3.
func DepartmentForLevel(level int) Department {
	if level < 0 {
		level = 0
	}
	if level > MaxEscalationLevel {
		level = MaxEscalationLevel
	}
	return departmentsByLevel[level]
}

// Role is an application role from the role table
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Badge names
const (
	BadgeFirstReporter = "First Reporter"
	BadgeActiveCitizen = "Active Citizen"
	BadgeCityGuardian  = "City Guardian"
	BadgeCleanHero     = "Clean Hero"
	BadgeEcoChampion   = "Eco Champion"
)
