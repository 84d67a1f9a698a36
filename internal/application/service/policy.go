package service

import "github.com/garyjia/expense-requirement/internal/domain/entity"

// NewPresidentPolicy routes a requirement through the president when its
// department or its kind is listed. Empty lists never require the president.
func NewPresidentPolicy(departments []int, kinds []entity.Kind) PresidentPolicy {
	deptSet := make(map[int]bool, len(departments))
	for _, d := range departments {
		deptSet[d] = true
	}
	kindSet := make(map[entity.Kind]bool, len(kinds))
	for _, k := range kinds {
		kindSet[k] = true
	}

	return func(req *entity.Requirement) bool {
		return deptSet[req.DepartmentID] || kindSet[req.Kind]
	}
}

// AlwaysPresident requires the president for every requirement
func AlwaysPresident(*entity.Requirement) bool { return true }

// NeverPresident skips the president for every requirement
func NeverPresident(*entity.Requirement) bool { return false }
