package models

import "time"

type Job struct {
	ID           int64     `json:"id"`
	QueueNumber  int       `json:"queueNumber"`
	RegNumber    string    `json:"regNumber"`
	CustomerName string    `json:"customerName"`
	ServiceType  string    `json:"serviceType"`
	Brand        string    `json:"brand"`
	Status       Status    `json:"status"`
	Branch       string    `json:"branch"`
	IsPriority   bool      `json:"isPriority"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AllBranches is the branch value that means "no branch scoping".
const AllBranches = "All Branches"

// IsAllBranches reports whether branch selects every branch.
func IsAllBranches(branch string) bool {
	return branch == "" || branch == AllBranches
}
