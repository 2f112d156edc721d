package models

import "strings"

type Status string

const (
	StatusCheckedIn       Status = "checked-in"
	StatusInDiagnostics   Status = "in-diagnostics"
	StatusWaitingForParts Status = "waiting-for-parts"
	StatusWorkInProgress  Status = "work-in-progress"
	StatusReadyForPickup  Status = "ready-for-pickup"
)

// Statuses lists the workflow in order.
var Statuses = []Status{
	StatusCheckedIn,
	StatusInDiagnostics,
	StatusWaitingForParts,
	StatusWorkInProgress,
	StatusReadyForPickup,
}

type statusInfo struct {
	label  string
	accent string
}

var statusTable = map[Status]statusInfo{
	StatusCheckedIn:       {label: "Checked In", accent: "blue"},
	StatusInDiagnostics:   {label: "In Diagnostics", accent: "orange"},
	StatusWaitingForParts: {label: "Waiting for Parts", accent: "red"},
	StatusWorkInProgress:  {label: "Work in Progress", accent: "purple"},
	StatusReadyForPickup:  {label: "Ready for Pickup", accent: "green"},
}

const fallbackAccent = "gray"

// ParseStatus accepts a slug ("in-diagnostics") or a display label
// ("In Diagnostics") and returns the slug.
func ParseStatus(raw string) (Status, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	if _, ok := statusTable[Status(value)]; ok {
		return Status(value), true
	}
	for status, info := range statusTable {
		if strings.EqualFold(info.label, value) {
			return status, true
		}
	}
	return "", false
}

func (s Status) Valid() bool {
	_, ok := statusTable[s]
	return ok
}

func (s Status) Label() string {
	if info, ok := statusTable[s]; ok {
		return info.label
	}
	return string(s)
}

// Accent is the dashboard colour for the status. It is display-only.
func (s Status) Accent() string {
	if info, ok := statusTable[s]; ok {
		return info.accent
	}
	return fallbackAccent
}

// Order is the position of s in the workflow, or -1.
func (s Status) Order() int {
	for i, status := range Statuses {
		if status == s {
			return i
		}
	}
	return -1
}
