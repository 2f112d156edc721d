// Package validation holds the job field rules shared by the HTTP API and
// the CLI. Rules run in a fixed order and stop at the first failure.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"autoflow/workshop-service/internal/models"
	"autoflow/workshop-service/internal/store"
)

const (
	minRegNumber    = 4
	minCustomerName = 2
)

// ServiceTypes and Brands are the option lists offered by the job form.
// They are suggestions only; any non-empty value is accepted.
var (
	ServiceTypes = []string{"Regular Service", "Diagnostics", "Oil Change", "Brake Repair", "General Repair"}
	Brands       = []string{"Mitsubishi", "Toyota", "Suzuki"}
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldError(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}

// ValidateCreate trims and normalises input in place and returns the first
// rule it breaks as a *FieldError.
func ValidateCreate(input *store.CreateJobInput) error {
	input.RegNumber = strings.TrimSpace(input.RegNumber)
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.ServiceType = strings.TrimSpace(input.ServiceType)
	input.Brand = strings.TrimSpace(input.Brand)
	input.Branch = strings.TrimSpace(input.Branch)

	if err := checkRegNumber(input.RegNumber); err != nil {
		return err
	}
	if err := checkCustomerName(input.CustomerName); err != nil {
		return err
	}
	if err := checkServiceType(input.ServiceType); err != nil {
		return err
	}
	if err := checkBrand(input.Brand); err != nil {
		return err
	}
	status, err := checkStatus(string(input.Status))
	if err != nil {
		return err
	}
	input.Status = status
	if input.Branch == "" {
		return fieldError("branch", "Branch is required")
	}
	return checkQueueNumber(input.QueueNumber)
}

// ValidatePatch checks the fields present in patch. branchSet reports whether
// the request tried to change the branch, which is never allowed.
func ValidatePatch(patch *store.JobPatch, branchSet bool) error {
	if patch.RegNumber != nil {
		*patch.RegNumber = strings.TrimSpace(*patch.RegNumber)
		if err := checkRegNumber(*patch.RegNumber); err != nil {
			return err
		}
	}
	if patch.CustomerName != nil {
		*patch.CustomerName = strings.TrimSpace(*patch.CustomerName)
		if err := checkCustomerName(*patch.CustomerName); err != nil {
			return err
		}
	}
	if patch.ServiceType != nil {
		*patch.ServiceType = strings.TrimSpace(*patch.ServiceType)
		if err := checkServiceType(*patch.ServiceType); err != nil {
			return err
		}
	}
	if patch.Brand != nil {
		*patch.Brand = strings.TrimSpace(*patch.Brand)
		if err := checkBrand(*patch.Brand); err != nil {
			return err
		}
	}
	if patch.Status != nil {
		status, err := checkStatus(string(*patch.Status))
		if err != nil {
			return err
		}
		*patch.Status = status
	}
	if branchSet {
		return fieldError("branch", "Branch cannot be changed")
	}
	if patch.QueueNumber != nil {
		return checkQueueNumber(*patch.QueueNumber)
	}
	return nil
}

func checkRegNumber(value string) error {
	if utf8.RuneCountInString(value) < minRegNumber {
		return fieldError("regNumber", "Registration number must be at least 4 characters")
	}
	return nil
}

func checkCustomerName(value string) error {
	if utf8.RuneCountInString(value) < minCustomerName {
		return fieldError("customerName", "Customer name must be at least 2 characters")
	}
	return nil
}

func checkServiceType(value string) error {
	if value == "" {
		return fieldError("serviceType", "Please select a service type")
	}
	return nil
}

func checkBrand(value string) error {
	if value == "" {
		return fieldError("brand", "Please select a vehicle brand")
	}
	return nil
}

func checkStatus(value string) (models.Status, error) {
	if strings.TrimSpace(value) == "" {
		return "", fieldError("status", "Please select a status")
	}
	status, ok := models.ParseStatus(value)
	if !ok {
		return "", fieldError("status", fmt.Sprintf("Unknown status %q", value))
	}
	return status, nil
}

func checkQueueNumber(value int) error {
	if value < 0 {
		return fieldError("queueNumber", "Queue number cannot be negative")
	}
	return nil
}
