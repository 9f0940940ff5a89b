package routing

import (
	"errors"
	"fmt"

	"github.com/evercode/routegen/pkg/inventory"
)

var (
	ErrPortConflict     = errors.New("port conflict")
	ErrDuplicateService = errors.New("duplicate service name")
)

// PortConflictError names the service whose port was already taken on the
// same server.
type PortConflictError struct {
	Server  string
	Service string
	Port    int
}

func (e *PortConflictError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("port %d is already in use for server %s and service %s", e.Port, e.Server, e.Service)
}

func (e *PortConflictError) Is(target error) bool {
	return target == ErrPortConflict
}

// DuplicateServiceError reports a service name exposed by more than one
// server, which would make one router silently replace the other.
type DuplicateServiceError struct {
	Service string
	First   string
	Second  string
}

func (e *DuplicateServiceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("service %s is defined on both server %s and server %s", e.Service, e.First, e.Second)
}

func (e *DuplicateServiceError) Is(target error) bool {
	return target == ErrDuplicateService
}

// Validate runs ValidatePorts and then ValidateNames.
func Validate(model inventory.Model) error {
	if err := ValidatePorts(model); err != nil {
		return err
	}
	return ValidateNames(model)
}

// ValidatePorts checks port uniqueness per server and stops at the first
// conflict. Reusing a port on a different server is fine.
func ValidatePorts(model inventory.Model) error {
	for _, srv := range model {
		if err := validateServerPorts(srv); err != nil {
			return err
		}
	}
	return nil
}

// ValidateNames rejects a service name exposed by more than one server.
// Render would otherwise keep only the last one.
func ValidateNames(model inventory.Model) error {
	return validateServiceNames(model)
}

func validateServerPorts(srv inventory.Server) error {
	seen := make(map[int]struct{}, len(srv.Services))
	for _, svc := range srv.Services {
		if _, ok := seen[svc.Port]; ok {
			return &PortConflictError{Server: srv.Name, Service: svc.Name, Port: svc.Port}
		}
		seen[svc.Port] = struct{}{}
	}
	return nil
}

func validateServiceNames(model inventory.Model) error {
	owner := make(map[string]string, model.ServiceCount())
	for _, srv := range model {
		for _, svc := range srv.Services {
			if prev, ok := owner[svc.Name]; ok {
				return &DuplicateServiceError{Service: svc.Name, First: prev, Second: srv.Name}
			}
			owner[svc.Name] = srv.Name
		}
	}
	return nil
}
