// Package service exposes the expense, department, production, notification and
// report use cases to drivers. Transitions are delegated to the workflow engines.
package service

import (
	"github.com/google/uuid"

	"github.com/garyjia/cineexpense/internal/domain/apperror"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func loggerOrNop(logger Logger) Logger {
	if logger == nil {
		return nopLogger{}
	}
	return logger
}

// lookupID rejects malformed ids as missing resources
func lookupID(resource, id string) error {
	if err := utils.ValidateID(id); err != nil {
		return apperror.NotFound("%s %s not found", resource, id)
	}
	return nil
}

func requireRole(actor entity.Actor, role entity.Role, action string) error {
	if !actor.Is(role) {
		return apperror.Forbidden("%s requires role %s", action, role)
	}
	return nil
}

func invalid(err error) error {
	return apperror.BadRequest("%s", err.Error())
}

func newID() string {
	return uuid.NewString()
}
