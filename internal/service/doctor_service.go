package service

import (
	"context"
	"time"

	"github.com/satishbabariya/kmigrator/internal/adapters/database"
	"github.com/satishbabariya/kmigrator/internal/adapters/process"
	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/version"
)

// CommandRunner runs an external command.
type CommandRunner interface {
	Run(ctx context.Context, cmd process.Command) (*process.Result, error)
}

// Check is one doctor finding.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// DoctorService checks the toolchain and the database connection.
type DoctorService struct {
	runner    CommandRunner
	capture   domain.Capture
	nodeBin   string
	pythonBin string
	ping      func(ctx context.Context, conn *domain.Connection, timeout time.Duration) error
	timeout   time.Duration
}

// NewDoctorService creates a new doctor service.
func NewDoctorService(runner CommandRunner, capture domain.Capture, nodeBin, pythonBin string) *DoctorService {
	return &DoctorService{
		runner:    runner,
		capture:   capture,
		nodeBin:   nodeBin,
		pythonBin: pythonBin,
		ping:      database.Ping,
		timeout:   5 * time.Second,
	}
}

// Diagnose runs every check. Failed checks are reported, not returned as
// errors; the error is reserved for a cancelled context.
func (s *DoctorService) Diagnose(ctx context.Context, entryPath string) ([]Check, error) {
	checks := []Check{
		s.toolCheck(ctx, "node", s.nodeBin, []string{"--version"}, version.NodeConstraint),
		s.toolCheck(ctx, "python", s.pythonBin, []string{"--version"}, version.PythonConstraint),
		s.toolCheck(ctx, "django", s.pythonBin, []string{"-c", "import django; print(django.get_version())"}, version.DjangoConstraint),
		s.databaseCheck(ctx, entryPath),
	}
	return checks, ctx.Err()
}

func (s *DoctorService) toolCheck(ctx context.Context, name, bin string, args []string, constraint string) Check {
	res, err := s.runner.Run(ctx, process.Command{Tool: "doctor", Name: bin, Args: args})
	if err != nil {
		return Check{Name: name, Detail: err.Error()}
	}
	found, err := version.CheckRequirement(name, string(res.Output), constraint)
	if err != nil {
		return Check{Name: name, Detail: err.Error()}
	}
	return Check{Name: name, OK: true, Detail: found}
}

func (s *DoctorService) databaseCheck(ctx context.Context, entryPath string) Check {
	snap, err := s.capture.Capture(ctx, entryPath)
	if err != nil {
		return Check{Name: "database", Detail: err.Error()}
	}
	conn, err := database.ParseConnection(snap.Connection)
	if err != nil {
		return Check{Name: "database", Detail: err.Error()}
	}
	if err := s.ping(ctx, conn, s.timeout); err != nil {
		return Check{Name: "database", Detail: err.Error()}
	}
	detail := conn.Client + " " + conn.Database
	if conn.Filename != "" {
		detail = conn.Client + " " + conn.Filename
	}
	return Check{Name: "database", OK: true, Detail: detail}
}
