// Package devseed loads development fixtures (users, subcontractors and jobs)
// from a YAML document and applies them through the service layer.
package devseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/target/dispatch-api/internal/data"
	"github.com/target/dispatch-api/internal/domain/auth"
	"github.com/target/dispatch-api/internal/domain/dispatch"
	"github.com/target/dispatch-api/internal/domain/model"
	"github.com/target/dispatch-api/internal/service"
)

// File is the on-disk seed document.
type File struct {
	Users          []User          `yaml:"users"`
	Subcontractors []Subcontractor `yaml:"subcontractors"`
	Jobs           []Job           `yaml:"jobs"`
}

// User seeds a dashboard account. Existing emails are left untouched.
type User struct {
	Email       string `yaml:"email"`
	DisplayName string `yaml:"display_name"`
	Role        string `yaml:"role"`
	Password    string `yaml:"password"`
}

// Subcontractor seeds a directory entry, matched on name.
type Subcontractor struct {
	Name   string `yaml:"name"`
	Phone  string `yaml:"phone"`
	Email  string `yaml:"email"`
	Region string `yaml:"region"`
}

// Job seeds a job. Subcontractor refers to a subcontractor by name.
type Job struct {
	CustomerName     string  `yaml:"customer_name"`
	CustomerPhone    string  `yaml:"customer_phone"`
	CustomerAddress  string  `yaml:"customer_address"`
	IssueDescription string  `yaml:"issue_description"`
	Subcontractor    string  `yaml:"subcontractor"`
	Status           string  `yaml:"status"`
	Materials        string  `yaml:"materials"`
	SalePrice        float64 `yaml:"sale_price"`
	PartsCost        float64 `yaml:"parts_cost"`
	Notes            string  `yaml:"notes"`
	Region           string  `yaml:"region"`
}

// Parse decodes a seed document. Unknown keys are rejected so typos surface early.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return &f, f.validate()
}

func (f *File) validate() error {
	names := make(map[string]struct{}, len(f.Subcontractors))
	for _, s := range f.Subcontractors {
		names[strings.ToLower(strings.TrimSpace(s.Name))] = struct{}{}
	}
	var errs []error
	for i, u := range f.Users {
		if u.Role != "" && !model.ProfileRole(u.Role).Valid() {
			errs = append(errs, fmt.Errorf("users[%d]: unknown role %q", i, u.Role))
		}
	}
	for i, j := range f.Jobs {
		if j.Subcontractor == "" {
			continue
		}
		if _, ok := names[strings.ToLower(strings.TrimSpace(j.Subcontractor))]; !ok {
			errs = append(errs, fmt.Errorf("jobs[%d]: subcontractor %q is not declared", i, j.Subcontractor))
		}
	}
	return errors.Join(errs...)
}

// Default returns the built-in fixture set used when no file is given.
func Default() *File {
	return &File{
		Users: []User{
			{Email: "admin@example.com", DisplayName: "Dev Admin", Role: "admin", Password: "dispatch-dev-admin"},
			{Email: "office@example.com", DisplayName: "Office", Role: "user", Password: "dispatch-dev-user"},
		},
		Subcontractors: []Subcontractor{
			{Name: "Ray Plumbing", Phone: "(555) 010-2000", Region: "north"},
			{Name: "Ace Electric", Phone: "(555) 010-3000", Email: "ace@example.com", Region: "south"},
		},
		Jobs: []Job{
			{
				CustomerName:     "Dana Whitfield",
				CustomerPhone:    "(555) 201-0001",
				CustomerAddress:  "14 Elm St",
				IssueDescription: "Leaking kitchen faucet",
				Subcontractor:    "Ray Plumbing",
				SalePrice:        250,
				PartsCost:        40,
				Region:           "north",
			},
			{
				CustomerName:     "Marcus Lee",
				CustomerPhone:    "(555) 201-0002",
				CustomerAddress:  "88 Harbor Rd",
				IssueDescription: "Breaker trips when dryer runs",
				SalePrice:        400,
				Region:           "south",
			},
		},
	}
}

// Services bundles the services used for seeding.
type Services struct {
	Users          *service.UserService
	Subcontractors *service.SubcontractorService
	Jobs           *service.JobService
}

// NewServices builds seeding services on db. No notifier is attached, so
// seeded assignments never reach a real subcontractor.
func NewServices(db *sql.DB, logger *slog.Logger) (Services, error) {
	subs := data.NewSubcontractorRepo(db)
	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repos: service.JobRepositories{
			Jobs:           data.NewJobRepo(db),
			Updates:        data.NewJobUpdateRepo(db),
			Subcontractors: subs,
		},
		Logger: logger,
	})
	if err != nil {
		return Services{}, err
	}
	return Services{
		Users:          service.NewUserService(service.UserServiceOptions{Profiles: data.NewProfileRepo(db), Logger: logger}),
		Subcontractors: service.NewSubcontractorService(service.SubcontractorServiceOptions{Repo: subs, Logger: logger}),
		Jobs:           jobs,
	}, nil
}

// seedActor authors every seeded change.
var seedActor = auth.Actor{ID: "devseed", Email: "devseed@localhost", Role: auth.RoleAdmin}

// Summary counts what a seed run created.
type Summary struct {
	Users          int
	Subcontractors int
	Jobs           int
	Failures       int
}

// Run applies f. Users and subcontractors are idempotent; jobs are appended
// on every run. Individual failures are logged and counted.
func Run(ctx context.Context, svcs Services, f *File, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var sum Summary
	seedUsers(ctx, svcs.Users, f.Users, logger, &sum)

	ids, err := seedSubcontractors(ctx, svcs.Subcontractors, f.Subcontractors, logger, &sum)
	if err != nil {
		return sum, err
	}
	seedJobs(ctx, svcs.Jobs, f.Jobs, ids, logger, &sum)

	if sum.Failures > 0 {
		return sum, fmt.Errorf("%d seed errors; check logs", sum.Failures)
	}
	return sum, nil
}

func seedUsers(ctx context.Context, svc *service.UserService, users []User, logger *slog.Logger, sum *Summary) {
	for _, u := range users {
		role := model.ProfileRole(u.Role)
		if role == "" {
			role = model.ProfileRoleUser
		}
		_, err := svc.Provision(ctx, model.CreateProfileRequest{
			Email:       u.Email,
			DisplayName: u.DisplayName,
			Role:        role,
			Password:    u.Password,
		})
		switch {
		case err == nil:
			sum.Users++
		case errors.Is(err, data.ErrProfileEmailExists):
			logger.DebugContext(ctx, "seed user exists", "email", u.Email)
		default:
			sum.Failures++
			logger.WarnContext(ctx, "seed user failed", "email", u.Email, "error", err)
		}
	}
}

func seedSubcontractors(
	ctx context.Context,
	svc *service.SubcontractorService,
	subs []Subcontractor,
	logger *slog.Logger,
	sum *Summary,
) (map[string]string, error) {
	existing, err := svc.List(ctx, seedActor)
	if err != nil {
		return nil, fmt.Errorf("list subcontractors: %w", err)
	}
	ids := make(map[string]string, len(existing)+len(subs))
	for _, s := range existing {
		ids[nameKey(s.Name)] = s.ID
	}

	for _, s := range subs {
		if _, ok := ids[nameKey(s.Name)]; ok {
			continue
		}
		created, err := svc.Create(ctx, seedActor, &model.CreateSubcontractorRequest{
			Name:   s.Name,
			Phone:  s.Phone,
			Email:  s.Email,
			Region: s.Region,
		})
		if err != nil {
			sum.Failures++
			logger.WarnContext(ctx, "seed subcontractor failed", "name", s.Name, "error", err)
			continue
		}
		ids[nameKey(created.Name)] = created.ID
		sum.Subcontractors++
	}
	return ids, nil
}

func seedJobs(
	ctx context.Context,
	svc *service.JobService,
	jobs []Job,
	subIDs map[string]string,
	logger *slog.Logger,
	sum *Summary,
) {
	for _, j := range jobs {
		req := &model.CreateJobRequest{
			CustomerName:     j.CustomerName,
			CustomerPhone:    j.CustomerPhone,
			CustomerAddress:  j.CustomerAddress,
			IssueDescription: j.IssueDescription,
			Status:           model.JobStatus(j.Status),
			Materials:        j.Materials,
			SalePrice:        j.SalePrice,
			PartsCost:        j.PartsCost,
			Notes:            j.Notes,
			Region:           j.Region,
		}
		if j.Subcontractor != "" {
			id, ok := subIDs[nameKey(j.Subcontractor)]
			if !ok {
				sum.Failures++
				logger.WarnContext(ctx, "seed job references missing subcontractor", "subcontractor", j.Subcontractor)
				continue
			}
			req.SubcontractorID = &id
		}
		if _, err := svc.Create(ctx, seedActor, req, dispatch.PlatformDesktop); err != nil {
			sum.Failures++
			logger.WarnContext(ctx, "seed job failed", "customer", j.CustomerName, "error", err)
			continue
		}
		sum.Jobs++
	}
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
