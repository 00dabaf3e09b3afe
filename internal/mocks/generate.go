// Package mocks provides gomock implementations of the repository ports in internal/core.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	repo := mocks.NewMockJobRepository(ctrl)
//	repo.EXPECT().GetByID(gomock.Any(), "Job-ABC123").Return(job, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_repository_mock.go github.com/target/dispatch-api/internal/core JobRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_update_repository_mock.go github.com/target/dispatch-api/internal/core JobUpdateRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=subcontractor_repository_mock.go github.com/target/dispatch-api/internal/core SubcontractorRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_repository_mock.go github.com/target/dispatch-api/internal/core ProfileRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=invitation_repository_mock.go github.com/target/dispatch-api/internal/core InvitationRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/target/dispatch-api/internal/core CacheRepository
