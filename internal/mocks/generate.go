// Package mocks provides mock implementations of the core ports for tests.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the interfaces in internal/core.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	gen := mocks.NewMockCodeGenerator(ctrl)
//	gen.EXPECT().IsAvailable(gomock.Any()).Return(true)
package mocks

// Generate mocks for the LLM adapter, event publisher and rate limiter ports.
// MockCodeGenerator: Name, IsAvailable, GenerateCode
// MockEventPublisher: PublishCodeGenerated
// MockRateLimiter: CheckLimit
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=core_mock.go github.com/target/codegen-api/internal/core CodeGenerator,EventPublisher,RateLimiter

// Generate mock for JobRepository interface from internal/core package.
// This creates MockJobRepository with methods for all JobRepository interface methods:
// AddJob, GetJob, ClaimNext, SetProgress, Complete, Fail, DeleteCompletedBefore, Subscribe
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_repository_mock.go github.com/target/codegen-api/internal/core JobRepository
