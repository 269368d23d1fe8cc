package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func TestTranslateCtxErr(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline exceeded", context.DeadlineExceeded, ErrTimeout},
		{"wrapped deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), ErrTimeout},
		{"bad connection", driver.ErrBadConn, ErrUnavailable},
		{"wrapped bad connection", fmt.Errorf("exec: %w", driver.ErrBadConn), ErrUnavailable},
		{"pq connection failure", &pq.Error{Code: "08006"}, ErrUnavailable},
		{"pq connection does not exist", &pq.Error{Code: "08003"}, ErrUnavailable},
		{"network error", dialErr, ErrUnavailable},
		{"wrapped network error", fmt.Errorf("scan: %w", dialErr), ErrUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := translateCtxErr(tc.err)
			if !errors.Is(got, tc.want) {
				t.Errorf("translateCtxErr = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTranslateCtxErr_Passthrough(t *testing.T) {
	if got := translateCtxErr(nil); got != nil {
		t.Errorf("nil in, %v out", got)
	}
	if got := translateCtxErr(context.Canceled); !errors.Is(got, context.Canceled) {
		t.Errorf("canceled should pass through, got %v", got)
	}
	plain := errors.New("boom")
	if got := translateCtxErr(plain); !errors.Is(got, plain) {
		t.Errorf("plain error should pass through, got %v", got)
	}
	// A constraint violation is not a transport failure.
	constraint := &pq.Error{Code: "23505"}
	if got := translateCtxErr(constraint); errors.Is(got, ErrUnavailable) {
		t.Errorf("constraint violation classified as unavailable: %v", got)
	}
}

func TestRegistrationService_StorageFailures(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
		want    error
	}{
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, ErrUnavailable},
		{"pq connection dropped", &pq.Error{Code: "08006"}, ErrUnavailable},
		{"deadline exceeded", fmt.Errorf("query: %w", context.DeadlineExceeded), ErrTimeout},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newRegistrationTestEnv(t)
			tournament := env.seedTournament(t, uuid.New(), nil)
			env.repo.failWith = tc.repoErr

			_, err := env.svc.Get(context.Background(), nil, tournament.ID, uuid.New())
			if !errors.Is(err, tc.want) {
				t.Errorf("Get with failing storage = %v, want %v", err, tc.want)
			}

			_, err = env.svc.Create(context.Background(), nil, tournament.ID, validRegistrationInput("grimgor"))
			if !errors.Is(err, tc.want) {
				t.Errorf("Create with failing storage = %v, want %v", err, tc.want)
			}
		})
	}
}
