package service_test

import (
	"context"
	"errors"
	"time"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/service"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store/memory"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

var fixedNow = time.Date(2026, 10, 16, 9, 5, 7, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newRFID(cs *memory.CredentialStore, uid uint32) *service.RFIDService {
	return service.NewRFIDService(cs, nil,
		service.WithLocation(time.UTC),
		service.WithClock(fixedClock),
		service.WithUIDSource(func() uint32 { return uid }),
	)
}

// failingCredentials fails every write.
type failingCredentials struct {
	*memory.CredentialStore
}

var errBackendDown = errors.New("backend down")

func (failingCredentials) PutCredential(context.Context, types.RFIDCredential) error {
	return errBackendDown
}

func (failingCredentials) PutAccessLog(context.Context, types.AccessLogEntry) error {
	return errBackendDown
}

func (failingCredentials) ListCredentials(context.Context) ([]types.RFIDCredential, error) {
	return nil, errBackendDown
}
