package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/db"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/service"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store/memory"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

type regFixture struct {
	roster *service.RosterService
	creds  *memory.CredentialStore
	reg    *service.RegistrationService
}

func newRegFixture(delay time.Duration) regFixture {
	roster := service.NewRosterService(memory.NewUserStore(db.DemoRoster()))
	creds := memory.NewCredentialStore()
	reg := service.NewRegistrationService(roster, newRFID(creds, 0x1234ABCD), delay, nil)
	return regFixture{roster: roster, creds: creds, reg: reg}
}

func TestRegister_FaceThenRFIDMergesOneEntry(t *testing.T) {
	ctx := context.Background()
	f := newRegFixture(0)
	form := types.RegistrationForm{FullName: "A B", IDNumber: "STU010", Role: "Student"}

	res, err := f.reg.Register(ctx, types.ModalityFace, form)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Empty(t, res.RFIDUID)

	res, err = f.reg.Register(ctx, types.ModalityRFID, form)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "1234ABCD", res.RFIDUID)

	all, err := f.roster.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "STU010", all[0].IDNumber)
	assert.Equal(t, []types.Modality{types.ModalityFace, types.ModalityRFID}, all[0].AuthMethods)

	_, found, err := f.creds.GetCredential(ctx, "1234ABCD")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSubmit_MissingFieldsTouchesNothing(t *testing.T) {
	f := newRegFixture(0)
	_, err := f.reg.Submit(context.Background(), types.ModalityFace, types.RegistrationForm{FullName: "A", IDNumber: "  "})
	assert.ErrorIs(t, err, service.ErrMissingFields)
	assert.Equal(t, "Please fill in all fields", err.Error())
	assert.Empty(t, f.reg.InFlight())

	all, _ := f.roster.List(context.Background())
	assert.Len(t, all, 5)
}

func TestSubmit_InvalidModality(t *testing.T) {
	f := newRegFixture(0)
	_, err := f.reg.Submit(context.Background(), types.Modality("iris"), types.RegistrationForm{FullName: "A", IDNumber: "B"})
	assert.Error(t, err)
}

func TestSubmit_SingleScanInFlight(t *testing.T) {
	ctx := context.Background()
	f := newRegFixture(100 * time.Millisecond)

	p, err := f.reg.Submit(ctx, types.ModalityFingerprint, types.RegistrationForm{FullName: "A", IDNumber: "X1"})
	require.NoError(t, err)
	assert.Equal(t, types.ModalityFingerprint, f.reg.InFlight())

	_, err = f.reg.Submit(ctx, types.ModalityFace, types.RegistrationForm{FullName: "B", IDNumber: "X2"})
	assert.ErrorIs(t, err, service.ErrRegistrationInProgress)

	// Roster is untouched until the delay elapses.
	all, _ := f.roster.List(ctx)
	assert.Len(t, all, 5)

	_, err = p.Wait(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.reg.InFlight())

	_, err = f.reg.Register(ctx, types.ModalityFace, types.RegistrationForm{FullName: "B", IDNumber: "X2"})
	require.NoError(t, err)
}

func TestSubmit_ScanSurvivesCallerCancel(t *testing.T) {
	f := newRegFixture(50 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	p, err := f.reg.Submit(ctx, types.ModalityFace, types.RegistrationForm{FullName: "A", IDNumber: "X9"})
	require.NoError(t, err)
	cancel()

	_, err = p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not settle")
	}
	res, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Created)

	u, found, err := memoryLookup(f, "X9")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, res.User.ID, u.ID)
}

func TestRegister_RFIDStoreFailureLeavesRosterUnchanged(t *testing.T) {
	ctx := context.Background()
	roster := service.NewRosterService(memory.NewUserStore(db.DemoRoster()))
	rfid := service.NewRFIDService(failingCredentials{memory.NewCredentialStore()}, nil)
	reg := service.NewRegistrationService(roster, rfid, 0, nil)

	_, err := reg.Register(ctx, types.ModalityRFID, types.RegistrationForm{FullName: "A", IDNumber: "X1"})
	assert.ErrorIs(t, err, service.ErrStore)
	assert.Empty(t, reg.InFlight())

	all, _ := roster.List(ctx)
	assert.Len(t, all, 5)
}

func memoryLookup(f regFixture, idNumber string) (types.User, bool, error) {
	all, err := f.roster.Filter(context.Background(), idNumber)
	if err != nil || len(all) == 0 {
		return types.User{}, false, err
	}
	return all[0], true, nil
}

func TestRegistration_DrainWaitsForAcceptedScan(t *testing.T) {
	ctx := context.Background()
	roster := service.NewRosterService(memory.NewUserStore(nil))
	reg := service.NewRegistrationService(roster, newRFID(memory.NewCredentialStore(), 0xC0FFEE01), 100*time.Millisecond, nil)

	require.NoError(t, reg.Drain(ctx))

	reqCtx, cancel := context.WithCancel(ctx)
	_, err := reg.Submit(reqCtx, types.ModalityRFID, types.RegistrationForm{FullName: "A B", IDNumber: "STU010"})
	require.NoError(t, err)
	cancel()

	short, stop := context.WithTimeout(ctx, time.Millisecond)
	defer stop()
	assert.ErrorIs(t, reg.Drain(short), context.DeadlineExceeded)

	require.NoError(t, reg.Drain(ctx))
	assert.Empty(t, reg.InFlight())
	users, err := roster.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, []types.Modality{types.ModalityRFID}, users[0].AuthMethods)
}
