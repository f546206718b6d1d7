package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/db"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/service"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store/memory"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

func newDemoRoster() *service.RosterService {
	return service.NewRosterService(memory.NewUserStore(db.DemoRoster()))
}

func TestUpsert_NewUserIsPrependedAndActive(t *testing.T) {
	ctx := context.Background()
	r := newDemoRoster()

	u, created, err := r.Upsert(ctx, types.ModalityFace,
		types.RegistrationForm{FullName: " A B ", IDNumber: " STU010 ", Role: "Student"}, "2026-10-16")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "1006", u.ID)
	assert.Equal(t, "A B", u.FullName)
	assert.Equal(t, "STU010", u.IDNumber)
	assert.Equal(t, types.StatusActive, u.Status)
	assert.Equal(t, []types.Modality{types.ModalityFace}, u.AuthMethods)
	assert.Equal(t, "2026-10-16", u.RegisteredAt)

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "STU010", all[0].IDNumber)
}

func TestUpsert_ExistingIDOnlyGainsMethod(t *testing.T) {
	ctx := context.Background()
	r := newDemoRoster()

	u, created, err := r.Upsert(ctx, types.ModalityFingerprint,
		types.RegistrationForm{FullName: "Someone Else", IDNumber: "STU001", Role: "Admin"}, "2026-10-16")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "1001", u.ID)
	assert.Equal(t, "John Doe", u.FullName)
	assert.Equal(t, "Lecturer", u.Role)
	assert.Equal(t, "2024-01-15", u.RegisteredAt)
	assert.Equal(t, []types.Modality{types.ModalityFace, types.ModalityRFID, types.ModalityFingerprint}, u.AuthMethods)

	// Same modality again adds nothing.
	u, _, err = r.Upsert(ctx, types.ModalityFace,
		types.RegistrationForm{FullName: "x", IDNumber: "STU001"}, "2026-10-16")
	require.NoError(t, err)
	assert.Len(t, u.AuthMethods, 3)

	all, _ := r.List(ctx)
	assert.Len(t, all, 5)
}

func TestUpsert_MissingFields(t *testing.T) {
	r := newDemoRoster()
	_, _, err := r.Upsert(context.Background(), types.ModalityFace,
		types.RegistrationForm{FullName: "   ", IDNumber: "STU010"}, "2026-10-16")
	assert.ErrorIs(t, err, service.ErrMissingFields)
}

func TestFilter(t *testing.T) {
	ctx := context.Background()
	r := newDemoRoster()

	all, err := r.Filter(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	got, err := r.Filter(ctx, "fac")
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, u := range got {
		ids = append(ids, u.IDNumber)
	}
	assert.ElementsMatch(t, []string{"FAC001", "FAC002"}, ids)

	got, _ = r.Filter(ctx, "LECTURER")
	assert.Len(t, got, 2)

	got, _ = r.Filter(ctx, "jane")
	require.Len(t, got, 1)
	assert.Equal(t, "1002", got[0].ID)

	got, _ = r.Filter(ctx, "nobody")
	assert.Empty(t, got)
}

func TestFilterUsers_OrderedSubset(t *testing.T) {
	users := db.DemoRoster()
	got := service.FilterUsers(users, "s")
	require.NotEmpty(t, got)

	j := 0
	for _, u := range got {
		for j < len(users) && users[j].ID != u.ID {
			j++
		}
		require.Less(t, j, len(users), "user %s out of order", u.ID)
		j++
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	r := newDemoRoster()

	require.NoError(t, r.Delete(ctx, "1003"))
	all, _ := r.List(ctx)
	assert.Len(t, all, 4)
	for _, u := range all {
		assert.NotEqual(t, "1003", u.ID)
	}

	assert.ErrorIs(t, r.Delete(ctx, "1003"), store.ErrUserNotFound)
}

func TestDelete_IDsAreNotReissued(t *testing.T) {
	ctx := context.Background()
	r := newDemoRoster()

	require.NoError(t, r.Delete(ctx, "1002"))
	a, _, err := r.Upsert(ctx, types.ModalityRFID, types.RegistrationForm{FullName: "a", IDNumber: "N1"}, "2026-10-16")
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, a.ID))
	b, _, err := r.Upsert(ctx, types.ModalityRFID, types.RegistrationForm{FullName: "b", IDNumber: "N2"}, "2026-10-16")
	require.NoError(t, err)

	assert.Equal(t, "1006", a.ID)
	assert.Equal(t, "1007", b.ID)
}

func TestEditSession_SaveReplacesRecord(t *testing.T) {
	ctx := context.Background()
	r := newDemoRoster()

	sess, err := r.BeginEdit(ctx, "1004")
	require.NoError(t, err)
	require.NoError(t, sess.SetFullName("Emily D."))
	require.NoError(t, sess.SetRole("Staff"))
	require.NoError(t, sess.SetStatus(types.StatusInactive))
	require.NoError(t, sess.ToggleMethod(types.ModalityFace))
	require.NoError(t, sess.ToggleMethod(types.ModalityRFID))

	// Nothing is visible before save.
	before, err := r.Get(ctx, "1004")
	require.NoError(t, err)
	assert.Equal(t, "Emily Davis", before.FullName)

	saved, err := sess.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1004", saved.ID)

	after, err := r.Get(ctx, "1004")
	require.NoError(t, err)
	assert.Equal(t, "Emily D.", after.FullName)
	assert.Equal(t, "Staff", after.Role)
	assert.Equal(t, types.StatusInactive, after.Status)
	assert.Equal(t, []types.Modality{types.ModalityRFID}, after.AuthMethods)

	assert.ErrorIs(t, sess.SetRole("Admin"), service.ErrEditClosed)
	_, err = sess.Save(ctx)
	assert.ErrorIs(t, err, service.ErrEditClosed)
}

func TestEditSession_CancelDiscards(t *testing.T) {
	ctx := context.Background()
	r := newDemoRoster()

	sess, err := r.BeginEdit(ctx, "1001")
	require.NoError(t, err)
	require.NoError(t, sess.SetFullName(""))
	require.NoError(t, sess.Cancel())

	u, err := r.Get(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", u.FullName)

	assert.ErrorIs(t, sess.Cancel(), service.ErrEditClosed)
	_, err = sess.Buffer()
	assert.ErrorIs(t, err, service.ErrEditClosed)
}

func TestEditSession_NoValidationOnSave(t *testing.T) {
	ctx := context.Background()
	r := newDemoRoster()

	sess, err := r.BeginEdit(ctx, "1003")
	require.NoError(t, err)
	require.NoError(t, sess.SetFullName(""))
	require.NoError(t, sess.ToggleMethod(types.ModalityRFID))
	saved, err := sess.Save(ctx)
	require.NoError(t, err)
	assert.Empty(t, saved.FullName)
	assert.Empty(t, saved.AuthMethods)
}

func TestBeginEdit_UnknownID(t *testing.T) {
	_, err := newDemoRoster().BeginEdit(context.Background(), "9999")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestReplace_KeepsIDAndRegisteredAt(t *testing.T) {
	ctx := context.Background()
	r := newDemoRoster()

	saved, err := r.Replace(ctx, types.User{
		ID:          "1002",
		FullName:    "Jane S.",
		IDNumber:    "STU002",
		Role:        "Faculty",
		AuthMethods: []types.Modality{types.ModalityFace},
		Status:      types.StatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-16", saved.RegisteredAt)
	assert.Equal(t, "Faculty", saved.Role)

	_, err = r.Replace(ctx, types.User{ID: "4242"})
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}
