package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

var (
	ErrInvalidUID = errors.New("uid is required")

	// ErrStore marks a failure reported by the credential backend.
	ErrStore = errors.New("credential store error")
)

const (
	dateLayout  = "2006-01-02"
	waktuLayout = "02/01/2006 15.04.05" // dd/MM/yyyy HH.mm.ss, id-ID style
)

// RFIDService is the data-access layer over the credential store.  It adds
// no retries or timeouts: callers see backend errors as they happen.
type RFIDService struct {
	store  store.CredentialStore
	logger *zap.Logger
	loc    *time.Location
	now    func() time.Time
	uid    func() uint32
}

type RFIDOption func(*RFIDService)

// WithLocation sets the zone used for waktu_readable and registration dates.
func WithLocation(loc *time.Location) RFIDOption {
	return func(s *RFIDService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) RFIDOption {
	return func(s *RFIDService) { s.now = now }
}

// WithUIDSource replaces the random source behind GenerateUID.
func WithUIDSource(fn func() uint32) RFIDOption {
	return func(s *RFIDService) { s.uid = fn }
}

func NewRFIDService(cs store.CredentialStore, logger *zap.Logger, opts ...RFIDOption) *RFIDService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RFIDService{
		store:  cs,
		logger: logger,
		loc:    time.Local,
		now:    time.Now,
		uid:    rand.Uint32,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GenerateUID returns 8 uppercase hex characters.  Not unique, not secure.
func (s *RFIDService) GenerateUID() string {
	return fmt.Sprintf("%08X", s.uid())
}

// Today is the current date in the service location.
func (s *RFIDService) Today() string {
	return s.now().In(s.loc).Format(dateLayout)
}

// FormatWaktu renders t the way the access log stores it.
func (s *RFIDService) FormatWaktu(t time.Time) string {
	return t.In(s.loc).Format(waktuLayout)
}

// RegisterCredential writes a fresh credential under a new UID and returns
// that UID.  A UID collision overwrites silently.
func (s *RFIDService) RegisterCredential(ctx context.Context, id types.RFIDIdentity) (string, error) {
	if id.Status == "" {
		id.Status = types.StatusActive
	}
	c := types.RFIDCredential{
		FullName:     id.FullName,
		IDNumber:     id.IDNumber,
		Role:         id.Role,
		UID:          s.GenerateUID(),
		RegisteredAt: s.Today(),
		Status:       id.Status,
	}
	if err := s.store.PutCredential(ctx, c); err != nil {
		s.logger.Error("register rfid credential failed",
			zap.String("path", store.CredentialsPath+"/"+c.UID),
			zap.String("id_number", c.IDNumber),
			zap.Error(err))
		return "", fmt.Errorf("%w: put credential %s: %w", ErrStore, c.UID, err)
	}
	s.logger.Info("rfid credential registered",
		zap.String("uid", c.UID), zap.String("id_number", c.IDNumber))
	return c.UID, nil
}

// RecordTap appends an access log entry keyed by the current unix second.
// Identity fields are copied from the credential when the UID is known.
func (s *RFIDService) RecordTap(ctx context.Context, uid string) (types.AccessLogEntry, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return types.AccessLogEntry{}, ErrInvalidUID
	}

	now := s.now()
	e := types.AccessLogEntry{
		Timestamp:     now.Unix(),
		UID:           uid,
		WaktuReadable: s.FormatWaktu(now),
	}

	c, found, err := s.store.GetCredential(ctx, uid)
	if err != nil {
		s.logger.Error("rfid credential lookup failed", zap.String("uid", uid), zap.Error(err))
		return types.AccessLogEntry{}, fmt.Errorf("%w: get credential %s: %w", ErrStore, uid, err)
	}
	if found {
		e.FullName = c.FullName
		e.Role = c.Role
		e.IDNumber = c.IDNumber
	}

	if err := s.store.PutAccessLog(ctx, e); err != nil {
		s.logger.Error("record rfid tap failed",
			zap.String("path", fmt.Sprintf("%s/%d", store.AccessLogPath, e.Timestamp)),
			zap.String("uid", uid),
			zap.Error(err))
		return types.AccessLogEntry{}, fmt.Errorf("%w: put access log %d: %w", ErrStore, e.Timestamp, err)
	}
	s.logger.Debug("rfid tap recorded",
		zap.String("uid", uid), zap.Int64("timestamp", e.Timestamp), zap.Bool("known", found))
	return e, nil
}

func (s *RFIDService) ListCredentials(ctx context.Context) ([]types.RFIDCredential, error) {
	out, err := s.store.ListCredentials(ctx)
	if err != nil {
		s.logger.Error("list rfid credentials failed", zap.Error(err))
		return nil, fmt.Errorf("%w: list credentials: %w", ErrStore, err)
	}
	return out, nil
}

func (s *RFIDService) ListAccessLogs(ctx context.Context) ([]types.AccessLogEntry, error) {
	out, err := s.store.ListAccessLogs(ctx)
	if err != nil {
		s.logger.Error("list rfid access log failed", zap.Error(err))
		return nil, fmt.Errorf("%w: list access log: %w", ErrStore, err)
	}
	return out, nil
}

// Ping does a single credential read to check the backend answers.
func (s *RFIDService) Ping(ctx context.Context) error {
	_, _, err := s.store.GetCredential(ctx, "00000000")
	return err
}
