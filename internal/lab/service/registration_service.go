package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

var ErrRegistrationInProgress = errors.New("a registration scan is already in progress")

const DefaultScanDelay = 3 * time.Second

// RegistrationService runs simulated biometric/card scans.  Only one scan
// may be in flight at a time across every modality.
type RegistrationService struct {
	roster *RosterService
	rfid   *RFIDService
	delay  time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	inFlight types.Modality
	scans    sync.WaitGroup
}

func NewRegistrationService(roster *RosterService, rfid *RFIDService, delay time.Duration, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if delay < 0 {
		delay = 0
	}
	return &RegistrationService{roster: roster, rfid: rfid, delay: delay, logger: logger}
}

// InFlight reports the modality being scanned, or "" when idle.
func (s *RegistrationService) InFlight() types.Modality {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// PendingScan settles once the simulated scan and the roster merge are done.
type PendingScan struct {
	Modality types.Modality

	done chan struct{}
	res  types.RegistrationResult
	err  error
}

func (p *PendingScan) Done() <-chan struct{} { return p.done }

// Wait blocks until the scan settles or ctx ends.  Giving up on the wait
// does not stop the scan.
func (p *PendingScan) Wait(ctx context.Context) (types.RegistrationResult, error) {
	select {
	case <-ctx.Done():
		return types.RegistrationResult{}, ctx.Err()
	case <-p.done:
		return p.res, p.err
	}
}

// Submit validates the form, claims the in-flight slot and starts the scan.
// The scan detaches from ctx cancellation once accepted.
func (s *RegistrationService) Submit(ctx context.Context, m types.Modality, form types.RegistrationForm) (*PendingScan, error) {
	if _, err := types.ParseModality(string(m)); err != nil {
		return nil, err
	}
	form = form.Normalize()
	if form.FullName == "" || form.IDNumber == "" {
		return nil, ErrMissingFields
	}

	s.mu.Lock()
	if s.inFlight != "" {
		busy := s.inFlight
		s.mu.Unlock()
		s.logger.Debug("registration rejected, scan in flight",
			zap.String("modality", string(m)), zap.String("in_flight", string(busy)))
		return nil, ErrRegistrationInProgress
	}
	s.inFlight = m
	s.scans.Add(1)
	s.mu.Unlock()

	p := &PendingScan{Modality: m, done: make(chan struct{})}
	go s.scan(context.WithoutCancel(ctx), p, form)
	return p, nil
}

// Register is Submit followed by Wait.
func (s *RegistrationService) Register(ctx context.Context, m types.Modality, form types.RegistrationForm) (types.RegistrationResult, error) {
	p, err := s.Submit(ctx, m, form)
	if err != nil {
		return types.RegistrationResult{}, err
	}
	return p.Wait(ctx)
}

// Drain waits for an accepted scan to write its credential and roster entry.
// Call it after the listeners stop and before closing the stores; ctx bounds
// the wait.
func (s *RegistrationService) Drain(ctx context.Context) error {
	idle := make(chan struct{})
	go func() {
		s.scans.Wait()
		close(idle)
	}()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain %s scan: %w", s.InFlight(), ctx.Err())
	}
}

func (s *RegistrationService) scan(ctx context.Context, p *PendingScan, form types.RegistrationForm) {
	defer s.scans.Done()
	defer close(p.done)
	defer s.release()

	log := s.logger.With(zap.String("modality", string(p.Modality)), zap.String("id_number", form.IDNumber))
	log.Info("scan started", zap.Duration("delay", s.delay))

	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		<-t.C
	}

	res := types.RegistrationResult{Modality: p.Modality}

	if p.Modality == types.ModalityRFID {
		uid, err := s.rfid.RegisterCredential(ctx, types.RFIDIdentity{
			FullName: form.FullName,
			IDNumber: form.IDNumber,
			Role:     form.Role,
			Status:   types.StatusActive,
		})
		if err != nil {
			log.Warn("scan failed, roster unchanged", zap.Error(err))
			p.err = err
			return
		}
		res.RFIDUID = uid
	}

	u, created, err := s.roster.Upsert(ctx, p.Modality, form, s.rfid.Today())
	if err != nil {
		log.Error("roster merge failed", zap.Error(err))
		p.err = fmt.Errorf("roster merge: %w", err)
		return
	}
	res.User = u
	res.Created = created
	p.res = res

	log.Info("scan completed", zap.String("user_id", u.ID), zap.Bool("created", created))
}

func (s *RegistrationService) release() {
	s.mu.Lock()
	s.inFlight = ""
	s.mu.Unlock()
}
