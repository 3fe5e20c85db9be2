package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/khidmaty/khidmaty/internal/model"
)

// reportChunkSize bounds one outbound message; transports reject larger
// payloads.
const reportChunkSize = 3500

// AdminLister is the provider data access needed by the operator report.
type AdminLister interface {
	ListAll(ctx context.Context) ([]model.Provider, error)
	CountActiveSubscribers(ctx context.Context, now time.Time) (int64, error)
}

// AdminService produces the operator-only provider report.
type AdminService struct {
	providers AdminLister
	operator  int64 // configured operator actor id; 0 disables the report
	now       func() time.Time
}

// NewAdminService creates an AdminService restricted to the given operator
// actor id.
func NewAdminService(providers AdminLister, operator int64) *AdminService {
	return &AdminService{providers: providers, operator: operator, now: time.Now}
}

// NewAdminServiceWithClock creates an AdminService with a custom clock.
// Primarily used for testing.
func NewAdminServiceWithClock(providers AdminLister, operator int64, now func() time.Time) *AdminService {
	return &AdminService{providers: providers, operator: operator, now: now}
}

// Report dumps every provider with tier and expiry plus the active
// subscriber count, chunked to fit message-size bounds. Only the configured
// operator may call it.
func (s *AdminService) Report(ctx context.Context, callerID int64) ([]string, error) {
	if s.operator == 0 || callerID != s.operator {
		return nil, ErrNotAuthorized
	}

	providers, err := s.providers.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	active, err := s.providers.CountActiveSubscribers(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("count subscribers: %w", err)
	}

	lines := []string{
		fmt.Sprintf("Providers: %d | Active subscribers: %d", len(providers), active),
	}
	for _, p := range providers {
		expiry := "-"
		if p.ExpiresAt != nil {
			expiry = p.ExpiresAt.UTC().Format(time.RFC3339)
		}
		lines = append(lines, fmt.Sprintf("%s | %s | %s | tier:%s | exp:%s",
			orDash(p.Name), orDash(p.Phone), orDash(p.Category), p.Level, expiry))
	}
	return chunkLines(lines, reportChunkSize), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// chunkLines joins lines into newline-separated chunks of at most limit
// bytes, never splitting a line.
func chunkLines(lines []string, limit int) []string {
	var chunks []string
	var b strings.Builder
	for _, line := range lines {
		if b.Len() > 0 && b.Len()+len(line)+1 > limit {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
