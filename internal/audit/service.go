package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/teamroster/internal/models"
)

const (
	ActionInvitationCreated  = "invitation.created"
	ActionInvitationAccepted = "invitation.accepted"
	ActionInvitationDeclined = "invitation.declined"
	ActionRoleChanged        = "member.role_changed"
	ActionMemberRemoved      = "member.removed"
	ActionCompanyCreated     = "company.created"
)

// memoryLimit caps the entries kept when running without a database.
const memoryLimit = 1000

// Service appends to audit_logs. Without a database it writes to the log and
// keeps the most recent entries in memory.
type Service struct {
	db *pgxpool.Pool

	mu     sync.Mutex
	recent []models.AuditLog
	now    func() time.Time
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db, now: time.Now}
}

type LogEntry struct {
	TenantID     uuid.UUID
	ActorID      *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	Details      map[string]interface{}
}

func (s *Service) Log(ctx context.Context, entry LogEntry) error {
	if s.db == nil {
		slog.Info("audit", "tenant_id", entry.TenantID, "action", entry.Action, "resource_id", entry.ResourceID, "details", entry.Details)
		s.remember(entry)
		return nil
	}

	details, _ := json.Marshal(entry.Details)

	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_logs (tenant_id, actor_id, action, resource_type, resource_id, details)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.TenantID, entry.ActorID, entry.Action, entry.ResourceType, entry.ResourceID, details,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

type AuditQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	Action    string
	Limit     int
	Offset    int
}

func (s *Service) GetAuditLogs(ctx context.Context, tenantID uuid.UUID, q AuditQuery) ([]models.AuditLog, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if s.db == nil {
		return s.query(tenantID, q), nil
	}

	query := `SELECT id, tenant_id, actor_id, action, resource_type, resource_id, details, created_at
			  FROM audit_logs WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	argIdx := 2

	if q.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, q.Action)
		argIdx++
	}
	if q.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *q.StartDate)
		argIdx++
	}
	if q.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *q.EndDate)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.TenantID, &l.ActorID, &l.Action, &l.ResourceType, &l.ResourceID, &l.Details, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func (s *Service) remember(entry LogEntry) {
	details, _ := json.Marshal(entry.Details)
	l := models.AuditLog{
		ID:           uuid.New(),
		TenantID:     entry.TenantID,
		ActorID:      entry.ActorID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Details:      details,
		CreatedAt:    s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, l)
	if over := len(s.recent) - memoryLimit; over > 0 {
		s.recent = append([]models.AuditLog(nil), s.recent[over:]...)
	}
}

func (s *Service) query(tenantID uuid.UUID, q AuditQuery) []models.AuditLog {
	s.mu.Lock()
	matched := []models.AuditLog{}
	// Newest first.
	for i := len(s.recent) - 1; i >= 0; i-- {
		l := s.recent[i]
		if l.TenantID != tenantID {
			continue
		}
		if q.Action != "" && l.Action != q.Action {
			continue
		}
		if q.StartDate != nil && l.CreatedAt.Before(*q.StartDate) {
			continue
		}
		if q.EndDate != nil && l.CreatedAt.After(*q.EndDate) {
			continue
		}
		matched = append(matched, l)
	}
	s.mu.Unlock()

	if q.Offset >= len(matched) {
		return []models.AuditLog{}
	}
	matched = matched[q.Offset:]
	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched
}
