package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/repository"
	"github.com/jmehdipour/officer-portal/internal/util"
	"github.com/jmoiron/sqlx"
)

var ErrInvalidInput = errors.New("invalid input")

// Service delivers notifications to an officer, or to the admin console
// when the recipient is nil.
type Service struct {
	repo repository.NotificationsRepository
	now  func() time.Time
}

func New(repo repository.NotificationsRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

type Message struct {
	OfficerID *string
	Type      model.NotificationType
	Title     string
	Message   string
	Link      *string
}

// Inbox is one recipient's notifications, newest first.
type Inbox struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int64                `json:"unread_count"`
}

// Add stores m, inside tx when one is given.
func (s *Service) Add(ctx context.Context, tx *sqlx.Tx, m Message) (*model.Notification, error) {
	if m.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if m.Type == "" {
		m.Type = model.NotifyInfo
	}

	n := model.Notification{
		ID:        util.NewID(),
		OfficerID: m.OfficerID,
		Type:      m.Type,
		Title:     m.Title,
		Message:   m.Message,
		Link:      m.Link,
		CreatedAt: s.now(),
	}
	if err := s.repo.Insert(ctx, tx, n); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &n, nil
}

func (s *Service) List(ctx context.Context, officerID *string, limit int) (*Inbox, error) {
	rows, err := s.repo.List(ctx, officerID, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, officerID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.Notification{}
	}
	return &Inbox{Notifications: rows, Unread: unread}, nil
}

// MarkRead only touches a notification addressed to officerID.
func (s *Service) MarkRead(ctx context.Context, officerID *string, id string) error {
	return s.repo.MarkRead(ctx, officerID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, officerID *string) (int64, error) {
	return s.repo.MarkAllRead(ctx, officerID)
}

func (s *Service) Clear(ctx context.Context, officerID *string) (int64, error) {
	return s.repo.Clear(ctx, officerID)
}
