package db

import (
	"database/sql"

	"github.com/ad/go-telegram-quiz/internal/models"
)

// AdminNotificationRepository tracks moderation messages sent to admin chats
// so that every copy can be updated once one admin decides.
type AdminNotificationRepository struct {
	queue *DBQueue
}

func NewAdminNotificationRepository(queue *DBQueue) *AdminNotificationRepository {
	return &AdminNotificationRepository{queue: queue}
}

func (r *AdminNotificationRepository) Save(n *models.AdminNotification) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		status := n.Status
		if status == "" {
			status = models.ModerationPending
		}
		res, err := db.Exec(`
			INSERT INTO admin_notifications (user_tid, admin_chat_id, message_id, status)
			VALUES (?, ?, ?, ?)
		`, n.UserTID, n.AdminChatID, n.MessageID, status)
		if err != nil {
			return nil, err
		}
		n.ID, err = res.LastInsertId()
		n.Status = status
		return nil, err
	})
	return err
}

func (r *AdminNotificationRepository) GetPendingByUser(userTID int64) ([]*models.AdminNotification, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		rows, err := db.Query(`
			SELECT id, user_tid, admin_chat_id, message_id, status
			FROM admin_notifications WHERE user_tid = ? AND status = ? ORDER BY id
		`, userTID, models.ModerationPending)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		list := []*models.AdminNotification{}
		for rows.Next() {
			var n models.AdminNotification
			var status string
			if err := rows.Scan(&n.ID, &n.UserTID, &n.AdminChatID, &n.MessageID, &status); err != nil {
				return nil, err
			}
			n.Status = models.ModerationStatus(status)
			list = append(list, &n)
		}
		return list, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.AdminNotification), nil
}

// Resolve marks all pending notifications of the applicant with the decision.
func (r *AdminNotificationRepository) Resolve(userTID int64, status models.ModerationStatus) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		_, err := db.Exec(`
			UPDATE admin_notifications SET status = ? WHERE user_tid = ? AND status = ?
		`, status, userTID, models.ModerationPending)
		return nil, err
	})
	return err
}
