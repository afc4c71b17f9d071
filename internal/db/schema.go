package db

import (
	"database/sql"
	"strings"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    telegram_id INTEGER UNIQUE NOT NULL,
    nickname TEXT UNIQUE NOT NULL,
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    is_active BOOLEAN NOT NULL DEFAULT FALSE,
    points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_users_leaderboard ON users (is_active, points DESC, id);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    status TEXT NOT NULL DEFAULT 'not_started',
    current_question_index INTEGER NOT NULL DEFAULT 0,
    creator_id INTEGER NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS event_players (
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    user_telegram_id INTEGER NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
    PRIMARY KEY (event_id, user_telegram_id)
);

CREATE TABLE IF NOT EXISTS quizzes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT FALSE,
    event_id INTEGER REFERENCES events(id) ON DELETE CASCADE,
    answer_limit INTEGER CHECK (answer_limit IS NULL OR answer_limit >= 0),
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS questions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    quiz_id INTEGER NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    text TEXT NOT NULL DEFAULT '{}',
    options TEXT NOT NULL DEFAULT '{}',
    correct_answers TEXT NOT NULL DEFAULT '{}',
    points INTEGER NOT NULL DEFAULT 1 CHECK (points >= 1),
    duration_seconds INTEGER,
    images TEXT NOT NULL DEFAULT '[]',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_questions_quiz ON questions (quiz_id);

CREATE TABLE IF NOT EXISTS user_answers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
    quiz_id INTEGER NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
    answers TEXT NOT NULL DEFAULT '[]',
    locale TEXT NOT NULL DEFAULT '',
    points_awarded INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (user_id, question_id)
);

CREATE INDEX IF NOT EXISTS idx_user_answers_quota ON user_answers (quiz_id, user_id);

CREATE TABLE IF NOT EXISTS admin_chats (
    telegram_id INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS admin_notifications (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_tid INTEGER NOT NULL,
    admin_chat_id INTEGER NOT NULL,
    message_id INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_admin_notifications_user ON admin_notifications (user_tid);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const defaultSettings = `
INSERT OR IGNORE INTO settings (key, value) VALUES
    ('approved_message', '🎉 Ваша учётная запись активирована.'),
    ('rejected_message', '❌ Ваша заявка отклонена.'),
    ('start_active_message', 'Ваша учётная запись активна. Удачи в игре!'),
    ('start_pending_message', 'Ваша заявка на рассмотрении у администраторов.'),
    ('start_unknown_message', 'Вы ещё не зарегистрированы. Откройте приложение, чтобы подать заявку.');
`

// Columns added after the first deployments. Errors about existing columns are ignored.
var migrations = []string{
	`ALTER TABLE quizzes ADD COLUMN event_id INTEGER REFERENCES events(id) ON DELETE CASCADE`,
	`ALTER TABLE quizzes ADD COLUMN answer_limit INTEGER`,
	`ALTER TABLE questions ADD COLUMN duration_seconds INTEGER`,
}

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return err
	}

	_, err = db.Exec(defaultSettings)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return err
		}
	}

	return nil
}
