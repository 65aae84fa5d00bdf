package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// InitDB opens the connection pool and verifies it with a ping.
func InitDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connected")
	return db, nil
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Info("Database migrated")
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'buyer',
	wishlist TEXT[] NOT NULL DEFAULT '{}',
	purchased_fonts TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS fonts (
	id TEXT PRIMARY KEY,
	seller_id TEXT NOT NULL,
	seller_name TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	price NUMERIC(12,2) NOT NULL DEFAULT 0,
	is_free BOOLEAN NOT NULL DEFAULT FALSE,
	promo_kind TEXT,
	promo_price NUMERIC(12,2),
	promo_ends_at TIMESTAMPTZ,
	tags TEXT[] NOT NULL DEFAULT '{}',
	languages TEXT[] NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'pending',
	sponsored BOOLEAN NOT NULL DEFAULT FALSE,
	sponsor_end_date TIMESTAMPTZ,
	rating DOUBLE PRECISION NOT NULL DEFAULT 0,
	downloads INT NOT NULL DEFAULT 0,
	files JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS fonts_status_created_idx ON fonts (status, created_at DESC);
CREATE INDEX IF NOT EXISTS fonts_seller_idx ON fonts (seller_id);

CREATE TABLE IF NOT EXISTS cart_items (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	font_id TEXT NOT NULL,
	quantity INT NOT NULL DEFAULT 1,
	added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (user_id, font_id)
);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	participant_a TEXT NOT NULL,
	participant_b TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (participant_a, participant_b),
	CHECK (participant_a < participant_b)
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	sender_id TEXT NOT NULL,
	receiver_id TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	message_type TEXT NOT NULL DEFAULT 'text',
	pr_font_id TEXT,
	pr_order_id TEXT,
	pr_amount NUMERIC(12,2),
	pr_status TEXT,
	read_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS chat_messages_conversation_idx ON chat_messages (conversation_id, created_at);
CREATE INDEX IF NOT EXISTS chat_messages_order_idx ON chat_messages (pr_order_id);

CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	buyer_id TEXT NOT NULL,
	seller_id TEXT NOT NULL,
	font_id TEXT NOT NULL,
	amount NUMERIC(12,2) NOT NULL DEFAULT 0,
	payment_method TEXT NOT NULL DEFAULT 'chat',
	payment_status TEXT NOT NULL DEFAULT 'pending',
	license_generated BOOLEAN NOT NULL DEFAULT FALSE,
	license_text TEXT NOT NULL DEFAULT '',
	download_url TEXT NOT NULL DEFAULT '',
	download_expiry TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS orders_buyer_idx ON orders (buyer_id, created_at DESC);
CREATE INDEX IF NOT EXISTS orders_seller_idx ON orders (seller_id, created_at DESC);

CREATE TABLE IF NOT EXISTS download_history (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL REFERENCES orders(id),
	user_id TEXT NOT NULL,
	font_id TEXT NOT NULL,
	remote_addr TEXT NOT NULL DEFAULT '',
	downloaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS notifications (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	font_id TEXT,
	read BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS sponsorships (
	id TEXT PRIMARY KEY,
	font_id TEXT NOT NULL,
	seller_id TEXT NOT NULL,
	amount NUMERIC(12,2) NOT NULL,
	duration_days INT NOT NULL,
	start_date TIMESTAMPTZ NOT NULL,
	end_date TIMESTAMPTZ NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS trial_keys (
	id TEXT PRIMARY KEY,
	font_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	key TEXT NOT NULL UNIQUE,
	expires_at TIMESTAMPTZ NOT NULL,
	usage_count INT NOT NULL DEFAULT 0,
	max_usage INT NOT NULL DEFAULT 100,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (font_id, user_id)
);

CREATE TABLE IF NOT EXISTS idempotency_keys (
	user_id TEXT NOT NULL,
	scope TEXT NOT NULL,
	key TEXT NOT NULL,
	response JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, scope, key)
);

CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	stream_id TEXT NOT NULL,
	stream_type TEXT NOT NULL,
	version INT NOT NULL,
	event_type TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (stream_id, version)
);
`
