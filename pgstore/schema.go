package pgstore

import "context"

// Schema creates the tables the store relies on. It can be applied several times.
const Schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS users (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	name text NOT NULL UNIQUE,
	email text NOT NULL DEFAULT '',
	avatar_url text NOT NULL DEFAULT '',
	password_hash text,
	settings jsonb NOT NULL DEFAULT '{}',
	created_at timestamptz NOT NULL DEFAULT now(),
	last_login_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS polls (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	title text NOT NULL,
	description text NOT NULL DEFAULT '',
	poll_type text NOT NULL CHECK (poll_type IN ('versus', 'multiple')),
	category text NOT NULL,
	total_votes bigint NOT NULL DEFAULT 0,
	view_count bigint NOT NULL DEFAULT 0,
	share_count bigint NOT NULL DEFAULT 0,
	comment_count bigint NOT NULL DEFAULT 0,
	is_hot boolean NOT NULL DEFAULT false,
	is_featured boolean NOT NULL DEFAULT false,
	status text NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'ended', 'draft')),
	created_by uuid REFERENCES users (id) ON DELETE SET NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	ends_at timestamptz
);

CREATE INDEX IF NOT EXISTS polls_status_votes_idx ON polls (status, total_votes DESC);
CREATE INDEX IF NOT EXISTS polls_created_by_idx ON polls (created_by);

CREATE TABLE IF NOT EXISTS poll_options (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	poll_id uuid NOT NULL REFERENCES polls (id) ON DELETE CASCADE,
	option_text text NOT NULL,
	option_image text,
	vote_count bigint NOT NULL DEFAULT 0,
	display_order integer NOT NULL,
	color text NOT NULL,
	is_user_submitted boolean NOT NULL DEFAULT false,
	created_by uuid REFERENCES users (id) ON DELETE SET NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS poll_options_poll_idx ON poll_options (poll_id, display_order);

CREATE TABLE IF NOT EXISTS poll_votes (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	poll_id uuid NOT NULL REFERENCES polls (id) ON DELETE CASCADE,
	option_id uuid NOT NULL REFERENCES poll_options (id) ON DELETE CASCADE,
	user_id uuid REFERENCES users (id) ON DELETE SET NULL,
	ip_address text NOT NULL DEFAULT '',
	voter_key text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	CONSTRAINT poll_votes_voter_unique UNIQUE (poll_id, voter_key)
);

CREATE INDEX IF NOT EXISTS poll_votes_user_idx ON poll_votes (user_id);

CREATE TABLE IF NOT EXISTS poll_comments (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	poll_id uuid NOT NULL REFERENCES polls (id) ON DELETE CASCADE,
	option_id uuid REFERENCES poll_options (id) ON DELETE SET NULL,
	user_id uuid NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	content text NOT NULL,
	likes bigint NOT NULL DEFAULT 0,
	created_at timestamptz NOT NULL DEFAULT now(),
	deleted_at timestamptz
);

CREATE INDEX IF NOT EXISTS poll_comments_poll_idx ON poll_comments (poll_id, created_at DESC);

CREATE TABLE IF NOT EXISTS comment_likes (
	comment_id uuid NOT NULL REFERENCES poll_comments (id) ON DELETE CASCADE,
	user_id uuid NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	created_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (comment_id, user_id)
);

CREATE TABLE IF NOT EXISTS poll_bookmarks (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id uuid NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	poll_id uuid NOT NULL REFERENCES polls (id) ON DELETE CASCADE,
	created_at timestamptz NOT NULL DEFAULT now(),
	UNIQUE (user_id, poll_id)
);

CREATE TABLE IF NOT EXISTS notifications (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id uuid NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	kind text NOT NULL,
	title text NOT NULL,
	description text NOT NULL DEFAULT '',
	related_id text NOT NULL DEFAULT '',
	read boolean NOT NULL DEFAULT false,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC);
`

// Migrate applies Schema.
func (s *PGStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}
