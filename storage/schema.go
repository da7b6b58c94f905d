package storage

// Schema DDL. Every statement is idempotent so Open can run it on each start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL,
    created_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS orders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    product_name TEXT NOT NULL,
    amount INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id)`,
	`CREATE TABLE IF NOT EXISTS weight_configurations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    score_a REAL NOT NULL DEFAULT 0.25,
    score_b REAL NOT NULL DEFAULT 0.25,
    score_c REAL NOT NULL DEFAULT 0.25,
    score_d REAL NOT NULL DEFAULT 0.25,
    updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS tickets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    value_a REAL NOT NULL DEFAULT 0,
    value_b REAL NOT NULL DEFAULT 0,
    value_c REAL NOT NULL DEFAULT 0,
    value_d REAL NOT NULL DEFAULT 0,
    score REAL NOT NULL DEFAULT 0,
    weight_config_id INTEGER REFERENCES weight_configurations(id) ON DELETE SET NULL,
    created_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS field_priority_configurations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    field_order TEXT NOT NULL DEFAULT '[]',
    updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS sentences (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_name TEXT NOT NULL DEFAULT '',
    sentence TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    embedding TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS prompt_configurations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_type TEXT NOT NULL DEFAULT 'custom',
    prompt TEXT NOT NULL,
    model TEXT NOT NULL DEFAULT 'gpt-3.5-turbo',
    updated_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_prompts_task ON prompt_configurations(task_type)`,
	`CREATE TABLE IF NOT EXISTS sync_paths (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    path TEXT NOT NULL UNIQUE,
    updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS chat_sessions (
    session_id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    messages TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS category_memories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    configuration_item TEXT NOT NULL,
    category TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE (configuration_item, category)
)`,
	`CREATE TABLE IF NOT EXISTS uploaded_files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    filename TEXT NOT NULL,
    stored_filename TEXT NOT NULL,
    upload_time TEXT NOT NULL,
    file_size INTEGER NOT NULL,
    file_path TEXT NOT NULL DEFAULT 'uploads/'
)`,
}
