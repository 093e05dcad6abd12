package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB 数据库连接池封装
type DB struct {
	Pool *pgxpool.Pool
}

// New 创建数据库连接
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	// 单用户命令行，连接数不需要多
	config.MaxConns = 4
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// 测试连接
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close 关闭连接池
func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate 执行数据库迁移
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateCars,
		migrationCreateRentals,
		migrationCreateMaintenance,
		migrationCreateAccounts,
		migrationCreateDocuments,
		migrationUnboundedMoney,
	}

	for _, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// querier 连接池与事务的公共部分
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// 数据库迁移 SQL
// position 保存集合内的顺序，整体保存时重写
const migrationCreateCars = `
CREATE TABLE IF NOT EXISTS cars (
    id VARCHAR(32) PRIMARY KEY,
    position INT NOT NULL,
    model VARCHAR(255) NOT NULL,
    category VARCHAR(32) NOT NULL,
    fuel_type VARCHAR(32) NOT NULL,
    hourly_rate NUMERIC NOT NULL CHECK (hourly_rate >= 0),
    status VARCHAR(32) NOT NULL,
    renter_id VARCHAR(32),
    rental_start TIMESTAMP,
    estimated_hours INT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_cars_status ON cars(status);
`

const migrationCreateRentals = `
CREATE TABLE IF NOT EXISTS rentals (
    id VARCHAR(32) PRIMARY KEY,
    position INT NOT NULL,
    customer_id VARCHAR(32) NOT NULL,
    car_id VARCHAR(32) NOT NULL,
    driver_name VARCHAR(255) NOT NULL DEFAULT '',
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP,
    estimated_hours INT NOT NULL,
    actual_hours INT NOT NULL DEFAULT 0,
    total_cost NUMERIC NOT NULL,
    status VARCHAR(16) NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rentals_car_id ON rentals(car_id);
CREATE INDEX IF NOT EXISTS idx_rentals_customer_id ON rentals(customer_id);
`

const migrationCreateMaintenance = `
CREATE TABLE IF NOT EXISTS maintenance (
    id VARCHAR(32) PRIMARY KEY,
    position INT NOT NULL,
    car_id VARCHAR(32) NOT NULL,
    technician VARCHAR(255) NOT NULL,
    date TIMESTAMP NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status VARCHAR(16) NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_maintenance_car_id ON maintenance(car_id);
`

const migrationCreateAccounts = `
CREATE TABLE IF NOT EXISTS customers (
    id VARCHAR(32) PRIMARY KEY,
    position INT NOT NULL,
    name VARCHAR(255) NOT NULL,
    password VARCHAR(255) NOT NULL
);
CREATE TABLE IF NOT EXISTS agents (
    id VARCHAR(32) PRIMARY KEY,
    position INT NOT NULL,
    name VARCHAR(255) NOT NULL,
    password VARCHAR(255) NOT NULL
);
`

const migrationCreateDocuments = `
CREATE TABLE IF NOT EXISTS documents (
    id UUID PRIMARY KEY,
    kind VARCHAR(16) NOT NULL,
    owner_id VARCHAR(32) NOT NULL,
    created_at TIMESTAMP NOT NULL,
    content TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(kind, owner_id);
`

// 旧库的金额列带 (12,2) 精度，会把费率截到两位小数
const migrationUnboundedMoney = `
ALTER TABLE cars ALTER COLUMN hourly_rate TYPE NUMERIC;
ALTER TABLE rentals ALTER COLUMN total_cost TYPE NUMERIC;
`
