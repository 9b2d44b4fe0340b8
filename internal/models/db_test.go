package models

import (
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestWithSQLitePragmas(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "data/rewards.db", want: "data/rewards.db?" + sqlitePragmas},
		{in: "data/rewards.db?cache=shared", want: "data/rewards.db?cache=shared&" + sqlitePragmas},
		{in: "file:x?mode=memory&cache=shared", want: "file:x?mode=memory&cache=shared"},
		{in: "rewards.db?_pragma=busy_timeout(100)", want: "rewards.db?_pragma=busy_timeout(100)"},
	}
	for _, tc := range cases {
		if got := withSQLitePragmas(tc.in); got != tc.want {
			t.Fatalf("withSQLitePragmas(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestInitDBRejectsUnknownDriver(t *testing.T) {
	err := InitDB("mysql", "root@/rewards", DBPoolConfig{}, false)
	if err == nil || !strings.Contains(err.Error(), "unsupported database driver") {
		t.Fatalf("expected unsupported driver error, got %v", err)
	}
}

func TestInitDBOpensSQLiteAndMigrates(t *testing.T) {
	prev := DB
	t.Cleanup(func() { DB = prev })

	if err := InitDB("sqlite", "file:models_init_test?mode=memory&cache=shared", DBPoolConfig{MaxOpenConns: 1}, false); err != nil {
		t.Fatalf("init sqlite failed: %v", err)
	}
	if err := AutoMigrate(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !DB.Migrator().HasTable(&CommissionRecord{}) {
		t.Fatalf("commission table should exist after migrate")
	}
}

func TestApplyDBPoolZeroValueKeepsIdleConnection(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:models_pool_test?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	applyDBPool(sqlDB, DBPoolConfig{})
	if _, err := sqlDB.Exec("CREATE TABLE pool_check (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	if idle := sqlDB.Stats().Idle; idle < 1 {
		t.Fatalf("zero pool config must keep an idle connection, got %d", idle)
	}
	// 内存库在最后一个连接关闭时销毁，表仍在说明连接被保留
	if _, err := sqlDB.Exec("INSERT INTO pool_check (id) VALUES (1)"); err != nil {
		t.Fatalf("table lost between statements: %v", err)
	}
}
