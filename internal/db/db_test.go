package db

import (
	"fmt"
	"testing"

	"gorm.io/gorm/logger"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"silent":  logger.Silent,
		" ERROR ": logger.Error,
		"debug":   logger.Info,
		"":        logger.Warn,
		"verbose": logger.Warn,
	}
	for input, want := range tests {
		if got := ParseLogLevel(input); got != want {
			t.Fatalf("ParseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Options{Driver: "mysql"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if _, err := Open(Options{Driver: DriverPostgres}); err == nil {
		t.Fatal("expected error for postgres without DSN")
	}
}

func TestEnsureUserAndAuthenticate(t *testing.T) {
	gdb, err := Init(Options{Path: fmt.Sprintf("file:lifeos-db-%s?mode=memory&cache=shared", t.Name()), LogLevel: "silent"})
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	if user, err := EnsureUser(gdb, "", " ", "pw"); err != nil || user != nil {
		t.Fatalf("expected no-op for blank username, got %v %v", user, err)
	}

	user, err := EnsureUser(gdb, "fixed-id", "owner", "s3cret")
	if err != nil {
		t.Fatalf("EnsureUser returned error: %v", err)
	}
	if user.ID != "fixed-id" || user.Password == "s3cret" {
		t.Fatalf("unexpected user: %+v", user)
	}

	again, err := EnsureUser(gdb, "other-id", "owner", "changed")
	if err != nil {
		t.Fatalf("EnsureUser returned error: %v", err)
	}
	if again.ID != "fixed-id" {
		t.Fatalf("expected existing user to be returned, got %s", again.ID)
	}

	// 密码变更后旧密码失效
	if _, err := Authenticate(gdb, "owner", "changed"); err != nil {
		t.Fatalf("Authenticate with reset password returned error: %v", err)
	}
	if _, err := Authenticate(gdb, "owner", "s3cret"); err == nil {
		t.Fatal("expected old password to fail after reset")
	}

	same, err := EnsureUser(gdb, "", "owner", "changed")
	if err != nil {
		t.Fatalf("EnsureUser returned error: %v", err)
	}
	if same.Password != again.Password {
		t.Fatal("unchanged password should keep the stored hash")
	}
	if _, err := Authenticate(gdb, "owner", "wrong"); err == nil {
		t.Fatal("expected wrong password to fail")
	}
	if _, err := Authenticate(gdb, "nobody", "s3cret"); err == nil {
		t.Fatal("expected unknown user to fail")
	}
}
