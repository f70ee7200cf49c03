package app

import (
	"errors"
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args []string
		want Command
	}{
		{nil, CommandServe},
		{[]string{""}, CommandServe},
		{[]string{"serve"}, CommandServe},
		{[]string{"worker"}, CommandWorker},
		{[]string{"Worker"}, CommandWorker},
		{[]string{"migrate"}, CommandMigrate},
		{[]string{"healthcheck"}, CommandHealthcheck},
		{[]string{"worker", "--flag", "value"}, CommandWorker},
	}
	for _, tt := range tests {
		got, err := ParseCommand(tt.args)
		if err != nil {
			t.Errorf("ParseCommand(%q) unexpected error: %v", tt.args, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCommand(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestParseCommand_Unknown_ReturnsError(t *testing.T) {
	for _, arg := range []string{"server", "migrations", "--help"} {
		_, err := ParseCommand([]string{arg})
		if !errors.Is(err, ErrUnknownCommand) {
			t.Errorf("ParseCommand(%q) error = %v, want ErrUnknownCommand", arg, err)
			continue
		}
		if !strings.Contains(err.Error(), "serve, worker, migrate, healthcheck") {
			t.Errorf("error %q should list the available commands", err.Error())
		}
	}
}

func TestRun_UnknownCommand_FailsBeforeLoadingConfig(t *testing.T) {
	// 設定が揃っていなくても、コマンド名の誤りとして報告される
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("BASE_URL", "")

	err := Run(&strings.Builder{}, []string{"wrker"})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("Run error = %v, want ErrUnknownCommand", err)
	}
}
